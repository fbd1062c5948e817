package config

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	StorageS3    = "s3"
	StorageLocal = "local"

	envDevelopment = "development"
	envProduction  = "production"
	envTest        = "test"
)
