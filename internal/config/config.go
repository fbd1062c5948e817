package config

import (
	"bytes"
	"os"
	"strings"

	"emperror.dev/errors"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port              int                   `yaml:"port"                 default:"2333"`
	Env               string                `yaml:"env"                  default:"development"`
	DSN               string                `yaml:"-"`
	RedisURL          string                `yaml:"-"`
	Database          DatabaseRuntimeConfig `yaml:"database"`
	Redis             RedisRuntimeConfig    `yaml:"redis"`
	Storage           StorageConfig         `yaml:"storage"`
	Paths             RuntimePathsConfig    `yaml:"paths"`
	AllowedOrigins    []string              `yaml:"allowed_origins"`
	JWTSecret         string                `yaml:"jwt_secret"`
	TemplateMaxSizeMB int                   `yaml:"template_max_size_mb" default:"5"`
	Timezone          string                `yaml:"timezone"`
}

type DatabaseRuntimeConfig struct {
	Driver    string            `yaml:"driver"     default:"mysql"`
	DSN       string            `yaml:"dsn"`
	Host      string            `yaml:"host"       default:"127.0.0.1"`
	Port      int               `yaml:"port"       default:"3306"`
	User      string            `yaml:"user"       default:"root"`
	Password  string            `yaml:"password"   default:"password"`
	Name      string            `yaml:"name"       default:"formvoice"`
	Charset   string            `yaml:"charset"    default:"utf8mb4"`
	ParseTime bool              `yaml:"parse_time" default:"true"`
	Loc       string            `yaml:"loc"        default:"Local"`
	Path      string            `yaml:"path"       default:"data/formvoice.db"`
	Params    map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"     default:"localhost"`
	Port     int    `yaml:"port"     default:"6379"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
	// SessionTTLHours bounds how long an idle builder session survives.
	SessionTTLHours int `yaml:"session_ttl_hours" default:"24"`
}

type StorageConfig struct {
	Driver         string   `yaml:"driver"          default:"local"`
	TemplateBucket string   `yaml:"template_bucket" default:"invoice-templates"`
	PublicBaseURL  string   `yaml:"public_base_url"`
	LocalDir       string   `yaml:"local_dir"       default:"storage"`
	S3             S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"            default:"us-east-1"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
	CustomDomain    string `yaml:"custom_domain"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

// rawAppConfig mirrors the YAML file, including the flat legacy keys that
// are folded into their nested sections during normalization.
type rawAppConfig struct {
	Port              int                   `yaml:"port"`
	Env               string                `yaml:"env"`
	DSN               string                `yaml:"dsn"`
	DatabaseURL       string                `yaml:"database_url"`
	RedisURL          string                `yaml:"redis_url"`
	Database          DatabaseRuntimeConfig `yaml:"database"`
	Redis             RedisRuntimeConfig    `yaml:"redis"`
	Storage           StorageConfig         `yaml:"storage"`
	Paths             RuntimePathsConfig    `yaml:"paths"`
	LogDir            string                `yaml:"log_dir"`
	AllowedOrigins    []string              `yaml:"allowed_origins"`
	CORSOrigins       []string              `yaml:"cors_allowed_origins"`
	JWTSecret         string                `yaml:"jwt_secret"`
	TemplateMaxSizeMB int                   `yaml:"template_max_size_mb"`
	Timezone          string                `yaml:"timezone"`
	TZ                string                `yaml:"tz"`
}

func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %q", path)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %q", path)
	}
	return cfg, nil
}

// Parse decodes YAML content on top of the defaults and validates the result.
// Unknown keys are rejected.
func Parse(content []byte) (*AppConfig, error) {
	cfg, err := defaultAppConfig()
	if err != nil {
		return nil, err
	}

	raw := rawAppConfig{}
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}

	applyRawAppConfig(&cfg, raw)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() (AppConfig, error) {
	cfg := AppConfig{}
	if err := defaults.Set(&cfg); err != nil {
		return cfg, errors.Wrap(err, "apply config defaults")
	}
	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.Database.Driver {
	case DriverMySQL:
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return errors.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
		}
	case DriverSQLite:
	default:
		return errors.Errorf("invalid database.driver %q, expected mysql or sqlite", c.Database.Driver)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return errors.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return errors.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	switch c.Storage.Driver {
	case StorageLocal:
	case StorageS3:
		if c.Storage.S3.AccessKeyID == "" || c.Storage.S3.SecretAccessKey == "" {
			return errors.New("storage.s3 requires access_key_id and secret_access_key")
		}
	default:
		return errors.Errorf("invalid storage.driver %q, expected s3 or local", c.Storage.Driver)
	}
	if c.TemplateMaxSizeMB < 1 {
		return errors.Errorf("invalid template_max_size_mb %d, expected >= 1", c.TemplateMaxSizeMB)
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env == envDevelopment
}

// LogDir returns the absolute log directory.
func (c *AppConfig) LogDir() string {
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

// TemplateMaxBytes is the upload ceiling for invoice templates.
func (c *AppConfig) TemplateMaxBytes() int64 {
	return int64(c.TemplateMaxSizeMB) * 1024 * 1024
}
