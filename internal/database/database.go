package database

import (
	"os"
	"path/filepath"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/config"
	"github.com/formvoice/core/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured database and optionally runs auto-migration.
func Connect(cfg *config.AppConfig, autoMigrate bool) (*gorm.DB, error) {
	db, err := Open(cfg.Database, resolveLogLevel(cfg))
	if err != nil {
		return nil, err
	}
	if autoMigrate {
		if err := Migrate(db); err != nil {
			return nil, errors.Wrap(err, "migration failed")
		}
	}
	return db, nil
}

// EnsureSchema applies migrations in a short-lived setup connection.
func EnsureSchema(cfg *config.AppConfig) error {
	db, err := Open(cfg.Database, resolveLogLevel(cfg))
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "resolve sql db")
	}
	defer sqlDB.Close()

	if err := Migrate(db); err != nil {
		return errors.Wrap(err, "migration failed")
	}
	return nil
}

func resolveLogLevel(cfg *config.AppConfig) logger.LogLevel {
	if cfg.IsDev() {
		return logger.Info
	}
	return logger.Warn
}

// Open connects with the driver named in cfg.
func Open(cfg config.DatabaseRuntimeConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dsn := cfg.DSNValue()
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, errors.Wrap(err, "create sqlite directory")
			}
		}
		dialector = sqlite.Open(dsn)
	default:
		dialector = mysql.New(mysql.Config{
			DSN:               cfg.DSNValue(),
			DefaultStringSize: 191,
		})
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, errors.Wrap(err, "database connection failed")
	}
	if cfg.Driver == config.DriverSQLite {
		// One connection keeps an in-memory database alive and serializes writers.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "resolve sql db")
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate runs GORM auto-migration for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.FormModel{},
		&models.FormFieldModel{},
		&models.FormSubmissionModel{},
		&models.InvoiceTemplateModel{},
		&models.InvoiceModel{},
	)
}

// OpenMemory returns a migrated in-memory sqlite database.
func OpenMemory() (*gorm.DB, error) {
	db, err := Open(config.DatabaseRuntimeConfig{Driver: config.DriverSQLite, DSN: ":memory:"}, logger.Silent)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
