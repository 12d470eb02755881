package repository

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/careerforge/careerforge/internal/config"
	"github.com/careerforge/careerforge/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB initializes the database connection based on configuration and runs migrations.
// Parameters:
//   - cfg: database configuration including driver and connection settings.
// Returns:
//   - *gorm.DB: initialized database handle.
//   - error: non-nil if connection or migration fails.
func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Translated errors let callers match gorm.ErrDuplicatedKey across drivers,
		// which the active-job claim relies on.
		TranslateError: true,
	}

	var db *gorm.DB
	var err error

	log.Printf("[DB] Initializing database with driver: %q", cfg.Driver)

	switch cfg.Driver {
	case "postgres":
		db, err = initPostgres(cfg, gormConfig)
	case "sqlite":
		db, err = initSQLite(cfg, gormConfig)
	default:
		log.Printf("[DB] Unknown driver %q, defaulting to SQLite", cfg.Driver)
		db, err = initSQLite(cfg, gormConfig)
	}

	if err != nil {
		return nil, err
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// Migrate runs schema migration for every persisted aggregate.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Resume{},
		&domain.Interview{},
		&domain.InterviewAnswer{},
		&domain.JobRecord{},
		&domain.JudgeEvaluation{},
		&domain.IdempotencyRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// initPostgres initializes a PostgreSQL database connection using the unified DSN
func initPostgres(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	// PreferSimpleProtocol keeps the driver compatible with transaction poolers
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return db, nil
}

// initSQLite initializes a SQLite database connection
func initSQLite(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	// Ensure the directory exists
	if cfg.Path != "" && cfg.Path != ":memory:" {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	// WAL mode for better concurrency under parallel job writes
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA foreign_keys=ON")

	return db, nil
}
