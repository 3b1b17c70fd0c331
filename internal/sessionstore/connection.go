// Package sessionstore is the optional write-behind persistence layer
// for session snapshots: upload metadata, last solve status, and
// objective value, so an operator can inspect solve history across
// restarts. The core solve path never blocks on it — a save failure
// here is logged and ignored by its caller, not propagated as an
// allocation error.
package sessionstore

import (
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Config holds connection parameters. The server command connects with
// DefaultConfig as is; nothing reads these values from the environment,
// and the core pipeline never uses them.
type Config struct {
	Host               string
	Port               string
	User               string
	Password           string
	DatabaseName       string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// DSN renders the config as a libpq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DatabaseName, c.SSLMode,
	)
}

// DefaultConfig returns local-development connection defaults.
func DefaultConfig() Config {
	return Config{
		Host:               "localhost",
		Port:               "5432",
		User:               "postgres",
		Password:           "password",
		DatabaseName:       "huoyuan_allocator",
		SSLMode:            "disable",
		MaxConnections:     25,
		MaxIdleConnections: 5,
		ConnMaxLifetime:    5 * time.Minute,
	}
}

// Store wraps a *gorm.DB scoped to session snapshot persistence.
type Store struct {
	db *gorm.DB
}

// Connect opens the database connection and tunes the pool.
func Connect(cfg Config) (*Store, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)

	db, err := gorm.Open(gormpostgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sessionstore: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sessionstore: underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("sessionstore: ping: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate runs every embedded migration up to the latest version using
// golang-migrate against the same database, via its iofs source driver
// over the embedded SQL files.
func Migrate(cfg Config) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("sessionstore: migration source: %w", err)
	}

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DatabaseName, cfg.SSLMode)

	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("sessionstore: migrate init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("sessionstore: migrate up: %w", err)
	}
	return nil
}
