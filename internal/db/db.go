package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrBackupUnsupported is returned by Backup for drivers without a file snapshot.
var ErrBackupUnsupported = errors.New("backup is only supported for sqlite")

type Options struct {
	Driver string
	// Path is the SQLite file. ":memory:" opens a private in-memory database.
	Path string
	// DSN is the Postgres connection string.
	DSN string
}

type DB struct {
	conn   *gorm.DB
	driver string
	logger *slog.Logger
}

func New(opts Options, log *slog.Logger) (*DB, error) {
	gormCfg := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch opts.Driver {
	case DriverSQLite, "":
		if opts.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		conn, err = gorm.Open(sqlite.Open(opts.Path), gormCfg)
		opts.Driver = DriverSQLite
	case DriverPostgres:
		conn, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  opts.DSN,
			PreferSimpleProtocol: true,
		}), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if opts.Driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)

		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
		}
		for _, pragma := range pragmas {
			if err := conn.Exec(pragma).Error; err != nil {
				return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
			}
		}
	} else {
		sqlDB.SetMaxOpenConns(10)
	}

	return &DB{conn: conn, driver: opts.Driver, logger: log}, nil
}

func (d *DB) Close() error {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *DB) Conn() *gorm.DB {
	return d.conn
}

func (d *DB) Driver() string {
	return d.driver
}

// Migrate creates or updates the tables for the given models.
func (d *DB) Migrate(models ...any) error {
	if err := d.conn.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if d.logger != nil {
		d.logger.Info("schema migrated", "driver", d.driver, "models", len(models))
	}
	return nil
}

// Backup writes a consistent snapshot of the SQLite database to dest.
// dest must not exist yet.
func (d *DB) Backup(ctx context.Context, dest string) error {
	if d.driver != DriverSQLite {
		return ErrBackupUnsupported
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := d.conn.WithContext(ctx).Exec("VACUUM INTO ?", dest).Error; err != nil {
		return fmt.Errorf("failed to write backup %s: %w", dest, err)
	}
	return nil
}
