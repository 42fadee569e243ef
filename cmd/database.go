package cmd

import (
	"database/sql"
	"errors"
	"fmt"

	"orderflow/internal/adapters/out/postgres"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// OpenDatabase connects to the configured order store and migrates its schema.
// For PostgreSQL the database is created first when DB_CREATE_IF_MISSING is set.
func OpenDatabase(cfg Config) (*gorm.DB, error) {
	var dsn string
	switch cfg.DBDriver {
	case postgres.DriverSQLite:
		dsn = cfg.SQLiteDSN
	default:
		if cfg.DBCreateIfMissing {
			if err := createDatabaseIfMissing(cfg); err != nil {
				return nil, err
			}
		}
		dsn = cfg.PostgresDSN()
	}

	db, err := postgres.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, err
	}
	if err = postgres.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

// createDatabaseIfMissing connects to the maintenance database and issues
// CREATE DATABASE when cfg.DBName does not exist yet.
func createDatabaseIfMissing(cfg Config) (err error) {
	conn, err := sql.Open("postgres", cfg.postgresDSN("postgres"))
	if err != nil {
		return fmt.Errorf("connect to maintenance database: %w", err)
	}
	defer func() {
		err = errors.Join(err, conn.Close())
	}()

	var exists bool
	err = conn.QueryRow(`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, cfg.DBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check database %s: %w", cfg.DBName, err)
	}
	if exists {
		return nil
	}

	if _, err = conn.Exec("CREATE DATABASE " + pq.QuoteIdentifier(cfg.DBName)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P04" {
			return nil
		}
		return fmt.Errorf("create database %s: %w", cfg.DBName, err)
	}
	return nil
}
