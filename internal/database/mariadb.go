// Package database opens the connections the storage backends run on.
// cmd/server calls exactly one constructor, depending on STORAGE_BACKEND,
// and owns closing what it gets back.
package database

import (
	"database/sql"
	"fmt"

	// MariaDB driver, imported for side effect of registering the driver.
	_ "github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/courtside/internal/config"
)

// NewMariaDB opens a pool sized from cfg and waits for the server to answer.
func NewMariaDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := pingWithRetry("mariadb", db.PingContext); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
