// Package db opens database/sql handles for the authority's Postgres mode.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DSN returns dsn when set, else a postgres URL built from the POSTGRES_* env vars.
func DSN(dsn string) string {
	if dsn != "" {
		return dsn
	}
	user := getenvDefault("POSTGRES_USER", "wallfeed")
	pass := os.Getenv("POSTGRES_PASSWORD")
	name := getenvDefault("POSTGRES_DB", "wallfeed")
	host := getenvDefault("POSTGRES_HOST", "localhost")
	port := getenvDefault("POSTGRES_PORT", "5432")
	if pass == "" {
		// local dev without a password
		return fmt.Sprintf("postgresql://%s@%s:%s/%s", user, host, port, name)
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s", user, pass, host, port, name)
}

// NewDB opens a pgx-backed *sql.DB and pings it with a short timeout.
func NewDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", DSN(dsn))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func getenvDefault(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}
