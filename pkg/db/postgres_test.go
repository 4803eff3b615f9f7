package db

import (
	"context"
	"os"
	"testing"
)

func TestGetenvDefault(t *testing.T) {
	const key = "TEST_GETENV_DEFAULT_KEY"
	t.Setenv(key, "")
	if got := getenvDefault(key, "fallback"); got != "fallback" {
		t.Fatalf("getenvDefault unset = %q, want %q", got, "fallback")
	}

	t.Setenv(key, "value1")
	if got := getenvDefault(key, "fallback"); got != "value1" {
		t.Fatalf("getenvDefault set = %q, want %q", got, "value1")
	}
}

func TestDSN(t *testing.T) {
	if got := DSN("postgres://a@b/c"); got != "postgres://a@b/c" {
		t.Fatalf("DSN kept = %q", got)
	}

	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_PASSWORD", "")
	t.Setenv("POSTGRES_DB", "")
	t.Setenv("POSTGRES_HOST", "")
	t.Setenv("POSTGRES_PORT", "")
	if got, want := DSN(""), "postgresql://wallfeed@localhost:5432/wallfeed"; got != want {
		t.Fatalf("DSN default = %q, want %q", got, want)
	}

	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_HOST", "db")
	if got, want := DSN(""), "postgresql://wallfeed:pw@db:5432/wallfeed"; got != want {
		t.Fatalf("DSN with password = %q, want %q", got, want)
	}
}

// TestNewDB requires a live database; skip when DATABASE_URL is not provided.
func TestNewDB_SkipUnlessDatabaseURL(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("skipping TestNewDB: no DATABASE_URL provided")
	}

	dbHandle, err := NewDB(context.Background(), dsn)
	if err != nil {
		t.Fatalf("NewDB returned error: %v", err)
	}
	_ = dbHandle.Close()
}
