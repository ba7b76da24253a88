package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour a *sql.DB speaks.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DialectFor reports which driver a DATABASE_URL targets. URLs starting with
// "sqlite:" name a file path; everything else is handed to pgx.
func DialectFor(databaseURL string) Dialect {
	if strings.HasPrefix(strings.TrimSpace(databaseURL), "sqlite:") {
		return SQLite
	}
	return Postgres
}

func Open(ctx context.Context, databaseURL string) (*sql.DB, Dialect, error) {
	if DialectFor(databaseURL) == SQLite {
		path := strings.TrimPrefix(strings.TrimSpace(databaseURL), "sqlite:")
		path = strings.TrimPrefix(path, "//")
		db, err := OpenSQLite(ctx, path)
		return db, SQLite, err
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping db: %w", err)
	}
	return db, Postgres, nil
}

// OpenSQLite opens a file-backed database with foreign keys enforced.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; the driver serialises anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	var enabled int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite foreign keys are disabled")
	}
	return db, nil
}

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// Rebind rewrites $n placeholders into the dialect's form.
func Rebind(dialect Dialect, query string) string {
	if dialect != SQLite {
		return query
	}
	return placeholderPattern.ReplaceAllString(query, "?$1")
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
