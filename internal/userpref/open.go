package userpref

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// OpenPostgres connects with lib/pq and migrates the table.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, *sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	return migrateOpened(ctx, db, DialectPostgres)
}

// OpenSQLite opens (creating if needed) a sqlite file and migrates the table.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, *sql.DB, error) {
	if dir := filepath.Dir(path); strings.TrimSpace(dir) != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	return migrateOpened(ctx, db, DialectSQLite)
}

func migrateOpened(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, *sql.DB, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}
	store := NewSQLStore(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db, nil
}
