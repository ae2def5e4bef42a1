package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// NewSQLiteRepository opens (or creates) the database at path. ":memory:"
// gives a private in-memory database.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLRepository, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// sqlite allows one writer; a single connection also keeps an
	// in-memory database alive across queries
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	return newSQLRepository(ctx, db)
}
