package database

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the client's local database file and
// verifies the connection. The file plays the role device key-value storage
// plays on mobile: it survives process restarts so a still-valid session
// does not force a fresh sign-in.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// The file is only ever touched by this process.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS session_cache (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			payload    TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
