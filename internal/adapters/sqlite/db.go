package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps a database/sql handle on a SQLite file.
type DB struct {
	*sql.DB
}

// writerPragmas tune a file the process owns. journal_mode=WAL is persistent,
// so it is never applied to a store opened for reading.
var writerPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
}

var readerPragmas = []string{
	"PRAGMA busy_timeout=5000",
	"PRAGMA query_only=1",
}

// Open opens (or creates) the SQLite database at path for reading and writing.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := apply(ctx, db, writerPragmas); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

// OpenReadOnly opens an existing database without modifying it: the file is
// not created, its journal mode is left alone and writes fail.
func OpenReadOnly(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", readOnlyURI(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// query_only is per connection; a single connection keeps it applied.
	db.SetMaxOpenConns(1)

	if err := apply(ctx, db, readerPragmas); err != nil {
		return nil, fmt.Errorf("open %s read-only: %w", path, err)
	}
	return &DB{db}, nil
}

func apply(ctx context.Context, db *sql.DB, pragmas []string) error {
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// uriEscaper escapes the characters that end or quote a URI path.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func readOnlyURI(path string) string {
	return "file:" + uriEscaper.Replace(path) + "?mode=ro"
}
