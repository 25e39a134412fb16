package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rl1809/inventory-cart/internal/core/domain"
)

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// OpenSQLite opens an embedded database file. SQLite allows one writer at a
// time, so the pool is limited to a single connection and transactions queue
// on it instead of failing with SQLITE_BUSY.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?"+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// NewSQLiteAdapter has no row locks; the single connection serializes writers.
func NewSQLiteAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{
		db: db,
		dialect: dialect{
			name:      DriverSQLite,
			translate: translateSQLiteError,
		},
	}
}

func translateSQLiteError(err error) error {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return err
	}
	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return fmt.Errorf("%w: %v", ErrDuplicateLine, err)
	case sqlite3.SQLITE_BUSY:
		return fmt.Errorf("%w: %v", domain.ErrStorageTimeout, err)
	}
	return err
}
