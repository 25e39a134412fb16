package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// OpenStore connects to the configured engine and returns the pool together
// with the adapter bound to its dialect. The caller owns db.
func OpenStore(ctx context.Context, driver, dsn string, pool PoolOptions) (*sql.DB, *SQLAdapter, error) {
	switch driver {
	case DriverMySQL:
		db, err := OpenMySQL(ctx, dsn, pool)
		if err != nil {
			return nil, nil, err
		}
		return db, NewMySQLAdapter(db), nil
	case DriverSQLite:
		db, err := OpenSQLite(dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, NewSQLiteAdapter(db), nil
	default:
		return nil, nil, fmt.Errorf("unsupported driver %q", driver)
	}
}
