package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/inventory-cart/internal/core/domain"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrRowIsReferenced = 1451
	mysqlErrNoReferencedRow = 1452
	mysqlErrLockWaitTimeout = 1205
)

var ErrDuplicateLine = errors.New("duplicate cart line")

type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenMySQL connects with parseTime and clientFoundRows forced on, so that
// RowsAffected counts matched rows the same way SQLite does.
func OpenMySQL(ctx context.Context, dsn string, pool PoolOptions) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

func NewMySQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{
		db: db,
		dialect: dialect{
			name:       DriverMySQL,
			lockSuffix: " FOR UPDATE",
			translate:  translateMySQLError,
		},
	}
}

func translateMySQLError(err error) error {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return err
	}
	switch myErr.Number {
	case mysqlErrRowIsReferenced:
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	case mysqlErrNoReferencedRow:
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	case mysqlErrDuplicateEntry:
		return fmt.Errorf("%w: %v", ErrDuplicateLine, err)
	case mysqlErrLockWaitTimeout:
		return fmt.Errorf("%w: %v", domain.ErrStorageTimeout, err)
	}
	return err
}
