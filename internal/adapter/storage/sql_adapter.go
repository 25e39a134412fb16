package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/inventory-cart/internal/core/domain"
	"github.com/rl1809/inventory-cart/internal/port"
)

// dialect holds what differs between the supported SQL engines.
type dialect struct {
	name string
	// appended to reads that must hold a row lock until commit
	lockSuffix string
	// maps engine specific constraint errors to domain errors
	translate func(err error) error
}

// SQLAdapter implements the catalog and cart repositories on database/sql.
type SQLAdapter struct {
	db      *sql.DB
	dialect dialect
}

var (
	_ port.CatalogRepository = (*SQLAdapter)(nil)
	_ port.CartRepository    = (*SQLAdapter)(nil)
	_ port.CartTx            = (*sqlTx)(nil)
)

const inventoryColumns = `id, name, image, description, price, quantity`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := row.Scan(&item.ID, &item.Name, &item.Image, &item.Description, &item.Price, &item.Quantity)
	return item, err
}

func (s *SQLAdapter) Driver() string {
	return s.dialect.name
}

func (s *SQLAdapter) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLAdapter) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+inventoryColumns+` FROM inventory ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	items := []domain.InventoryItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}
	return items, nil
}

func (s *SQLAdapter) GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("inventory item %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &item, nil
}

func (s *SQLAdapter) CreateItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (name, image, description, price, quantity)
		VALUES (?, ?, ?, ?, ?)`,
		item.Name, item.Image, item.Description, item.Price, item.Quantity,
	)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("insert inventory: %w", s.dialect.translate(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("insert inventory id: %w", err)
	}
	item.ID = id
	return item, nil
}

func (s *SQLAdapter) UpdateItem(ctx context.Context, item domain.InventoryItem) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET name = ?, image = ?, description = ?, price = ?, quantity = ?
		WHERE id = ?`,
		item.Name, item.Image, item.Description, item.Price, item.Quantity, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", s.dialect.translate(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("inventory item %d: %w", item.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *SQLAdapter) DeleteItem(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var lines int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cart WHERE inventory_id = ?`, id).Scan(&lines)
		if err != nil {
			return fmt.Errorf("count cart lines: %w", err)
		}
		if lines > 0 {
			return fmt.Errorf("inventory item %d is in the cart: %w", id, domain.ErrConflict)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM inventory WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete inventory: %w", s.dialect.translate(err))
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete inventory: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("inventory item %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}

func (s *SQLAdapter) ListCart(ctx context.Context) ([]domain.CartLineView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cart.id, cart.inventory_id, cart.quantity,
			inventory.price, inventory.name, inventory.image, inventory.quantity
		FROM cart
		INNER JOIN inventory ON cart.inventory_id = inventory.id
		ORDER BY cart.id`)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	defer rows.Close()

	lines := []domain.CartLineView{}
	for rows.Next() {
		var v domain.CartLineView
		if err := rows.Scan(&v.ID, &v.InventoryID, &v.Quantity,
			&v.Price, &v.Name, &v.Image, &v.InventoryQuantity); err != nil {
			return nil, fmt.Errorf("scan cart: %w", err)
		}
		lines = append(lines, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart: %w", err)
	}
	return lines, nil
}

func (s *SQLAdapter) GetLine(ctx context.Context, lineID int64) (*domain.CartLine, error) {
	return getLine(ctx, s.db, lineID)
}

func (s *SQLAdapter) DeleteLine(ctx context.Context, lineID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cart WHERE id = ?`, lineID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("cart line %d: %w", lineID, domain.ErrNotFound)
	}
	return nil
}

func (s *SQLAdapter) ClearCart(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart`); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *SQLAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.CartTx) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return fn(ctx, &sqlTx{tx: tx, dialect: s.dialect})
	})
}

func (s *SQLAdapter) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getLine(ctx context.Context, q queryer, lineID int64) (*domain.CartLine, error) {
	var line domain.CartLine
	err := q.QueryRowContext(ctx,
		`SELECT id, inventory_id, quantity FROM cart WHERE id = ?`, lineID,
	).Scan(&line.ID, &line.InventoryID, &line.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cart line %d: %w", lineID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query cart line: %w", err)
	}
	return &line, nil
}

type sqlTx struct {
	tx      *sql.Tx
	dialect dialect
}

func (t *sqlTx) LockItem(ctx context.Context, inventoryID int64) (*domain.InventoryItem, error) {
	item, err := scanItem(t.tx.QueryRowContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory WHERE id = ?`+t.dialect.lockSuffix, inventoryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("inventory item %d: %w", inventoryID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock inventory: %w", err)
	}
	return &item, nil
}

// LineByInventory is a plain read. Every writer of a line first locks its
// inventory row, so only a concurrent delete can change the result, and the
// writes below detect that through the affected row count.
func (t *sqlTx) LineByInventory(ctx context.Context, inventoryID int64) (*domain.CartLine, error) {
	var line domain.CartLine
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, inventory_id, quantity FROM cart WHERE inventory_id = ?`, inventoryID,
	).Scan(&line.ID, &line.InventoryID, &line.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart line: %w", err)
	}
	return &line, nil
}

func (t *sqlTx) LineByID(ctx context.Context, lineID int64) (*domain.CartLine, error) {
	return getLine(ctx, t.tx, lineID)
}

func (t *sqlTx) InsertLine(ctx context.Context, inventoryID int64, quantity int) (int64, error) {
	result, err := t.tx.ExecContext(ctx,
		`INSERT INTO cart (inventory_id, quantity) VALUES (?, ?)`, inventoryID, quantity)
	if err != nil {
		return 0, fmt.Errorf("insert cart line: %w", t.dialect.translate(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert cart line id: %w", err)
	}
	return id, nil
}

func (t *sqlTx) SetLineQuantity(ctx context.Context, lineID int64, quantity int) error {
	result, err := t.tx.ExecContext(ctx, `UPDATE cart SET quantity = ? WHERE id = ?`, quantity, lineID)
	if err != nil {
		return fmt.Errorf("update cart line: %w", t.dialect.translate(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("cart line %d: %w", lineID, domain.ErrNotFound)
	}
	return nil
}

func (t *sqlTx) DeleteLine(ctx context.Context, lineID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM cart WHERE id = ?`, lineID); err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}
