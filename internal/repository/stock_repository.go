package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Execer is satisfied by both *sql.DB and *sql.Tx so the ledger's update
// discipline can run standalone or inside a larger transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// StockLedger owns the available-quantity counter per product. Every stock
// mutation in the system goes through these statements so the counter can
// never go negative and never suffers a read-then-write race.
type StockLedger interface {
	// Decrement atomically takes quantity units if at least that many are
	// available. Returns false without error when stock is insufficient or
	// the item is a service, inactive, or missing.
	Decrement(ctx context.Context, ex Execer, itemID uuid.UUID, quantity int) (bool, error)
	// Increment returns quantity units to the counter. Unconditional: stock
	// is bounded below only.
	Increment(ctx context.Context, ex Execer, itemID uuid.UUID, quantity int) error
	// Restock is the catalog-administration entry point; same increment
	// discipline, run against the base connection.
	Restock(ctx context.Context, itemID uuid.UUID, quantity int) (*int, error)
	// Availability reads the current counter for shortfall reporting.
	// Inactive or missing items report zero.
	Availability(ctx context.Context, itemID uuid.UUID) (name string, available int, err error)
}

type stockLedger struct {
	db *sql.DB
}

// NewStockLedger creates a new instance of StockLedger
func NewStockLedger(db *sql.DB) StockLedger {
	return &stockLedger{db: db}
}

// Decrement performs the conditional compare-and-decrement in one statement.
// The WHERE clause is the linearizability point: Postgres row-locks the item,
// so two checkouts contending for the last unit serialize here.
func (l *stockLedger) Decrement(ctx context.Context, ex Execer, itemID uuid.UUID, quantity int) (bool, error) {
	query := `
		UPDATE items
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND item_type = 'product' AND active AND stock >= $2
	`

	result, err := ex.ExecContext(ctx, query, itemID, quantity)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// Increment restores quantity units, e.g. when an order is cancelled
func (l *stockLedger) Increment(ctx context.Context, ex Execer, itemID uuid.UUID, quantity int) error {
	query := `
		UPDATE items
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND item_type = 'product'
	`

	if _, err := ex.ExecContext(ctx, query, itemID, quantity); err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}

	return nil
}

// Restock adds stock to a product and returns the new counter value
func (l *stockLedger) Restock(ctx context.Context, itemID uuid.UUID, quantity int) (*int, error) {
	query := `
		UPDATE items
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND item_type = 'product'
		RETURNING stock
	`

	var stock int
	err := l.db.QueryRowContext(ctx, query, itemID, quantity).Scan(&stock)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to restock item: %w", err)
	}

	return &stock, nil
}

// Availability reads the item name and live available quantity
func (l *stockLedger) Availability(ctx context.Context, itemID uuid.UUID) (string, int, error) {
	query := `SELECT name, stock, active FROM items WHERE id = $1`

	var (
		name   string
		stock  int
		active bool
	)
	err := l.db.QueryRowContext(ctx, query, itemID).Scan(&name, &stock, &active)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("failed to read availability: %w", err)
	}

	if !active {
		return name, 0, nil
	}

	return name, stock, nil
}
