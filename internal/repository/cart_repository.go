package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"glowmarket/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartLineNotFound = errors.New("cart line not found")
)

// CartRepository is the durable per-principal cart store. Concurrent writes
// within one principal's cart resolve last-write-wins; there is no locking
// because cart contents are pre-commitment state.
type CartRepository interface {
	AddLine(ctx context.Context, line *domain.CartLine) error
	SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	RemoveLine(ctx context.Context, userID, itemID uuid.UUID) error
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

// AddLine inserts a cart line, accumulating quantity if the principal
// already has a line for the same item. Each add refreshes the captured
// unit price to the catalog price at that moment; the snapshot is advisory
// either way, checkout re-reads the catalog.
func (r *cartRepository) AddLine(ctx context.Context, line *domain.CartLine) error {
	query := `
		INSERT INTO cart_lines (user_id, item_id, item_type, unit_price, quantity, added_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (user_id, item_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity,
		              unit_price = EXCLUDED.unit_price,
		              updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		line.UserID,
		line.ItemID,
		line.ItemType,
		line.UnitPrice,
		line.Quantity,
		time.Now(),
	)

	if err != nil {
		return fmt.Errorf("failed to add cart line: %w", err)
	}

	return nil
}

// SetQuantity replaces the requested quantity of an existing line
func (r *cartRepository) SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	query := `
		UPDATE cart_lines
		SET quantity = $3, updated_at = $4
		WHERE user_id = $1 AND item_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, userID, itemID, quantity, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update cart line: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartLineNotFound
	}

	return nil
}

// RemoveLine deletes one line from the principal's cart
func (r *cartRepository) RemoveLine(ctx context.Context, userID, itemID uuid.UUID) error {
	query := `DELETE FROM cart_lines WHERE user_id = $1 AND item_id = $2`

	result, err := r.db.ExecContext(ctx, query, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartLineNotFound
	}

	return nil
}

// GetCart loads all of the principal's cart lines, oldest first
func (r *cartRepository) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	query := `
		SELECT user_id, item_id, item_type, unit_price, quantity, added_at, updated_at
		FROM cart_lines
		WHERE user_id = $1
		ORDER BY added_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	defer rows.Close()

	cart := &domain.Cart{UserID: userID, Lines: []domain.CartLine{}}
	for rows.Next() {
		line := domain.CartLine{}
		err := rows.Scan(
			&line.UserID,
			&line.ItemID,
			&line.ItemType,
			&line.UnitPrice,
			&line.Quantity,
			&line.AddedAt,
			&line.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		cart.Lines = append(cart.Lines, line)
		if line.UpdatedAt.After(cart.UpdatedAt) {
			cart.UpdatedAt = line.UpdatedAt
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return cart, nil
}

// Clear removes every line from the principal's cart
func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM cart_lines WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}
