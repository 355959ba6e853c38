package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"glowmarket/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrItemNotFound = errors.New("item not found")
)

// ItemRepository is the checkout engine's read-only view of the catalog.
// Catalog CRUD lives elsewhere; this interface only exposes what pricing
// and stock validation need.
type ItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Item, error)
}

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new instance of ItemRepository
func NewItemRepository(db *sql.DB) ItemRepository {
	return &itemRepository{db: db}
}

// FindByID retrieves a catalog item by ID using parameterized queries
func (r *itemRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	query := `
		SELECT id, name, description, item_type, price, stock, active, created_at, updated_at
		FROM items
		WHERE id = $1
	`

	item := &domain.Item{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Type,
		&item.Price,
		&item.Stock,
		&item.Active,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to find item by ID: %w", err)
	}

	return item, nil
}

// FindByIDs retrieves a batch of items keyed by ID. Missing IDs are simply
// absent from the result map; callers treat absence as zero availability.
func (r *itemRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Item, error) {
	items := make(map[uuid.UUID]*domain.Item, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := `
		SELECT id, name, description, item_type, price, stock, active, created_at, updated_at
		FROM items
		WHERE id = ANY($1::uuid[])
	`

	rows, err := r.db.QueryContext(ctx, query, idStrings)
	if err != nil {
		return nil, fmt.Errorf("failed to find items by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &domain.Item{}
		err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Description,
			&item.Type,
			&item.Price,
			&item.Stock,
			&item.Active,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items[item.ID] = item
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}
