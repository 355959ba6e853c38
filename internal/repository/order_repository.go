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
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository persists order aggregates. CreateOrders is the only code
// path that writes orders and decrements stock, and it does both inside a
// single transaction so a checkout either fully commits or leaves nothing.
type OrderRepository interface {
	CreateOrders(ctx context.Context, orders []*domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	// UpdateStatus moves an order from one status to another. The write is
	// conditional on the order still being in from; a lost race reports
	// ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, restoreStock bool) error
}

type orderRepository struct {
	db     *sql.DB
	ledger StockLedger
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB, ledger StockLedger) OrderRepository {
	return &orderRepository{db: db, ledger: ledger}
}

// CreateOrders commits one checkout: every stock decrement and every order
// row succeed together or none do. When any product line loses the race for
// stock the whole transaction rolls back and the error reports the live
// shortfall for every losing line, not just the first one.
func (r *orderRepository) CreateOrders(ctx context.Context, orders []*domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checkout transaction: %w", err)
	}
	defer tx.Rollback()

	var shortfalls []domain.Shortfall
	for _, order := range orders {
		for _, line := range order.Lines {
			if line.ItemType != domain.ItemTypeProduct {
				continue
			}

			ok, err := r.ledger.Decrement(ctx, tx, line.ItemID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				name, available, err := r.ledger.Availability(ctx, line.ItemID)
				if err != nil {
					return err
				}
				if name == "" {
					name = line.Name
				}
				shortfalls = append(shortfalls, domain.Shortfall{
					ItemID:    line.ItemID,
					Name:      name,
					Requested: line.Quantity,
					Available: available,
				})
			}
		}
	}

	if len(shortfalls) > 0 {
		return &domain.StockShortfallError{Shortfalls: shortfalls}
	}

	for _, order := range orders {
		if err := r.insertOrder(ctx, tx, order); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout transaction: %w", err)
	}

	return nil
}

func (r *orderRepository) insertOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	orderQuery := `
		INSERT INTO orders (
			id, user_id, subtotal, tax, shipping_fee, total, payment_method,
			shipping_name, shipping_phone, shipping_address, shipping_city, shipping_postal_code,
			status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := tx.ExecContext(
		ctx,
		orderQuery,
		order.ID,
		order.UserID,
		order.Totals.Subtotal,
		order.Totals.Tax,
		order.Totals.ShippingFee,
		order.Totals.Total,
		order.PaymentMethod,
		order.Shipping.Name,
		order.Shipping.Phone,
		order.Shipping.Address,
		order.Shipping.City,
		order.Shipping.PostalCode,
		order.Status,
		order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_lines (id, order_id, item_id, item_type, name, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, line := range order.Lines {
		_, err := tx.ExecContext(
			ctx,
			lineQuery,
			line.ID,
			order.ID,
			line.ItemID,
			line.ItemType,
			line.Name,
			line.UnitPrice,
			line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	return nil
}

// FindByID retrieves one order with its lines
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT id, user_id, subtotal, tax, shipping_fee, total, payment_method,
		       shipping_name, shipping_phone, shipping_address, shipping_city, shipping_postal_code,
		       status, created_at
		FROM orders
		WHERE id = $1
	`

	order := &domain.Order{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.Totals.Subtotal,
		&order.Totals.Tax,
		&order.Totals.ShippingFee,
		&order.Totals.Total,
		&order.PaymentMethod,
		&order.Shipping.Name,
		&order.Shipping.Phone,
		&order.Shipping.Address,
		&order.Shipping.City,
		&order.Shipping.PostalCode,
		&order.Status,
		&order.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	lines, err := r.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return order, nil
}

func (r *orderRepository) loadLines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	query := `
		SELECT id, order_id, item_id, item_type, name, unit_price, quantity
		FROM order_lines
		WHERE order_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}
	defer rows.Close()

	lines := []domain.OrderLine{}
	for rows.Next() {
		line := domain.OrderLine{}
		err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ItemID,
			&line.ItemType,
			&line.Name,
			&line.UnitPrice,
			&line.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order lines: %w", err)
	}

	return lines, nil
}

// ListByUser retrieves the principal's orders, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := `
		SELECT id, user_id, subtotal, tax, shipping_fee, total, payment_method,
		       shipping_name, shipping_phone, shipping_address, shipping_city, shipping_postal_code,
		       status, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order := &domain.Order{}
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.Totals.Subtotal,
			&order.Totals.Tax,
			&order.Totals.ShippingFee,
			&order.Totals.Total,
			&order.PaymentMethod,
			&order.Shipping.Name,
			&order.Shipping.Phone,
			&order.Shipping.Address,
			&order.Shipping.City,
			&order.Shipping.PostalCode,
			&order.Status,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for _, order := range orders {
		lines, err := r.loadLines(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Lines = lines
	}

	return orders, nil
}

// UpdateStatus persists a status change as a compare-and-set: the write
// lands only while the order is still in from, so two racing transitions
// authorized against the same snapshot cannot both apply. When restoreStock
// is set (a cancellation out of pending/processing) every product line's
// quantity is returned to the ledger in the same transaction, and the CAS
// guarantees the restore runs at most once per order.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, restoreStock bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin status transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1 AND status = $3`,
		id, to, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return ErrOrderNotFound
		}
		// The order moved since the caller read it; its authorization no
		// longer applies.
		return domain.ErrInvalidTransition
	}

	if restoreStock {
		lines, err := r.loadLinesTx(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if line.ItemType != domain.ItemTypeProduct {
				continue
			}
			if err := r.ledger.Increment(ctx, tx, line.ItemID, line.Quantity); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status transaction: %w", err)
	}

	return nil
}

func (r *orderRepository) loadLinesTx(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) ([]domain.OrderLine, error) {
	query := `
		SELECT id, order_id, item_id, item_type, name, unit_price, quantity
		FROM order_lines
		WHERE order_id = $1
	`

	rows, err := tx.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}
	defer rows.Close()

	lines := []domain.OrderLine{}
	for rows.Next() {
		line := domain.OrderLine{}
		err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ItemID,
			&line.ItemType,
			&line.Name,
			&line.UnitPrice,
			&line.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order lines: %w", err)
	}

	return lines, nil
}
