package service

import (
	"context"

	"glowmarket/internal/domain"
	"glowmarket/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoleAdmin principals may drive any legal status transition and read any
// order; everyone else is limited to their own orders.
const RoleAdmin = "admin"

// Principal is the authenticated caller as seen by the order engine,
// extracted from the identity provider's token claims
type Principal struct {
	UserID uuid.UUID
	Role   string
}

// IsAdmin reports whether the principal has the administration role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// OrderService exposes order reads and the role-gated status machine
type OrderService interface {
	GetOrder(ctx context.Context, id uuid.UUID, principal Principal) (*domain.Order, error)
	ListOrders(ctx context.Context, principal Principal) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, target domain.OrderStatus, principal Principal) (*domain.Order, error)
}

type orderService struct {
	orders repository.OrderRepository
	logger *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orders repository.OrderRepository, logger *zap.Logger) OrderService {
	return &orderService{orders: orders, logger: logger}
}

// GetOrder returns one order, visible only to its owner or an admin
func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID, principal Principal) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.UserID != principal.UserID && !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	return order, nil
}

// ListOrders returns the principal's own order history
func (s *orderService) ListOrders(ctx context.Context, principal Principal) ([]*domain.Order, error) {
	return s.orders.ListByUser(ctx, principal.UserID)
}

// UpdateStatus drives one step of the status machine. Admins may perform
// any transition the table allows; the owning customer may only cancel
// while the order is still pending. Cancelling out of pending/processing
// restores every product line's stock in the same transaction.
func (s *orderService) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	target domain.OrderStatus,
	principal Principal,
) (*domain.Order, error) {
	if !target.IsValid() {
		return nil, domain.ErrInvalidTransition
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !principal.IsAdmin() {
		// Customers get exactly one move: cancel their own pending order.
		if order.UserID != principal.UserID ||
			target != domain.OrderStatusCancelled ||
			order.Status != domain.OrderStatusPending {
			return nil, domain.ErrForbidden
		}
	}

	if !order.Status.CanTransitionTo(target) {
		return nil, domain.ErrInvalidTransition
	}

	restoreStock := target == domain.OrderStatusCancelled &&
		(order.Status == domain.OrderStatusPending || order.Status == domain.OrderStatusProcessing)

	// Compare-and-set against the status we authorized: if a concurrent
	// transition got there first the repository reports ErrInvalidTransition
	// and no stock is restored.
	if err := s.orders.UpdateStatus(ctx, id, order.Status, target, restoreStock); err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", id.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(target)),
		zap.Bool("stock_restored", restoreStock),
	)

	order.Status = target
	return order, nil
}
