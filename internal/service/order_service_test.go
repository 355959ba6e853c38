package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"glowmarket/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func seedOrder(orders *mockOrderRepository, items *mockItemRepository, userID uuid.UUID, status domain.OrderStatus, qty int) (*domain.Order, *domain.Item) {
	item := addItem(items, domain.ItemTypeProduct, 30.00, 10)

	order := &domain.Order{
		ID:     uuid.New(),
		UserID: userID,
		Lines: []domain.OrderLine{{
			ID:        uuid.New(),
			ItemID:    item.ID,
			ItemType:  item.Type,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  qty,
		}},
		Status:    status,
		CreatedAt: time.Now(),
	}
	orders.created = append(orders.created, order)
	return order, item
}

func newOrderFixture() (*mockItemRepository, *mockOrderRepository, OrderService) {
	items := newMockItemRepository()
	orders := newMockOrderRepository(items)
	svc := NewOrderService(orders, zap.NewNop())
	return items, orders, svc
}

func TestCustomerCanCancelOwnPendingOrder(t *testing.T) {
	items, orders, svc := newOrderFixture()
	userID := uuid.New()
	order, item := seedOrder(orders, items, userID, domain.OrderStatusPending, 4)
	stockBefore := item.Stock

	updated, err := svc.UpdateStatus(context.Background(), order.ID, domain.OrderStatusCancelled,
		Principal{UserID: userID, Role: "user"})
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	if updated.Status != domain.OrderStatusCancelled {
		t.Errorf("status = %s, want cancelled", updated.Status)
	}
	if item.Stock != stockBefore+4 {
		t.Errorf("stock = %d, want %d (cancellation must restore quantity)", item.Stock, stockBefore+4)
	}
}

func TestCancelLosesRaceToCompetingTransition(t *testing.T) {
	items, orders, svc := newOrderFixture()
	userID := uuid.New()
	order, item := seedOrder(orders, items, userID, domain.OrderStatusPending, 4)
	stockBefore := item.Stock

	// A competing transition lands between the service's read and the
	// repository write; the conditional write must reject the stale cancel.
	orders.beforeUpdate = func() {
		orders.beforeUpdate = nil
		order.Status = domain.OrderStatusShipped
	}

	_, err := svc.UpdateStatus(context.Background(), order.ID, domain.OrderStatusCancelled,
		Principal{UserID: userID, Role: "user"})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if item.Stock != stockBefore {
		t.Errorf("stock = %d, want %d (a rejected cancel must not restore stock)", item.Stock, stockBefore)
	}
	if order.Status != domain.OrderStatusShipped {
		t.Errorf("status = %s, want shipped", order.Status)
	}
}

func TestCustomerCannotCancelProcessingOrder(t *testing.T) {
	items, orders, svc := newOrderFixture()
	userID := uuid.New()
	order, _ := seedOrder(orders, items, userID, domain.OrderStatusProcessing, 1)

	_, err := svc.UpdateStatus(context.Background(), order.ID, domain.OrderStatusCancelled,
		Principal{UserID: userID, Role: "user"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestCustomerCannotTouchOthersOrders(t *testing.T) {
	items, orders, svc := newOrderFixture()
	order, _ := seedOrder(orders, items, uuid.New(), domain.OrderStatusPending, 1)

	_, err := svc.UpdateStatus(context.Background(), order.ID, domain.OrderStatusCancelled,
		Principal{UserID: uuid.New(), Role: "user"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	_, err = svc.GetOrder(context.Background(), order.ID, Principal{UserID: uuid.New(), Role: "user"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden from GetOrder, got %v", err)
	}
}

func TestAdminDrivesForwardTransitions(t *testing.T) {
	items, orders, svc := newOrderFixture()
	order, item := seedOrder(orders, items, uuid.New(), domain.OrderStatusPending, 2)
	admin := Principal{UserID: uuid.New(), Role: RoleAdmin}
	stockBefore := item.Stock

	for _, target := range []domain.OrderStatus{
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	} {
		updated, err := svc.UpdateStatus(context.Background(), order.ID, target, admin)
		if err != nil {
			t.Fatalf("UpdateStatus(%s) returned error: %v", target, err)
		}
		if updated.Status != target {
			t.Errorf("status = %s, want %s", updated.Status, target)
		}
	}

	if item.Stock != stockBefore {
		t.Errorf("forward transitions must not touch stock, stock = %d want %d", item.Stock, stockBefore)
	}
}

func TestShippedOrderRejectsCancellation(t *testing.T) {
	items, orders, svc := newOrderFixture()
	order, _ := seedOrder(orders, items, uuid.New(), domain.OrderStatusShipped, 1)
	admin := Principal{UserID: uuid.New(), Role: RoleAdmin}

	_, err := svc.UpdateStatus(context.Background(), order.ID, domain.OrderStatusCancelled, admin)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if order.Status != domain.OrderStatusShipped {
		t.Errorf("status changed on rejected transition: %s", order.Status)
	}
}

func TestTerminalStatusesRejectEverything(t *testing.T) {
	items, orders, svc := newOrderFixture()
	admin := Principal{UserID: uuid.New(), Role: RoleAdmin}

	for _, terminal := range []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCancelled} {
		order, _ := seedOrder(orders, items, uuid.New(), terminal, 1)
		for _, target := range []domain.OrderStatus{
			domain.OrderStatusPending,
			domain.OrderStatusProcessing,
			domain.OrderStatusShipped,
			domain.OrderStatusDelivered,
			domain.OrderStatusCancelled,
		} {
			if target == terminal {
				continue
			}
			if _, err := svc.UpdateStatus(context.Background(), order.ID, target, admin); !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", terminal, target, err)
			}
		}
	}
}

func TestAdminCancelFromProcessingRestoresStock(t *testing.T) {
	items, orders, svc := newOrderFixture()
	order, item := seedOrder(orders, items, uuid.New(), domain.OrderStatusProcessing, 3)
	admin := Principal{UserID: uuid.New(), Role: RoleAdmin}
	stockBefore := item.Stock

	if _, err := svc.UpdateStatus(context.Background(), order.ID, domain.OrderStatusCancelled, admin); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if item.Stock != stockBefore+3 {
		t.Errorf("stock = %d, want %d", item.Stock, stockBefore+3)
	}
}

func TestUnknownStatusIsInvalidTransition(t *testing.T) {
	items, orders, svc := newOrderFixture()
	order, _ := seedOrder(orders, items, uuid.New(), domain.OrderStatusPending, 1)
	admin := Principal{UserID: uuid.New(), Role: RoleAdmin}

	_, err := svc.UpdateStatus(context.Background(), order.ID, domain.OrderStatus("refunded"), admin)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestOwnerAndAdminCanReadOrder(t *testing.T) {
	items, orders, svc := newOrderFixture()
	userID := uuid.New()
	order, _ := seedOrder(orders, items, userID, domain.OrderStatusPending, 1)

	if _, err := svc.GetOrder(context.Background(), order.ID, Principal{UserID: userID, Role: "user"}); err != nil {
		t.Errorf("owner read failed: %v", err)
	}
	if _, err := svc.GetOrder(context.Background(), order.ID, Principal{UserID: uuid.New(), Role: RoleAdmin}); err != nil {
		t.Errorf("admin read failed: %v", err)
	}
}
