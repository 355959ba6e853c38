package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"glowmarket/internal/domain"
	"glowmarket/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mock repositories for testing

type mockItemRepository struct {
	items map[uuid.UUID]*domain.Item
}

func newMockItemRepository() *mockItemRepository {
	return &mockItemRepository{items: make(map[uuid.UUID]*domain.Item)}
}

func (m *mockItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	item, exists := m.items[id]
	if !exists {
		return nil, repository.ErrItemNotFound
	}
	return item, nil
}

func (m *mockItemRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Item, error) {
	result := make(map[uuid.UUID]*domain.Item)
	for _, id := range ids {
		if item, exists := m.items[id]; exists {
			result[id] = item
		}
	}
	return result, nil
}

type mockCartRepository struct {
	lines         map[uuid.UUID][]domain.CartLine
	cleared       map[uuid.UUID]bool
	clearFailures int
	clearCalls    int
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{
		lines:   make(map[uuid.UUID][]domain.CartLine),
		cleared: make(map[uuid.UUID]bool),
	}
}

func (m *mockCartRepository) AddLine(ctx context.Context, line *domain.CartLine) error {
	m.lines[line.UserID] = append(m.lines[line.UserID], *line)
	return nil
}

func (m *mockCartRepository) SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	return nil
}

func (m *mockCartRepository) RemoveLine(ctx context.Context, userID, itemID uuid.UUID) error {
	return nil
}

func (m *mockCartRepository) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return &domain.Cart{UserID: userID, Lines: m.lines[userID]}, nil
}

func (m *mockCartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	m.clearCalls++
	if m.clearFailures > 0 {
		m.clearFailures--
		return errors.New("clear failed")
	}
	m.lines[userID] = nil
	m.cleared[userID] = true
	return nil
}

// mockOrderRepository mimics the real repository's all-or-nothing commit:
// conditional decrements against the shared item map, rolled back entirely
// when any line falls short.
type mockOrderRepository struct {
	items        *mockItemRepository
	created      []*domain.Order
	failEvery    bool
	beforeUpdate func()
}

func newMockOrderRepository(items *mockItemRepository) *mockOrderRepository {
	return &mockOrderRepository{items: items}
}

func (m *mockOrderRepository) CreateOrders(ctx context.Context, orders []*domain.Order) error {
	if m.failEvery {
		return errors.New("storage failure")
	}

	var shortfalls []domain.Shortfall
	for _, order := range orders {
		for _, line := range order.Lines {
			if line.ItemType != domain.ItemTypeProduct {
				continue
			}
			item := m.items.items[line.ItemID]
			if item == nil || !item.Active || item.Stock < line.Quantity {
				available := 0
				name := line.Name
				if item != nil && item.Active {
					available = item.Stock
					name = item.Name
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
		for _, line := range order.Lines {
			if line.ItemType == domain.ItemTypeProduct {
				m.items.items[line.ItemID].Stock -= line.Quantity
			}
		}
		m.created = append(m.created, order)
	}
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	for _, order := range m.created {
		if order.ID == id {
			return order, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	var orders []*domain.Order
	for _, order := range m.created {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, restoreStock bool) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	order, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if order.Status != from {
		return domain.ErrInvalidTransition
	}
	order.Status = to
	if restoreStock {
		for _, line := range order.Lines {
			if line.ItemType == domain.ItemTypeProduct {
				m.items.items[line.ItemID].Stock += line.Quantity
			}
		}
	}
	return nil
}

func newCheckoutFixture(grouping GroupingStrategy) (*mockItemRepository, *mockCartRepository, *mockOrderRepository, CheckoutService) {
	items := newMockItemRepository()
	carts := newMockCartRepository()
	orders := newMockOrderRepository(items)
	pricing := NewPricingEngine(0.18, 0)
	validator := NewStockValidator(items)
	factory := NewOrderFactory(items, orders, pricing, grouping)
	checkout := NewCheckoutService(carts, validator, factory, zap.NewNop())
	return items, carts, orders, checkout
}

func addItem(items *mockItemRepository, itemType domain.ItemType, price float64, stock int) *domain.Item {
	item := &domain.Item{
		ID:        uuid.New(),
		Name:      "Rosewater Serum",
		Type:      itemType,
		Price:     price,
		Stock:     stock,
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	items.items[item.ID] = item
	return item
}

func addCartLine(carts *mockCartRepository, userID uuid.UUID, item *domain.Item, quantity int) {
	carts.lines[userID] = append(carts.lines[userID], domain.CartLine{
		UserID:    userID,
		ItemID:    item.ID,
		ItemType:  item.Type,
		UnitPrice: item.Price,
		Quantity:  quantity,
	})
}

var testShipping = domain.ShippingInfo{
	Name:       "Dana Patel",
	Phone:      "555-0134",
	Address:    "12 Orchid Way",
	City:       "Springfield",
	PostalCode: "12345",
}

func TestCheckoutSucceedsAndDecrementsStock(t *testing.T) {
	items, carts, orders, checkout := newCheckoutFixture(nil)
	userID := uuid.New()

	product := addItem(items, domain.ItemTypeProduct, 20.00, 5)
	addCartLine(carts, userID, product, 3)

	orderIDs, err := checkout.Checkout(context.Background(), userID, testShipping, "card")
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}

	if len(orderIDs) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orderIDs))
	}
	if product.Stock != 2 {
		t.Errorf("stock = %d, want 2", product.Stock)
	}
	if !carts.cleared[userID] {
		t.Error("cart was not cleared after successful checkout")
	}
	if len(carts.lines[userID]) != 0 {
		t.Error("cart still has lines after successful checkout")
	}

	order := orders.created[0]
	if order.Status != domain.OrderStatusPending {
		t.Errorf("order status = %s, want pending", order.Status)
	}
	if order.Totals.Subtotal != 60.00 {
		t.Errorf("subtotal = %v, want 60.00", order.Totals.Subtotal)
	}
	if order.Totals.Total != 70.80 {
		t.Errorf("total = %v, want 70.80", order.Totals.Total)
	}
}

func TestCheckoutReportsShortfallAndChangesNothing(t *testing.T) {
	items, carts, _, checkout := newCheckoutFixture(nil)
	userID := uuid.New()

	product := addItem(items, domain.ItemTypeProduct, 20.00, 2)
	addCartLine(carts, userID, product, 3)

	// The advisory check and checkout report the same shortfall
	verdict, err := checkout.StockCheck(context.Background(), userID)
	if err != nil {
		t.Fatalf("StockCheck returned error: %v", err)
	}
	if verdict.OK {
		t.Fatal("expected stock check to fail")
	}

	_, err = checkout.Checkout(context.Background(), userID, testShipping, "card")
	var shortfall *domain.StockShortfallError
	if !errors.As(err, &shortfall) {
		t.Fatalf("expected StockShortfallError, got %v", err)
	}

	if len(shortfall.Shortfalls) != 1 {
		t.Fatalf("expected 1 shortfall, got %d", len(shortfall.Shortfalls))
	}
	got := shortfall.Shortfalls[0]
	if got.ItemID != product.ID || got.Requested != 3 || got.Available != 2 {
		t.Errorf("shortfall = %+v, want requested 3 available 2 for %s", got, product.ID)
	}

	if product.Stock != 2 {
		t.Errorf("stock changed on failed checkout: %d", product.Stock)
	}
	if carts.cleared[userID] {
		t.Error("cart was cleared on failed checkout")
	}
	if len(carts.lines[userID]) != 1 {
		t.Error("cart lines changed on failed checkout")
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	_, _, _, checkout := newCheckoutFixture(nil)

	_, err := checkout.Checkout(context.Background(), uuid.New(), testShipping, "card")
	if !errors.Is(err, ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got %v", err)
	}

	_, err = checkout.StockCheck(context.Background(), uuid.New())
	if !errors.Is(err, ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart from stock check, got %v", err)
	}
}

func TestCheckoutUsesCurrentCatalogPrice(t *testing.T) {
	items, carts, orders, checkout := newCheckoutFixture(nil)
	userID := uuid.New()

	product := addItem(items, domain.ItemTypeProduct, 10.00, 10)
	addCartLine(carts, userID, product, 1)

	// Price raised after the item went into the cart; the cart's cached
	// snapshot must not win.
	product.Price = 15.00

	_, err := checkout.Checkout(context.Background(), userID, testShipping, "card")
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}

	order := orders.created[0]
	if order.Lines[0].UnitPrice != 15.00 {
		t.Errorf("order line price = %v, want current catalog price 15.00", order.Lines[0].UnitPrice)
	}
	if order.Totals.Subtotal != 15.00 {
		t.Errorf("subtotal = %v, want 15.00", order.Totals.Subtotal)
	}
}

func TestCheckoutServiceLinesAreNotStockLimited(t *testing.T) {
	items, carts, orders, checkout := newCheckoutFixture(nil)
	userID := uuid.New()

	svc := addItem(items, domain.ItemTypeService, 80.00, 0)
	addCartLine(carts, userID, svc, 2)

	orderIDs, err := checkout.Checkout(context.Background(), userID, testShipping, "wallet")
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}
	if len(orderIDs) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orderIDs))
	}
	if orders.created[0].Totals.Subtotal != 160.00 {
		t.Errorf("subtotal = %v, want 160.00", orders.created[0].Totals.Subtotal)
	}
}

func TestCheckoutInactiveItemFailsAsShortfall(t *testing.T) {
	items, carts, _, checkout := newCheckoutFixture(nil)
	userID := uuid.New()

	product := addItem(items, domain.ItemTypeProduct, 20.00, 5)
	addCartLine(carts, userID, product, 1)
	product.Active = false

	_, err := checkout.Checkout(context.Background(), userID, testShipping, "card")
	var shortfall *domain.StockShortfallError
	if !errors.As(err, &shortfall) {
		t.Fatalf("expected StockShortfallError, got %v", err)
	}
	if shortfall.Shortfalls[0].Available != 0 {
		t.Errorf("inactive item available = %d, want 0", shortfall.Shortfalls[0].Available)
	}
}

func TestCheckoutStorageFailureLeavesCartIntact(t *testing.T) {
	items, carts, orders, checkout := newCheckoutFixture(nil)
	userID := uuid.New()

	product := addItem(items, domain.ItemTypeProduct, 20.00, 5)
	addCartLine(carts, userID, product, 1)
	orders.failEvery = true

	_, err := checkout.Checkout(context.Background(), userID, testShipping, "card")
	if err == nil {
		t.Fatal("expected storage failure")
	}
	if carts.cleared[userID] {
		t.Error("cart was cleared despite storage failure")
	}
	if product.Stock != 5 {
		t.Errorf("stock changed despite storage failure: %d", product.Stock)
	}
}

func TestCheckoutRetriesTransientClearFailure(t *testing.T) {
	items, carts, _, checkout := newCheckoutFixture(nil)
	userID := uuid.New()

	product := addItem(items, domain.ItemTypeProduct, 20.00, 5)
	addCartLine(carts, userID, product, 1)
	carts.clearFailures = 2

	orderIDs, err := checkout.Checkout(context.Background(), userID, testShipping, "card")
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}
	if len(orderIDs) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orderIDs))
	}
	if !carts.cleared[userID] {
		t.Error("cart not cleared after transient clear failure")
	}
	if carts.clearCalls != 3 {
		t.Errorf("clear calls = %d, want 3 (two failures, one success)", carts.clearCalls)
	}
}

func TestCheckoutSucceedsWhenClearKeepsFailing(t *testing.T) {
	items, carts, orders, checkout := newCheckoutFixture(nil)
	userID := uuid.New()

	product := addItem(items, domain.ItemTypeProduct, 20.00, 5)
	addCartLine(carts, userID, product, 1)
	carts.clearFailures = 10

	orderIDs, err := checkout.Checkout(context.Background(), userID, testShipping, "card")
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}
	if len(orderIDs) != 1 || len(orders.created) != 1 {
		t.Fatal("orders are committed before the clear, the clear must not undo them")
	}
	if carts.cleared[userID] {
		t.Error("cart reported cleared despite failing clears")
	}
}

func TestCheckoutGroupingByTypeSplitsOrders(t *testing.T) {
	items, carts, orders, checkout := newCheckoutFixture(GroupByItemType)
	userID := uuid.New()

	product := addItem(items, domain.ItemTypeProduct, 25.00, 4)
	svc := addItem(items, domain.ItemTypeService, 60.00, 0)
	addCartLine(carts, userID, product, 1)
	addCartLine(carts, userID, svc, 1)

	orderIDs, err := checkout.Checkout(context.Background(), userID, testShipping, "cod")
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}

	if len(orderIDs) != 2 {
		t.Fatalf("expected 2 orders with by_type grouping, got %d", len(orderIDs))
	}
	if len(orders.created) != 2 {
		t.Fatalf("expected 2 persisted orders, got %d", len(orders.created))
	}
	for _, order := range orders.created {
		if len(order.Lines) != 1 {
			t.Errorf("expected 1 line per grouped order, got %d", len(order.Lines))
		}
	}
}
