package service

import (
	"context"
	"time"

	"glowmarket/internal/domain"
	"glowmarket/internal/repository"

	"github.com/google/uuid"
)

// GroupingStrategy partitions a cart's lines into one or more orders.
// The default policy keeps the whole cart in a single order.
type GroupingStrategy func(lines []domain.CartLine) [][]domain.CartLine

// SingleOrder puts every cart line into one order
func SingleOrder(lines []domain.CartLine) [][]domain.CartLine {
	if len(lines) == 0 {
		return nil
	}
	return [][]domain.CartLine{lines}
}

// GroupByItemType splits product lines and service lines into separate
// orders, products first
func GroupByItemType(lines []domain.CartLine) [][]domain.CartLine {
	var products, services []domain.CartLine
	for _, line := range lines {
		if line.ItemType == domain.ItemTypeProduct {
			products = append(products, line)
		} else {
			services = append(services, line)
		}
	}

	groups := [][]domain.CartLine{}
	if len(products) > 0 {
		groups = append(groups, products)
	}
	if len(services) > 0 {
		groups = append(groups, services)
	}
	return groups
}

// GroupingStrategyByName resolves a configured grouping policy name.
// Unknown names fall back to single-order.
func GroupingStrategyByName(name string) GroupingStrategy {
	switch name {
	case "by_type":
		return GroupByItemType
	default:
		return SingleOrder
	}
}

// OrderFactory builds priced, immutable order aggregates from a validated
// cart and commits them together with their stock decrements. It re-reads
// catalog prices at commit time; the cart's captured prices are never
// trusted for money.
type OrderFactory struct {
	items    repository.ItemRepository
	orders   repository.OrderRepository
	pricing  *PricingEngine
	grouping GroupingStrategy
}

// NewOrderFactory creates a new OrderFactory
func NewOrderFactory(
	items repository.ItemRepository,
	orders repository.OrderRepository,
	pricing *PricingEngine,
	grouping GroupingStrategy,
) *OrderFactory {
	if grouping == nil {
		grouping = SingleOrder
	}
	return &OrderFactory{
		items:    items,
		orders:   orders,
		pricing:  pricing,
		grouping: grouping,
	}
}

// CreateFromCart partitions the cart per the grouping policy, prices each
// group from current catalog state, and commits all resulting orders with
// their stock decrements as one atomic unit. On a stock race the returned
// error is a *domain.StockShortfallError and nothing is persisted.
func (f *OrderFactory) CreateFromCart(
	ctx context.Context,
	cart *domain.Cart,
	shipping domain.ShippingInfo,
	paymentMethod string,
) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		ids = append(ids, line.ItemID)
	}

	items, err := f.items.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Catch items deactivated since the advisory check; surfaces in the
	// same shortfall shape so clients render one way.
	var shortfalls []domain.Shortfall
	for _, line := range cart.Lines {
		item, ok := items[line.ItemID]
		if !ok || !item.Active {
			name := ""
			if ok {
				name = item.Name
			}
			shortfalls = append(shortfalls, domain.Shortfall{
				ItemID:    line.ItemID,
				Name:      name,
				Requested: line.Quantity,
				Available: 0,
			})
		}
	}
	if len(shortfalls) > 0 {
		return nil, &domain.StockShortfallError{Shortfalls: shortfalls}
	}

	now := time.Now()
	orders := make([]*domain.Order, 0, 1)

	for _, group := range f.grouping(cart.Lines) {
		orderID := uuid.New()
		lines := make([]domain.OrderLine, 0, len(group))
		priced := make([]PricedLine, 0, len(group))

		for _, cartLine := range group {
			item := items[cartLine.ItemID]
			lines = append(lines, domain.OrderLine{
				ID:        uuid.New(),
				OrderID:   orderID,
				ItemID:    item.ID,
				ItemType:  item.Type,
				Name:      item.Name,
				UnitPrice: item.Price,
				Quantity:  cartLine.Quantity,
			})
			priced = append(priced, PricedLine{UnitPrice: item.Price, Quantity: cartLine.Quantity})
		}

		totals, err := f.pricing.Price(priced)
		if err != nil {
			return nil, err
		}

		orders = append(orders, &domain.Order{
			ID:            orderID,
			UserID:        cart.UserID,
			Lines:         lines,
			Totals:        totals,
			PaymentMethod: paymentMethod,
			Shipping:      shipping,
			Status:        domain.OrderStatusPending,
			CreatedAt:     now,
		})
	}

	if err := f.orders.CreateOrders(ctx, orders); err != nil {
		return nil, err
	}

	orderIDs := make([]uuid.UUID, len(orders))
	for i, order := range orders {
		orderIDs[i] = order.ID
	}

	return orderIDs, nil
}
