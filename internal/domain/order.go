package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the closed set of states an order moves through
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrForbidden         = errors.New("principal not permitted to perform this transition")
)

// statusTransitions is the authoritative transition table. delivered and
// cancelled are terminal.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// IsValid reports whether the value is one of the known statuses
func (s OrderStatus) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are permitted
func (s OrderStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0 && s.IsValid()
}

// CanTransitionTo reports whether target is reachable from s in one step
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range statusTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// OrderLine is a frozen snapshot of one purchased item. Name and unit price
// are copies taken at commit time and never track later catalog changes.
type OrderLine struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	ItemID    uuid.UUID `json:"item_id" db:"item_id"`
	ItemType  ItemType  `json:"item_type" db:"item_type"`
	Name      string    `json:"name" db:"name"`
	UnitPrice float64   `json:"unit_price" db:"unit_price"`
	Quantity  int       `json:"quantity" db:"quantity"`
}

// OrderTotals holds the priced breakdown of an order.
// Invariant: Total = Subtotal + Tax + ShippingFee, fixed at creation.
type OrderTotals struct {
	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	ShippingFee float64 `json:"shipping_fee"`
	Total       float64 `json:"total"`
}

// ShippingInfo is the delivery snapshot embedded in an order
type ShippingInfo struct {
	Name       string `json:"name" db:"shipping_name" validate:"required"`
	Phone      string `json:"phone" db:"shipping_phone" validate:"required"`
	Address    string `json:"address" db:"shipping_address" validate:"required"`
	City       string `json:"city" db:"shipping_city" validate:"required"`
	PostalCode string `json:"postal_code" db:"shipping_postal_code" validate:"required"`
}

// Order is the immutable record of a completed purchase. Only Status ever
// changes after creation, and only through the transition table above.
type Order struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	UserID        uuid.UUID    `json:"user_id" db:"user_id"`
	Lines         []OrderLine  `json:"lines"`
	Totals        OrderTotals  `json:"totals"`
	PaymentMethod string       `json:"payment_method" db:"payment_method"`
	Shipping      ShippingInfo `json:"shipping"`
	Status        OrderStatus  `json:"status" db:"status"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}
