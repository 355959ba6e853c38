package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one item selection in a principal's cart. UnitPrice is the
// price captured when the item was added; it is advisory for display only,
// checkout re-reads the catalog price before committing.
type CartLine struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ItemID    uuid.UUID `json:"item_id" db:"item_id"`
	ItemType  ItemType  `json:"item_type" db:"item_type"`
	UnitPrice float64   `json:"unit_price" db:"unit_price"`
	Quantity  int       `json:"quantity" db:"quantity"`
	AddedAt   time.Time `json:"added_at" db:"added_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Cart is the mutable pre-purchase state for one principal. At most one
// line exists per distinct item; re-adding accumulates quantity.
type Cart struct {
	UserID    uuid.UUID  `json:"user_id"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
