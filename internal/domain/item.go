package domain

import (
	"time"

	"github.com/google/uuid"
)

// ItemType distinguishes stock-bounded products from appointment-based services
type ItemType string

const (
	ItemTypeProduct ItemType = "product"
	ItemTypeService ItemType = "service"
)

// IsValid reports whether the value is one of the known item types
func (t ItemType) IsValid() bool {
	return t == ItemTypeProduct || t == ItemTypeService
}

// Item represents a sellable catalog entry: a product or a service.
// Stock is meaningful for products only; services are never stock-limited.
type Item struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Type        ItemType  `json:"item_type" db:"item_type"`
	Price       float64   `json:"price" db:"price"`
	Stock       int       `json:"stock" db:"stock"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// StockLimited reports whether checkout must decrement stock for this item
func (i *Item) StockLimited() bool {
	return i.Type == ItemTypeProduct
}
