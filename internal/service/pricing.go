package service

import (
	"errors"
	"fmt"

	"glowmarket/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrInvalidUnitPrice = errors.New("unit price must be positive")
)

// PricedLine is the pricing engine's input: a current catalog price and a
// requested quantity. Callers must pass current prices, never the cart's
// cached snapshot.
type PricedLine struct {
	UnitPrice float64
	Quantity  int
}

// PricingEngine turns cart lines into an order total. It is a pure function
// of its inputs plus two configured values: the flat tax rate and the
// shipping fee (a pluggable amount, zero under the free-shipping policy).
type PricingEngine struct {
	taxRate     decimal.Decimal
	shippingFee decimal.Decimal
}

// NewPricingEngine creates a pricing engine with the configured tax rate
// (e.g. 0.18) and flat shipping fee
func NewPricingEngine(taxRate, shippingFee float64) *PricingEngine {
	return &PricingEngine{
		taxRate:     decimal.NewFromFloat(taxRate),
		shippingFee: decimal.NewFromFloat(shippingFee).Round(2),
	}
}

// Price computes {subtotal, tax, shipping, total} over the given lines.
// All arithmetic runs through decimal; the tax is rounded half-up to minor
// units exactly once, after which the total is an exact sum, so
// total == subtotal + tax + shipping holds to the cent.
func (p *PricingEngine) Price(lines []PricedLine) (domain.OrderTotals, error) {
	subtotal := decimal.Zero

	for i, line := range lines {
		if line.Quantity < 1 {
			return domain.OrderTotals{}, fmt.Errorf("line %d: %w", i, ErrInvalidQuantity)
		}
		if line.UnitPrice <= 0 {
			return domain.OrderTotals{}, fmt.Errorf("line %d: %w", i, ErrInvalidUnitPrice)
		}

		price := decimal.NewFromFloat(line.UnitPrice).Round(2)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	tax := subtotal.Mul(p.taxRate).Round(2)
	total := subtotal.Add(tax).Add(p.shippingFee)

	return domain.OrderTotals{
		Subtotal:    subtotal.InexactFloat64(),
		Tax:         tax.InexactFloat64(),
		ShippingFee: p.shippingFee.InexactFloat64(),
		Total:       total.InexactFloat64(),
	}, nil
}
