package service

import (
	"context"

	"glowmarket/internal/domain"
	"glowmarket/internal/repository"

	"github.com/google/uuid"
)

// StockValidator is the advisory pre-flight stock check. It is a pure read:
// the authoritative gate is the conditional decrement inside the order
// commit, so a passing verdict here can still lose the race at checkout.
type StockValidator interface {
	Check(ctx context.Context, lines []domain.CartLine) (domain.StockCheckResult, error)
}

type stockValidator struct {
	items repository.ItemRepository
}

// NewStockValidator creates a new instance of StockValidator
func NewStockValidator(items repository.ItemRepository) StockValidator {
	return &stockValidator{items: items}
}

// Check compares each requested quantity against current availability.
// Service lines pass as long as the item exists and is active; missing or
// inactive items count as zero availability for either type.
func (v *stockValidator) Check(ctx context.Context, lines []domain.CartLine) (domain.StockCheckResult, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ItemID)
	}

	items, err := v.items.FindByIDs(ctx, ids)
	if err != nil {
		return domain.StockCheckResult{}, err
	}

	shortfalls := []domain.Shortfall{}
	for _, line := range lines {
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
			continue
		}

		if !item.StockLimited() {
			continue
		}

		if item.Stock < line.Quantity {
			shortfalls = append(shortfalls, domain.Shortfall{
				ItemID:    line.ItemID,
				Name:      item.Name,
				Requested: line.Quantity,
				Available: item.Stock,
			})
		}
	}

	if len(shortfalls) > 0 {
		return domain.StockCheckResult{OK: false, Shortfalls: shortfalls}, nil
	}

	return domain.StockCheckResult{OK: true}, nil
}
