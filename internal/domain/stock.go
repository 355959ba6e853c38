package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Shortfall reports one cart line that cannot be satisfied from current stock.
// Inactive or missing items are reported with Available 0.
type Shortfall struct {
	ItemID    uuid.UUID `json:"item_id"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// StockCheckResult is the verdict of a stock validation pass
type StockCheckResult struct {
	OK         bool        `json:"ok"`
	Shortfalls []Shortfall `json:"shortfalls,omitempty"`
}

// StockShortfallError is returned when an order commit loses the race for
// stock. It carries the same per-line detail as the advisory check so both
// surface identically to clients.
type StockShortfallError struct {
	Shortfalls []Shortfall
}

func (e *StockShortfallError) Error() string {
	return fmt.Sprintf("insufficient stock for %d item(s)", len(e.Shortfalls))
}

// Result converts the error into the stock-check verdict shape
func (e *StockShortfallError) Result() StockCheckResult {
	return StockCheckResult{OK: false, Shortfalls: e.Shortfalls}
}
