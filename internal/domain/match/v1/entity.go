package matchv1

import (
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	"github.com/shopspring/decimal"
)

// Fill is one planned execution against a resting order, at the resting order's price.
type Fill struct {
	Maker    *orderv1.Order
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// Notional returns quantity * price.
func (f Fill) Notional() decimal.Decimal {
	return f.Quantity.Mul(f.Price)
}

// Plan is the read-only outcome of walking the book for one incoming order.
// Nothing is mutated until the plan is committed.
type Plan struct {
	Fills []Fill
	// Expired holds resting orders found past their expiry while walking the book.
	Expired []*orderv1.Order
	// Bound is the worst price the walk was allowed to reach. Zero means unbounded.
	Bound    decimal.Decimal
	Filled   decimal.Decimal
	Notional decimal.Decimal
}

// NewPlan creates an empty plan.
func NewPlan() *Plan {
	return &Plan{
		Filled:   decimal.Zero,
		Notional: decimal.Zero,
		Bound:    decimal.Zero,
	}
}

// Add appends a fill and updates the totals.
func (p *Plan) Add(f Fill) {
	p.Fills = append(p.Fills, f)
	p.Filled = p.Filled.Add(f.Quantity)
	p.Notional = p.Notional.Add(f.Notional())
}

// IsEmpty reports whether the plan executes nothing.
func (p *Plan) IsEmpty() bool {
	return len(p.Fills) == 0
}

// Covers reports whether the plan fills qty completely.
func (p *Plan) Covers(qty decimal.Decimal) bool {
	return p.Filled.GreaterThanOrEqual(qty)
}
