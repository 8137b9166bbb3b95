package orderbookv1

import "github.com/shopspring/decimal"

// DepthLevel is the aggregated view of one price level.
type DepthLevel struct {
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	OrderCount int             `json:"orderCount"`
}

// Depth is a point-in-time copy of the top of both book sides.
type Depth struct {
	InstrumentID string       `json:"instrumentId"`
	Bids         []DepthLevel `json:"bids"`
	Asks         []DepthLevel `json:"asks"`
}
