package orderbookv1

import (
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	"github.com/shopspring/decimal"
)

// Orderbook defines the resting side of one instrument's market.
// Implementations are not safe for concurrent use; callers hold the instrument sequencer.
type Orderbook interface {
	Add(order *orderv1.Order) error
	Remove(orderID string) (*orderv1.Order, error)
	Reduce(orderID string, qty decimal.Decimal) error
	Contains(orderID string) bool
	Best(side orderv1.Side) (*Limit, bool)
	Walk(side orderv1.Side, fn func(*Limit) bool)
	Depth(levels int) Depth
	Orders() []*orderv1.Order
	Len() int
	BidTotalVolume() decimal.Decimal
	AskTotalVolume() decimal.Decimal
}
