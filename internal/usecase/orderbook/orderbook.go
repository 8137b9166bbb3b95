package orderbook

import (
	"fmt"

	orderbookv1 "github.com/muhammadchandra19/exchange-core/internal/domain/orderbook/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

// Orderbook keeps the resting orders of one instrument, each side as an ordered set of price levels.
// It is not safe for concurrent use; the instrument sequencer guards it.
type Orderbook struct {
	InstrumentID string

	bids   *btree.BTreeG[*orderbookv1.Limit]
	asks   *btree.BTreeG[*orderbookv1.Limit]
	orders map[string]*orderv1.Order

	bidVolume decimal.Decimal
	askVolume decimal.Decimal
}

// NewOrderbook creates a new orderbook
func NewOrderbook(instrumentID string) *Orderbook {
	opts := btree.Options{NoLocks: true}
	return &Orderbook{
		InstrumentID: instrumentID,
		// best bid first
		bids: btree.NewBTreeGOptions(func(a, b *orderbookv1.Limit) bool {
			return a.Price.GreaterThan(b.Price)
		}, opts),
		// best ask first
		asks: btree.NewBTreeGOptions(func(a, b *orderbookv1.Limit) bool {
			return a.Price.LessThan(b.Price)
		}, opts),
		orders:    make(map[string]*orderv1.Order),
		bidVolume: decimal.Zero,
		askVolume: decimal.Zero,
	}
}

func (ob *Orderbook) side(side orderv1.Side) *btree.BTreeG[*orderbookv1.Limit] {
	if side == orderv1.SideBuy {
		return ob.bids
	}
	return ob.asks
}

func (ob *Orderbook) addVolume(side orderv1.Side, qty decimal.Decimal) {
	if side == orderv1.SideBuy {
		ob.bidVolume = ob.bidVolume.Add(qty)
		return
	}
	ob.askVolume = ob.askVolume.Add(qty)
}

// Add rests an order at the back of its price level.
func (ob *Orderbook) Add(order *orderv1.Order) error {
	if order == nil {
		return errors.NewValidationError(errors.GeneralBadRequestError, "order cannot be nil", "order")
	}
	if order.ID == "" {
		return errors.NewValidationError(errors.GeneralBadRequestError, "order ID cannot be empty", "id")
	}
	if !order.Price.IsPositive() {
		return errors.NewValidationError(errors.ErrInvalidPrice, "resting price must be positive", "price")
	}
	if _, exists := ob.orders[order.ID]; exists {
		return errors.NewStateError(errors.ErrInvalidTransition, fmt.Sprintf("order with ID %s already exists", order.ID))
	}

	tree := ob.side(order.Side)
	limit, ok := tree.Get(&orderbookv1.Limit{Price: order.Price})
	if !ok {
		limit = orderbookv1.NewLimit(order.Price)
		tree.Set(limit)
	}
	if err := limit.AddOrder(order); err != nil {
		if limit.IsEmpty() {
			tree.Delete(limit)
		}
		return err
	}

	ob.orders[order.ID] = order
	ob.addVolume(order.Side, order.RemainingQuantity)
	return nil
}

// Remove takes an order out of the book.
func (ob *Orderbook) Remove(orderID string) (*orderv1.Order, error) {
	order, ok := ob.orders[orderID]
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrOrderNotFound, fmt.Sprintf("order %s is not in the book", orderID))
	}

	tree := ob.side(order.Side)
	limit, ok := tree.Get(&orderbookv1.Limit{Price: order.Price})
	if !ok {
		return nil, fmt.Errorf("order %s indexed without price level %s", orderID, order.Price)
	}
	if _, err := limit.RemoveOrder(orderID); err != nil {
		return nil, err
	}
	if limit.IsEmpty() {
		tree.Delete(limit)
	}

	delete(ob.orders, orderID)
	ob.addVolume(order.Side, order.RemainingQuantity.Neg())
	return order, nil
}

// Reduce accounts for qty executed against a resting order whose remaining
// quantity was already lowered, removing it once nothing is left.
func (ob *Orderbook) Reduce(orderID string, qty decimal.Decimal) error {
	order, ok := ob.orders[orderID]
	if !ok {
		return errors.NewNotFoundError(errors.ErrOrderNotFound, fmt.Sprintf("order %s is not in the book", orderID))
	}

	tree := ob.side(order.Side)
	limit, ok := tree.Get(&orderbookv1.Limit{Price: order.Price})
	if !ok {
		return fmt.Errorf("order %s indexed without price level %s", orderID, order.Price)
	}

	limit.Reduce(qty)
	ob.addVolume(order.Side, qty.Neg())

	if order.RemainingQuantity.IsPositive() {
		return nil
	}
	if _, err := limit.RemoveOrder(orderID); err != nil {
		return err
	}
	if limit.IsEmpty() {
		tree.Delete(limit)
	}
	delete(ob.orders, orderID)
	return nil
}

// Contains reports whether the order rests in the book.
func (ob *Orderbook) Contains(orderID string) bool {
	_, ok := ob.orders[orderID]
	return ok
}

// Best returns the best price level of side.
func (ob *Orderbook) Best(side orderv1.Side) (*orderbookv1.Limit, bool) {
	return ob.side(side).Min()
}

// Walk visits the levels of side best-first until fn returns false.
func (ob *Orderbook) Walk(side orderv1.Side, fn func(*orderbookv1.Limit) bool) {
	ob.side(side).Scan(fn)
}

// Depth aggregates up to levels price levels per side. Zero or less means all.
func (ob *Orderbook) Depth(levels int) orderbookv1.Depth {
	return orderbookv1.Depth{
		InstrumentID: ob.InstrumentID,
		Bids:         depthOf(ob.bids, levels),
		Asks:         depthOf(ob.asks, levels),
	}
}

func depthOf(tree *btree.BTreeG[*orderbookv1.Limit], levels int) []orderbookv1.DepthLevel {
	out := make([]orderbookv1.DepthLevel, 0)
	tree.Scan(func(l *orderbookv1.Limit) bool {
		if levels > 0 && len(out) >= levels {
			return false
		}
		out = append(out, orderbookv1.DepthLevel{
			Price:      l.Price,
			Quantity:   l.TotalVolume,
			OrderCount: l.OrderCount(),
		})
		return true
	})
	return out
}

// Orders returns every resting order, bids then asks, each in price-time priority.
func (ob *Orderbook) Orders() []*orderv1.Order {
	orders := make([]*orderv1.Order, 0, len(ob.orders))
	collect := func(l *orderbookv1.Limit) bool {
		orders = append(orders, l.Orders()...)
		return true
	}
	ob.bids.Scan(collect)
	ob.asks.Scan(collect)
	return orders
}

// Len returns the number of resting orders.
func (ob *Orderbook) Len() int {
	return len(ob.orders)
}

// BidTotalVolume returns the resting buy quantity.
func (ob *Orderbook) BidTotalVolume() decimal.Decimal {
	return ob.bidVolume
}

// AskTotalVolume returns the resting sell quantity.
func (ob *Orderbook) AskTotalVolume() decimal.Decimal {
	return ob.askVolume
}

// Validate checks every level and the side totals.
func (ob *Orderbook) Validate() error {
	for _, side := range []orderv1.Side{orderv1.SideBuy, orderv1.SideSell} {
		total := decimal.Zero
		var err error
		ob.side(side).Scan(func(l *orderbookv1.Limit) bool {
			if err = l.Validate(); err != nil {
				return false
			}
			if l.IsEmpty() {
				err = fmt.Errorf("empty level %s left in the book", l.Price)
				return false
			}
			total = total.Add(l.TotalVolume)
			return true
		})
		if err != nil {
			return err
		}

		expected := ob.askVolume
		if side == orderv1.SideBuy {
			expected = ob.bidVolume
		}
		if !total.Equal(expected) {
			return fmt.Errorf("%s volume mismatch: levels %s, stored %s", side, total, expected)
		}
	}
	return nil
}

var _ orderbookv1.Orderbook = (*Orderbook)(nil)
