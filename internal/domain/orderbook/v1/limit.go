package orderbookv1

import (
	"container/list"
	"fmt"

	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/shopspring/decimal"
)

// Limit represents a price level in the order book: a FIFO queue of resting orders at one price.
type Limit struct {
	Price       decimal.Decimal
	TotalVolume decimal.Decimal

	orders *list.List
	index  map[string]*list.Element
}

// NewLimit creates a new Limit with the specified price.
func NewLimit(price decimal.Decimal) *Limit {
	return &Limit{
		Price:       price,
		TotalVolume: decimal.Zero,
		orders:      list.New(),
		index:       make(map[string]*list.Element),
	}
}

// AddOrder appends an order to the back of the queue and updates the total volume.
func (l *Limit) AddOrder(order *orderv1.Order) error {
	if order == nil {
		return errors.NewValidationError(errors.GeneralBadRequestError, "order cannot be nil", "order")
	}
	if !order.RemainingQuantity.IsPositive() {
		return errors.NewValidationError(errors.ErrInvalidOrderSize,
			fmt.Sprintf("order %s has no remaining quantity", order.ID), "remainingQuantity")
	}
	if !order.Price.Equal(l.Price) {
		return errors.NewValidationError(errors.ErrInvalidPrice,
			fmt.Sprintf("order price %s does not match level %s", order.Price, l.Price), "price")
	}
	if _, ok := l.index[order.ID]; ok {
		return errors.NewStateError(errors.ErrInvalidTransition, fmt.Sprintf("order %s already rests at %s", order.ID, l.Price))
	}

	l.index[order.ID] = l.orders.PushBack(order)
	l.TotalVolume = l.TotalVolume.Add(order.RemainingQuantity)
	return nil
}

// RemoveOrder unlinks an order from the queue in O(1).
func (l *Limit) RemoveOrder(orderID string) (*orderv1.Order, error) {
	el, ok := l.index[orderID]
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrOrderNotFound, fmt.Sprintf("order %s not found at level %s", orderID, l.Price))
	}

	order := l.orders.Remove(el).(*orderv1.Order)
	delete(l.index, orderID)
	l.TotalVolume = decimal.Max(l.TotalVolume.Sub(order.RemainingQuantity), decimal.Zero)
	return order, nil
}

// Reduce lowers the level volume after a resting order was partially filled.
func (l *Limit) Reduce(qty decimal.Decimal) {
	l.TotalVolume = decimal.Max(l.TotalVolume.Sub(qty), decimal.Zero)
}

// Contains reports whether orderID rests at this level.
func (l *Limit) Contains(orderID string) bool {
	_, ok := l.index[orderID]
	return ok
}

// Front returns the oldest order at this level.
func (l *Limit) Front() *orderv1.Order {
	if el := l.orders.Front(); el != nil {
		return el.Value.(*orderv1.Order)
	}
	return nil
}

// Each visits orders in time priority until fn returns false.
func (l *Limit) Each(fn func(*orderv1.Order) bool) {
	for el := l.orders.Front(); el != nil; el = el.Next() {
		if !fn(el.Value.(*orderv1.Order)) {
			return
		}
	}
}

// Orders returns the resting orders in time priority.
func (l *Limit) Orders() []*orderv1.Order {
	orders := make([]*orderv1.Order, 0, l.orders.Len())
	l.Each(func(o *orderv1.Order) bool {
		orders = append(orders, o)
		return true
	})
	return orders
}

// OrderCount returns the number of orders at this limit
func (l *Limit) OrderCount() int {
	return l.orders.Len()
}

// IsEmpty checks if the limit has no orders
func (l *Limit) IsEmpty() bool {
	return l.orders.Len() == 0
}

// Validate checks that the stored volume matches the queued orders.
func (l *Limit) Validate() error {
	if !l.Price.IsPositive() {
		return fmt.Errorf("limit price %s must be positive", l.Price)
	}

	calculated := decimal.Zero
	for el := l.orders.Front(); el != nil; el = el.Next() {
		order := el.Value.(*orderv1.Order)
		if !order.RemainingQuantity.IsPositive() {
			return fmt.Errorf("order %s rests with remaining %s", order.ID, order.RemainingQuantity)
		}
		calculated = calculated.Add(order.RemainingQuantity)
	}
	if !calculated.Equal(l.TotalVolume) {
		return fmt.Errorf("volume mismatch: calculated %s, stored %s", calculated, l.TotalVolume)
	}
	return nil
}
