package lifecycle

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/btree"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
	"github.com/shopspring/decimal"
)

type expiryEntry struct {
	at       time.Time
	sequence uint64
	orderID  string
}

func lessExpiry(a, b expiryEntry) bool {
	if !a.at.Equal(b.at) {
		return a.at.Before(b.at)
	}
	return a.sequence < b.sequence
}

// Manager owns the order arena of one instrument and enforces the order state machine.
// It is not safe for concurrent use; the instrument sequencer guards it.
type Manager struct {
	instrumentID string
	orders       map[string]*orderv1.Order
	expiring     *btree.BTreeG[expiryEntry]
	sequence     uint64
}

// NewManager creates an empty manager for instrumentID.
func NewManager(instrumentID string) *Manager {
	return &Manager{
		instrumentID: instrumentID,
		orders:       make(map[string]*orderv1.Order),
		expiring:     btree.NewG(32, lessExpiry),
	}
}

// New builds a PENDING order from req. The order is not tracked until Admit.
func (m *Manager) New(req orderv1.PlaceOrderRequest, orderType orderv1.Type, now time.Time) *orderv1.Order {
	tif := req.TimeInForce
	if orderType == orderv1.TypeMarket && tif == "" {
		tif = orderv1.IOC
	}

	price := req.Price
	if orderType != orderv1.TypeLimit {
		price = decimal.Zero
	}

	return &orderv1.Order{
		ID:                util.NewID(),
		InstrumentID:      m.instrumentID,
		Owner:             req.Owner,
		Side:              req.Side,
		Type:              orderType,
		Quantity:          req.Quantity,
		Price:             price,
		FilledQuantity:    decimal.Zero,
		RemainingQuantity: req.Quantity,
		TimeInForce:       tif,
		ExpiresAt:         req.ExpiresAt,
		Status:            orderv1.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
		ClientRef:         req.ClientRef,
		Reserved:          decimal.Zero,
	}
}

// Admit assigns the next arrival sequence and starts tracking the order.
func (m *Manager) Admit(o *orderv1.Order) error {
	if o.InstrumentID != m.instrumentID {
		return fmt.Errorf("order %s belongs to %s, not %s", o.ID, o.InstrumentID, m.instrumentID)
	}
	if _, ok := m.orders[o.ID]; ok {
		return errors.NewStateError(errors.ErrInvalidTransition, fmt.Sprintf("order %s already admitted", o.ID))
	}
	if o.Status != orderv1.StatusPending {
		return errors.NewStateError(errors.ErrInvalidTransition, fmt.Sprintf("order %s must be admitted as PENDING", o.ID))
	}

	m.sequence++
	o.Sequence = m.sequence
	m.track(o)
	return nil
}

func (m *Manager) track(o *orderv1.Order) {
	m.orders[o.ID] = o
	if o.IsOpen() && !o.ExpiresAt.IsZero() {
		m.expiring.ReplaceOrInsert(expiryEntry{at: o.ExpiresAt, sequence: o.Sequence, orderID: o.ID})
	}
}

func (m *Manager) untrackExpiry(o *orderv1.Order) {
	if !o.ExpiresAt.IsZero() {
		m.expiring.Delete(expiryEntry{at: o.ExpiresAt, sequence: o.Sequence, orderID: o.ID})
	}
}

// Fill applies an execution of qty to the order.
func (m *Manager) Fill(o *orderv1.Order, qty decimal.Decimal, now time.Time) error {
	if err := o.ApplyFill(qty, now); err != nil {
		return err
	}
	if o.Status.IsTerminal() {
		m.untrackExpiry(o)
	}
	return nil
}

// Cancel moves an open order to CANCELLED.
func (m *Manager) Cancel(o *orderv1.Order, now time.Time) error {
	if err := o.Transition(orderv1.StatusCancelled, now); err != nil {
		return err
	}
	m.untrackExpiry(o)
	return nil
}

// Close stops an open order from executing again while it keeps its status.
func (m *Manager) Close(o *orderv1.Order, now time.Time) error {
	if err := o.Close(now); err != nil {
		return err
	}
	m.untrackExpiry(o)
	return nil
}

// Expire moves an open order to EXPIRED.
func (m *Manager) Expire(o *orderv1.Order, now time.Time) error {
	if err := o.Transition(orderv1.StatusExpired, now); err != nil {
		return err
	}
	m.untrackExpiry(o)
	return nil
}

// Get returns the live order. Callers must not mutate it outside the manager.
func (m *Manager) Get(orderID string) (*orderv1.Order, bool) {
	o, ok := m.orders[orderID]
	return o, ok
}

// Open returns the open orders in arrival order.
func (m *Manager) Open() []*orderv1.Order {
	open := make([]*orderv1.Order, 0)
	for _, o := range m.orders {
		if o.IsOpen() {
			open = append(open, o)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Sequence < open[j].Sequence })
	return open
}

// Due returns the open orders whose expiry is at or before now, earliest first.
func (m *Manager) Due(now time.Time) []*orderv1.Order {
	var due []*orderv1.Order
	m.expiring.Ascend(func(e expiryEntry) bool {
		if e.at.After(now) {
			return false
		}
		if o, ok := m.orders[e.orderID]; ok && o.IsOpen() {
			due = append(due, o)
		}
		return true
	})
	return due
}

// Sequence returns the last assigned arrival sequence.
func (m *Manager) Sequence() uint64 {
	return m.sequence
}

// Len returns the number of orders ever admitted.
func (m *Manager) Len() int {
	return len(m.orders)
}

// Restore reloads open orders from a snapshot together with the sequence counter.
func (m *Manager) Restore(orders []*orderv1.Order, sequence uint64) {
	m.orders = make(map[string]*orderv1.Order, len(orders))
	m.expiring = btree.NewG(32, lessExpiry)
	m.sequence = sequence
	for _, o := range orders {
		if o.Sequence > m.sequence {
			m.sequence = o.Sequence
		}
		m.track(o)
	}
}
