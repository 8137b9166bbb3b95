package market

import (
	"fmt"
	"sort"
	"sync"

	rfqv1 "github.com/muhammadchandra19/exchange-core/internal/domain/rfq/v1"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/lifecycle"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/orderbook"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
)

// Market is the live state of one instrument behind its sequencer.
// Mutations run inside Sequence, reads inside Read.
type Market struct {
	mu sync.RWMutex

	InstrumentID string
	Book         *orderbook.Orderbook
	Orders       *lifecycle.Manager
	RFQs         map[string]*rfqv1.RFQ

	halted error
}

// New creates an empty market for instrumentID.
func New(instrumentID string) *Market {
	return &Market{
		InstrumentID: instrumentID,
		Book:         orderbook.NewOrderbook(instrumentID),
		Orders:       lifecycle.NewManager(instrumentID),
		RFQs:         make(map[string]*rfqv1.RFQ),
	}
}

// Sequence runs fn as the only mutation of this market.
// A fatal error returned by fn halts the market for every later mutation.
func (m *Market) Sequence(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.halted != nil {
		return haltedError(m.InstrumentID, m.halted)
	}

	err := fn()
	if errors.IsFatal(err) {
		m.halted = err
	}
	return err
}

// Read runs fn concurrently with other readers and never with a mutation.
func (m *Market) Read(fn func()) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn()
}

// Halted returns the fatal error that stopped the market, if any.
func (m *Market) Halted() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.halted
}

// OpenRFQs returns the RFQs whose order is still open, oldest first.
// Callers must hold the sequencer or a read lock.
func (m *Market) OpenRFQs() []*rfqv1.RFQ {
	open := make([]*rfqv1.RFQ, 0, len(m.RFQs))
	for _, r := range m.RFQs {
		if o, ok := m.Orders.Get(r.OrderID); ok && o.IsOpen() {
			open = append(open, r)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })
	return open
}

func haltedError(instrumentID string, cause error) error {
	return errors.NewStateError(errors.ErrInstrumentHalted,
		fmt.Sprintf("instrument %s is halted: %s", instrumentID, cause))
}
