package eventv1

import (
	"time"

	marketdatav1 "github.com/muhammadchandra19/exchange-core/internal/domain/marketdata/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	rfqv1 "github.com/muhammadchandra19/exchange-core/internal/domain/rfq/v1"
	tradev1 "github.com/muhammadchandra19/exchange-core/internal/domain/trade/v1"
)

// Type names a domain event.
type Type string

const (
	OrderPlaced          Type = "OrderPlaced"
	OrderPartiallyFilled Type = "OrderPartiallyFilled"
	OrderFilled          Type = "OrderFilled"
	OrderCancelled       Type = "OrderCancelled"
	OrderExpired         Type = "OrderExpired"
	TradeExecuted        Type = "TradeExecuted"
	RFQCreated           Type = "RFQCreated"
	RFQQuoted            Type = "RFQQuoted"
	RFQAccepted          Type = "RFQAccepted"
	RFQCancelled         Type = "RFQCancelled"
	ArbitrageDetected    Type = "ArbitrageDetected"
	MarketDataUpdated    Type = "MarketDataUpdated"
	CommandRejected      Type = "CommandRejected"
)

// Event is the envelope published to downstream consumers.
// Each event carries full copies of the entities it concerns.
type Event struct {
	ID           string    `json:"id"`
	Sequence     uint64    `json:"sequence"`
	Type         Type      `json:"type"`
	InstrumentID string    `json:"instrumentId,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`

	Order       *orderv1.Order                     `json:"order,omitempty"`
	Trade       *tradev1.Trade                     `json:"trade,omitempty"`
	RFQ         *rfqv1.RFQ                         `json:"rfq,omitempty"`
	Quote       *rfqv1.Quote                       `json:"quote,omitempty"`
	Opportunity *marketdatav1.ArbitrageOpportunity `json:"opportunity,omitempty"`
	MarketData  *marketdatav1.Snapshot             `json:"marketData,omitempty"`
	Rejection   *Rejection                         `json:"rejection,omitempty"`
}

// Rejection describes a command the engine refused.
type Rejection struct {
	CommandID string `json:"commandId"`
	Kind      string `json:"kind"`
	Code      string `json:"code"`
	Category  string `json:"category"`
	Message   string `json:"message"`
}

// NewOrderEvent builds an order event holding a copy of o.
func NewOrderEvent(typ Type, o *orderv1.Order, at time.Time) Event {
	return Event{Type: typ, InstrumentID: o.InstrumentID, OccurredAt: at, Order: o.Clone()}
}

// NewFillEvent builds OrderFilled or OrderPartiallyFilled depending on o's status.
func NewFillEvent(o *orderv1.Order, at time.Time) Event {
	typ := OrderPartiallyFilled
	if o.Status == orderv1.StatusFilled {
		typ = OrderFilled
	}
	return NewOrderEvent(typ, o, at)
}

// NewTradeEvent builds a TradeExecuted event.
func NewTradeEvent(t *tradev1.Trade) Event {
	c := *t
	return Event{Type: TradeExecuted, InstrumentID: t.InstrumentID, OccurredAt: t.ExecutedAt, Trade: &c}
}

// NewRFQEvent builds an RFQ event carrying the RFQ and its current quote.
func NewRFQEvent(typ Type, r *rfqv1.RFQ, at time.Time) Event {
	e := Event{Type: typ, InstrumentID: r.InstrumentID, OccurredAt: at, RFQ: r.Clone()}
	if r.Quote != nil {
		e.Quote = r.Quote.Clone()
	}
	return e
}

// NewArbitrageEvent builds an ArbitrageDetected event.
func NewArbitrageEvent(a *marketdatav1.ArbitrageOpportunity) Event {
	return Event{Type: ArbitrageDetected, InstrumentID: a.InstrumentID, OccurredAt: a.DetectedAt, Opportunity: a.Clone()}
}

// NewMarketDataEvent builds a MarketDataUpdated event.
func NewMarketDataEvent(s *marketdatav1.Snapshot) Event {
	return Event{Type: MarketDataUpdated, InstrumentID: s.InstrumentID, OccurredAt: s.UpdatedAt, MarketData: s.Clone()}
}

// NewRejectionEvent builds a CommandRejected event.
func NewRejectionEvent(r Rejection, instrumentID string, at time.Time) Event {
	return Event{Type: CommandRejected, InstrumentID: instrumentID, OccurredAt: at, Rejection: &r}
}
