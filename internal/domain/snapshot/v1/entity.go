package snapshotv1

import (
	"time"

	instrumentv1 "github.com/muhammadchandra19/exchange-core/internal/domain/instrument/v1"
	marketdatav1 "github.com/muhammadchandra19/exchange-core/internal/domain/marketdata/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	rfqv1 "github.com/muhammadchandra19/exchange-core/internal/domain/rfq/v1"
	tradev1 "github.com/muhammadchandra19/exchange-core/internal/domain/trade/v1"
)

// Snapshot represents the engine state at a specific command offset.
type Snapshot struct {
	CommandOffset int64     `json:"commandOffset"`
	TakenAt       time.Time `json:"takenAt"`

	Instruments []*instrumentv1.Instrument `json:"instruments"`
	// Markets holds per-instrument open state.
	Markets    []MarketSnapshot         `json:"markets"`
	MarketData []*marketdatav1.Snapshot `json:"marketData"`

	GlobalStats   tradev1.Stats `json:"globalStats"`
	TradeSequence uint64        `json:"tradeSequence"`
	EventSequence uint64        `json:"eventSequence"`
}

// MarketSnapshot holds the open state of one instrument.
type MarketSnapshot struct {
	InstrumentID  string `json:"instrumentId"`
	OrderSequence uint64 `json:"orderSequence"`
	// Orders are the open orders, book orders in price-time priority.
	Orders []*orderv1.Order `json:"orders"`
	RFQs   []*rfqv1.RFQ     `json:"rfqs"`
	Stats  tradev1.Stats    `json:"stats"`
}
