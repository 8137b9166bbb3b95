package tradev1

import (
	"time"

	instrumentv1 "github.com/muhammadchandra19/exchange-core/internal/domain/instrument/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	"github.com/shopspring/decimal"
)

// Trade is an immutable record of one execution.
type Trade struct {
	ID           string          `json:"id"`
	InstrumentID string          `json:"instrumentId"`
	MakerOrderID string          `json:"makerOrderId"`
	TakerOrderID string          `json:"takerOrderId,omitempty"`
	Maker        string          `json:"maker"`
	Taker        string          `json:"taker"`
	TakerSide    orderv1.Side    `json:"takerSide"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Notional     decimal.Decimal `json:"notional"`
	MakerFee     decimal.Decimal `json:"makerFee"`
	TakerFee     decimal.Decimal `json:"takerFee"`
	RFQID        string          `json:"rfqId,omitempty"`
	Sequence     uint64          `json:"sequence"`
	ExecutedAt   time.Time       `json:"executedAt"`
}

// Buyer returns the trader receiving the base asset.
func (t *Trade) Buyer() string {
	if t.TakerSide == orderv1.SideBuy {
		return t.Taker
	}
	return t.Maker
}

// Seller returns the trader delivering the base asset.
func (t *Trade) Seller() string {
	if t.TakerSide == orderv1.SideBuy {
		return t.Maker
	}
	return t.Taker
}

// Stats are the running ledger aggregates.
type Stats struct {
	TradeCount  uint64          `json:"tradeCount"`
	BaseVolume  decimal.Decimal `json:"baseVolume"`
	QuoteVolume decimal.Decimal `json:"quoteVolume"`
	MakerFees   decimal.Decimal `json:"makerFees"`
	TakerFees   decimal.Decimal `json:"takerFees"`
	FeeRevenue  decimal.Decimal `json:"feeRevenue"`
}

// NewStats returns zeroed aggregates.
func NewStats() Stats {
	return Stats{
		BaseVolume:  decimal.Zero,
		QuoteVolume: decimal.Zero,
		MakerFees:   decimal.Zero,
		TakerFees:   decimal.Zero,
		FeeRevenue:  decimal.Zero,
	}
}

// Apply returns s with t folded in.
func (s Stats) Apply(t *Trade) Stats {
	return Stats{
		TradeCount:  s.TradeCount + 1,
		BaseVolume:  s.BaseVolume.Add(t.Quantity),
		QuoteVolume: s.QuoteVolume.Add(t.Notional),
		MakerFees:   s.MakerFees.Add(t.MakerFee),
		TakerFees:   s.TakerFees.Add(t.TakerFee),
		FeeRevenue:  s.FeeRevenue.Add(t.MakerFee).Add(t.TakerFee),
	}
}

// Equal compares all counters.
func (s Stats) Equal(o Stats) bool {
	return s.TradeCount == o.TradeCount &&
		s.BaseVolume.Equal(o.BaseVolume) &&
		s.QuoteVolume.Equal(o.QuoteVolume) &&
		s.MakerFees.Equal(o.MakerFees) &&
		s.TakerFees.Equal(o.TakerFees) &&
		s.FeeRevenue.Equal(o.FeeRevenue)
}

// IsNegative reports whether any amount went below zero.
func (s Stats) IsNegative() bool {
	return s.BaseVolume.IsNegative() || s.QuoteVolume.IsNegative() ||
		s.MakerFees.IsNegative() || s.TakerFees.IsNegative() || s.FeeRevenue.IsNegative()
}

// Execution describes one match before it is recorded as a Trade.
type Execution struct {
	InstrumentID string
	MakerOrderID string
	TakerOrderID string
	Maker        string
	Taker        string
	TakerSide    orderv1.Side
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	MakerFeeBps  int64
	TakerFeeBps  int64
	RFQID        string
	ExecutedAt   time.Time
}

// NewTrade prices an execution: notional = quantity * price, fee = notional * bps / 10000 per side.
func NewTrade(id string, e Execution) *Trade {
	notional := e.Quantity.Mul(e.Price)
	return &Trade{
		ID:           id,
		InstrumentID: e.InstrumentID,
		MakerOrderID: e.MakerOrderID,
		TakerOrderID: e.TakerOrderID,
		Maker:        e.Maker,
		Taker:        e.Taker,
		TakerSide:    e.TakerSide,
		Quantity:     e.Quantity,
		Price:        e.Price,
		Notional:     notional,
		MakerFee:     instrumentv1.Fee(notional, e.MakerFeeBps),
		TakerFee:     instrumentv1.Fee(notional, e.TakerFeeBps),
		RFQID:        e.RFQID,
		ExecutedAt:   e.ExecutedAt,
	}
}
