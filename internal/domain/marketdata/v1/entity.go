package marketdatav1

import (
	"time"

	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/shopspring/decimal"
)

// Update is one push from an external market data producer.
type Update struct {
	InstrumentID string          `json:"instrumentId"`
	LastPrice    decimal.Decimal `json:"lastPrice"`
	Bid          decimal.Decimal `json:"bid"`
	Ask          decimal.Decimal `json:"ask"`
	Volume       decimal.Decimal `json:"volume"`
}

// Validate checks prices are positive and volume is not negative.
func (u Update) Validate() error {
	errs := errors.NewBaseError()
	if !u.LastPrice.IsPositive() {
		errs.AddErrorDetails(errors.NewValidationError(errors.ErrInvalidMarketData, "last price must be positive", "lastPrice"))
	}
	if !u.Bid.IsPositive() {
		errs.AddErrorDetails(errors.NewValidationError(errors.ErrInvalidMarketData, "bid must be positive", "bid"))
	}
	if !u.Ask.IsPositive() {
		errs.AddErrorDetails(errors.NewValidationError(errors.ErrInvalidMarketData, "ask must be positive", "ask"))
	}
	if u.Volume.IsNegative() {
		errs.AddErrorDetails(errors.NewValidationError(errors.ErrInvalidMarketData, "volume cannot be negative", "volume"))
	}
	return errs.OrNil()
}

// Snapshot is the rolling market view of one instrument.
type Snapshot struct {
	InstrumentID    string          `json:"instrumentId"`
	LastPrice       decimal.Decimal `json:"lastPrice"`
	Bid             decimal.Decimal `json:"bid"`
	Ask             decimal.Decimal `json:"ask"`
	Open24h         decimal.Decimal `json:"open24h"`
	High24h         decimal.Decimal `json:"high24h"`
	Low24h          decimal.Decimal `json:"low24h"`
	Volume24h       decimal.Decimal `json:"volume24h"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	WindowStartedAt time.Time       `json:"windowStartedAt"`
}

// Spread returns ask - bid.
func (s *Snapshot) Spread() decimal.Decimal {
	return s.Ask.Sub(s.Bid)
}

// Clone returns a copy.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	return &c
}

// ArbitrageOpportunity flags a spread wider than the configured threshold.
type ArbitrageOpportunity struct {
	ID           string          `json:"id"`
	InstrumentID string          `json:"instrumentId"`
	Bid          decimal.Decimal `json:"bid"`
	Ask          decimal.Decimal `json:"ask"`
	ProfitBps    decimal.Decimal `json:"profitBps"`
	DetectedAt   time.Time       `json:"detectedAt"`
	ExpiresAt    time.Time       `json:"expiresAt"`
	Active       bool            `json:"active"`
}

// IsExpired reports whether now has reached the opportunity expiry.
func (a *ArbitrageOpportunity) IsExpired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// Clone returns a copy.
func (a *ArbitrageOpportunity) Clone() *ArbitrageOpportunity {
	c := *a
	return &c
}
