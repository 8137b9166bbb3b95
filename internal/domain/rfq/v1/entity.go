package rfqv1

import (
	"time"

	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	tradev1 "github.com/muhammadchandra19/exchange-core/internal/domain/trade/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/shopspring/decimal"
)

// RFQ is a request for quote backed by an rfq-type order that never enters the book.
type RFQ struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"orderId"`
	InstrumentID string          `json:"instrumentId"`
	Creator      string          `json:"creator"`
	Side         orderv1.Side    `json:"side"`
	Quantity     decimal.Decimal `json:"quantity"`
	CreatedAt    time.Time       `json:"createdAt"`
	// Quote is the most recent quote, active or not.
	Quote *Quote `json:"quote,omitempty"`
}

// ActiveQuote returns the current quote when it is active and unexpired at now.
func (r *RFQ) ActiveQuote(now time.Time) (*Quote, bool) {
	if r.Quote == nil || !r.Quote.Active || r.Quote.IsExpired(now) {
		return nil, false
	}
	return r.Quote, true
}

// Clone returns a deep copy.
func (r *RFQ) Clone() *RFQ {
	c := *r
	if r.Quote != nil {
		c.Quote = r.Quote.Clone()
	}
	return &c
}

// Quote is a dealer's firm price for an RFQ.
type Quote struct {
	ID                string          `json:"id"`
	RFQID             string          `json:"rfqId"`
	Dealer            string          `json:"dealer"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity decimal.Decimal `json:"availableQuantity"`
	ExpiresAt         time.Time       `json:"expiresAt"`
	Active            bool            `json:"active"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// IsExpired reports whether now has reached the quote expiry.
func (q *Quote) IsExpired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// Clone returns a copy.
func (q *Quote) Clone() *Quote {
	c := *q
	return &c
}

// CreateRFQRequest is the input of RFQ creation.
type CreateRFQRequest struct {
	InstrumentID string          `json:"instrumentId"`
	Creator      string          `json:"creator"`
	Side         orderv1.Side    `json:"side"`
	Quantity     decimal.Decimal `json:"quantity"`
	ClientRef    string          `json:"clientRef,omitempty"`
}

// Validate checks the fields that do not depend on the instrument.
func (r CreateRFQRequest) Validate() error {
	if r.Creator == "" {
		return errors.NewValidationError(errors.GeneralBadRequestError, "creator is required", "creator")
	}
	if !r.Side.Valid() {
		return errors.NewValidationError(errors.ErrInvalidSide, "unknown side", "side")
	}
	if !r.Quantity.IsPositive() {
		return errors.NewValidationError(errors.ErrInvalidOrderSize, "quantity must be positive", "quantity")
	}
	return nil
}

// SubmitQuoteRequest is the input of quote submission.
type SubmitQuoteRequest struct {
	RFQID             string          `json:"rfqId"`
	Dealer            string          `json:"dealer"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity decimal.Decimal `json:"availableQuantity"`
	ExpiresAt         time.Time       `json:"expiresAt"`
}

// Validate checks the fields that do not depend on the instrument.
func (r SubmitQuoteRequest) Validate(now time.Time) error {
	if r.Dealer == "" {
		return errors.NewValidationError(errors.GeneralBadRequestError, "dealer is required", "dealer")
	}
	if !r.AvailableQuantity.IsPositive() {
		return errors.NewValidationError(errors.ErrInvalidOrderSize, "available quantity must be positive", "availableQuantity")
	}
	if !r.ExpiresAt.After(now) {
		return errors.NewValidationError(errors.ErrInvalidExpiry, "quote expiry must be in the future", "expiresAt")
	}
	return nil
}

// Acceptance is the outcome of accepting a quote.
type Acceptance struct {
	RFQ   *RFQ           `json:"rfq"`
	Order *orderv1.Order `json:"order"`
	Quote *Quote         `json:"quote"`
	Trade *tradev1.Trade `json:"trade"`
}
