package orderv1

import (
	"fmt"
	"time"

	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is buy or sell.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the side an order of side s matches against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Type is the execution path of an order.
type Type string

const (
	TypeLimit  Type = "limit"
	TypeMarket Type = "market"
	TypeRFQ    Type = "rfq"
)

// TimeInForce controls how long an order may stay open.
type TimeInForce string

const (
	// GTC rests until filled or cancelled.
	GTC TimeInForce = "GTC"
	// GTD rests until ExpiresAt.
	GTD TimeInForce = "GTD"
	// IOC executes what it can immediately and cancels the rest.
	IOC TimeInForce = "IOC"
	// FOK fills completely on arrival or is rejected.
	FOK TimeInForce = "FOK"
)

// Valid reports whether t is a known time in force.
func (t TimeInForce) Valid() bool {
	switch t {
	case GTC, GTD, IOC, FOK:
		return true
	}
	return false
}

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPartial   Status = "PARTIAL"
	StatusFilled    Status = "FILLED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusPartial, StatusFilled, StatusCancelled, StatusExpired},
	StatusPartial: {StatusPartial, StatusFilled, StatusCancelled, StatusExpired},
}

// IsOpen reports whether the order can still trade.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusPartial
}

// IsTerminal reports whether s can never change again.
func (s Status) IsTerminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusExpired
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is an instruction to trade, owned by the lifecycle manager.
type Order struct {
	ID                string          `json:"id"`
	InstrumentID      string          `json:"instrumentId"`
	Owner             string          `json:"owner"`
	Side              Side            `json:"side"`
	Type              Type            `json:"type"`
	Quantity          decimal.Decimal `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
	FilledQuantity    decimal.Decimal `json:"filledQuantity"`
	RemainingQuantity decimal.Decimal `json:"remainingQuantity"`
	TimeInForce       TimeInForce     `json:"timeInForce"`
	ExpiresAt         time.Time       `json:"expiresAt,omitempty"`
	Status            Status          `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	Sequence          uint64          `json:"sequence"`
	ClientRef         string          `json:"clientRef,omitempty"`
	// Closed marks a PARTIAL order that will never execute again, such as a swept market order.
	Closed bool `json:"closed,omitempty"`

	// Reserved is the custody amount still held for this order, in ReservedAsset.
	Reserved      decimal.Decimal `json:"reserved"`
	ReservedAsset string          `json:"reservedAsset,omitempty"`
}

// IsBuy reports whether the order buys the base asset.
func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}

// IsOpen reports whether the order is PENDING or PARTIAL and not closed.
func (o *Order) IsOpen() bool {
	return o.Status.IsOpen() && !o.Closed
}

// IsExpired reports whether the order carries an expiry that now has reached.
func (o *Order) IsExpired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && !now.Before(o.ExpiresAt)
}

// Transition moves the order to next, rejecting anything the state machine forbids.
func (o *Order) Transition(next Status, now time.Time) error {
	if o.Closed || !o.Status.CanTransitionTo(next) {
		return errors.NewStateError(errors.ErrInvalidTransition,
			fmt.Sprintf("order %s cannot move from %s to %s", o.ID, o.Status, next))
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

// Close ends execution of an open order without changing its fill status.
func (o *Order) Close(now time.Time) error {
	if !o.IsOpen() {
		return errors.NewStateError(errors.ErrInvalidTransition,
			fmt.Sprintf("order %s is %s and cannot be closed", o.ID, o.Status))
	}
	o.Closed = true
	o.UpdatedAt = now
	return nil
}

// ApplyFill records qty as executed and advances the status to PARTIAL or FILLED.
func (o *Order) ApplyFill(qty decimal.Decimal, now time.Time) error {
	if !qty.IsPositive() {
		return errors.NewValidationError(errors.ErrInvalidOrderSize, "fill quantity must be positive", "quantity")
	}
	if qty.GreaterThan(o.RemainingQuantity) {
		return errors.NewStateError(errors.ErrInvalidTransition,
			fmt.Sprintf("fill %s exceeds remaining %s on order %s", qty, o.RemainingQuantity, o.ID))
	}

	next := StatusPartial
	if qty.Equal(o.RemainingQuantity) {
		next = StatusFilled
	}
	if err := o.Transition(next, now); err != nil {
		return err
	}

	o.FilledQuantity = o.FilledQuantity.Add(qty)
	o.RemainingQuantity = o.Quantity.Sub(o.FilledQuantity)
	return nil
}

// Consume lowers the held reservation by amount, never below zero.
func (o *Order) Consume(amount decimal.Decimal) {
	o.Reserved = decimal.Max(o.Reserved.Sub(amount), decimal.Zero)
}

// Clone returns a copy that shares nothing mutable with o.
func (o *Order) Clone() *Order {
	c := *o
	return &c
}

// PlaceOrderRequest is the input of limit and market order placement.
type PlaceOrderRequest struct {
	InstrumentID string          `json:"instrumentId"`
	Owner        string          `json:"owner"`
	Side         Side            `json:"side"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	TimeInForce  TimeInForce     `json:"timeInForce"`
	ExpiresAt    time.Time       `json:"expiresAt,omitempty"`
	ClientRef    string          `json:"clientRef,omitempty"`

	// SlippageBps bounds how far execution may walk from ReferencePrice. Nil uses the engine default.
	SlippageBps *int64 `json:"slippageBps,omitempty"`
	// ReferencePrice anchors the slippage bound. Zero means the best opposite price at arrival.
	ReferencePrice decimal.Decimal `json:"referencePrice"`
}

// Validate checks the fields that do not depend on the instrument.
func (r PlaceOrderRequest) Validate(orderType Type, now time.Time) error {
	if r.Owner == "" {
		return errors.NewValidationError(errors.GeneralBadRequestError, "owner is required", "owner")
	}
	if !r.Side.Valid() {
		return errors.NewValidationError(errors.ErrInvalidSide, fmt.Sprintf("unknown side %q", r.Side), "side")
	}
	if !r.Quantity.IsPositive() {
		return errors.NewValidationError(errors.ErrInvalidOrderSize, "quantity must be positive", "quantity")
	}
	if r.SlippageBps != nil && (*r.SlippageBps < 0 || *r.SlippageBps > 10_000) {
		return errors.NewValidationError(errors.GeneralBadRequestError, "slippage must be within [0, 10000] bps", "slippageBps")
	}
	if r.ReferencePrice.IsNegative() {
		return errors.NewValidationError(errors.ErrInvalidPrice, "reference price cannot be negative", "referencePrice")
	}

	tif := r.TimeInForce
	if orderType == TypeMarket {
		if tif != "" && tif != IOC && tif != FOK {
			return errors.NewValidationError(errors.ErrInvalidTimeInForce, "market orders accept IOC or FOK only", "timeInForce")
		}
		return nil
	}

	if !tif.Valid() {
		return errors.NewValidationError(errors.ErrInvalidTimeInForce, fmt.Sprintf("unknown time in force %q", tif), "timeInForce")
	}
	if tif == GTD {
		if r.ExpiresAt.IsZero() {
			return errors.NewValidationError(errors.ErrInvalidExpiry, "GTD orders require an expiry", "expiresAt")
		}
		if !r.ExpiresAt.After(now) {
			return errors.NewValidationError(errors.ErrInvalidExpiry, "expiry must be in the future", "expiresAt")
		}
	} else if !r.ExpiresAt.IsZero() {
		return errors.NewValidationError(errors.ErrInvalidExpiry, "only GTD orders carry an expiry", "expiresAt")
	}
	return nil
}
