package rfq

import (
	"context"
	"fmt"

	collateralv1 "github.com/muhammadchandra19/exchange-core/internal/domain/collateral/v1"
	eventv1 "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1"
	instrumentv1 "github.com/muhammadchandra19/exchange-core/internal/domain/instrument/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	rfqv1 "github.com/muhammadchandra19/exchange-core/internal/domain/rfq/v1"
	tradev1 "github.com/muhammadchandra19/exchange-core/internal/domain/trade/v1"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/market"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/matching"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
	"github.com/shopspring/decimal"
)

// Engine runs the negotiated execution path. RFQ orders never enter the book.
// Every method expects the caller to hold the market sequencer.
type Engine struct {
	ledger     tradev1.Ledger
	custodian  collateralv1.Custodian
	authorizer collateralv1.Authorizer
	sink       eventv1.Sink
	clock      util.Clock
	logger     logger.Interface
}

// NewEngine creates an RFQ engine.
func NewEngine(
	ledger tradev1.Ledger,
	custodian collateralv1.Custodian,
	authorizer collateralv1.Authorizer,
	sink eventv1.Sink,
	clock util.Clock,
	log logger.Interface,
) *Engine {
	return &Engine{
		ledger:     ledger,
		custodian:  custodian,
		authorizer: authorizer,
		sink:       sink,
		clock:      clock,
		logger:     log,
	}
}

// Create opens an RFQ backed by a new rfq order.
func (e *Engine) Create(ctx context.Context, m *market.Market, inst *instrumentv1.Instrument, req rfqv1.CreateRFQRequest) (*rfqv1.RFQ, error) {
	now := e.clock.Now()

	if req.InstrumentID != inst.ID {
		return nil, errors.NewValidationError(errors.GeneralBadRequestError, "request instrument does not match", "instrumentId")
	}
	if err := inst.EnsureActive(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := inst.ValidateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	if err := matching.Authorize(ctx, e.authorizer, req.Creator); err != nil {
		return nil, err
	}

	order := m.Orders.New(orderv1.PlaceOrderRequest{
		InstrumentID: inst.ID,
		Owner:        req.Creator,
		Side:         req.Side,
		Quantity:     req.Quantity,
		TimeInForce:  orderv1.GTC,
		ClientRef:    req.ClientRef,
	}, orderv1.TypeRFQ, now)
	if err := m.Orders.Admit(order); err != nil {
		return nil, err
	}

	r := &rfqv1.RFQ{
		ID:           util.NewID(),
		OrderID:      order.ID,
		InstrumentID: inst.ID,
		Creator:      req.Creator,
		Side:         req.Side,
		Quantity:     req.Quantity,
		CreatedAt:    now,
	}
	m.RFQs[r.ID] = r

	e.logger.InfoContext(ctx, "rfq created",
		logger.Field{Key: "rfq_id", Value: r.ID},
		logger.Field{Key: "order_id", Value: order.ID},
	)
	e.sink.Emit(
		eventv1.NewOrderEvent(eventv1.OrderPlaced, order, now),
		eventv1.NewRFQEvent(eventv1.RFQCreated, r, now),
	)
	return r.Clone(), nil
}

// SubmitQuote attaches a dealer quote. The first live quote wins; later ones are rejected until it is consumed or expires.
func (e *Engine) SubmitQuote(ctx context.Context, m *market.Market, inst *instrumentv1.Instrument, req rfqv1.SubmitQuoteRequest) (*rfqv1.Quote, error) {
	now := e.clock.Now()

	r, order, err := e.open(m, req.RFQID)
	if err != nil {
		return nil, err
	}
	if err := inst.EnsureActive(); err != nil {
		return nil, err
	}
	if err := req.Validate(now); err != nil {
		return nil, err
	}
	if req.Dealer == r.Creator {
		return nil, errors.NewAuthorizationError(errors.ErrSelfQuote, fmt.Sprintf("%s cannot quote its own rfq", req.Dealer))
	}
	if err := inst.ValidatePrice(req.Price); err != nil {
		return nil, err
	}
	if !instrumentv1.IsMultiple(req.AvailableQuantity, inst.LotSize) {
		return nil, errors.NewValidationError(errors.ErrInvalidLotSize,
			fmt.Sprintf("available quantity %s is not a multiple of lot size %s", req.AvailableQuantity, inst.LotSize), "availableQuantity")
	}
	if err := matching.Authorize(ctx, e.authorizer, req.Dealer); err != nil {
		return nil, err
	}
	if active, ok := r.ActiveQuote(now); ok {
		return nil, errors.NewStateError(errors.ErrQuoteAlreadyActive,
			fmt.Sprintf("rfq %s already has quote %s from %s", r.ID, active.ID, active.Dealer))
	}

	r.Quote = &rfqv1.Quote{
		ID:                util.NewID(),
		RFQID:             r.ID,
		Dealer:            req.Dealer,
		Price:             req.Price,
		AvailableQuantity: req.AvailableQuantity,
		ExpiresAt:         req.ExpiresAt,
		Active:            true,
		CreatedAt:         now,
	}

	e.logger.InfoContext(ctx, "rfq quoted",
		logger.Field{Key: "rfq_id", Value: r.ID},
		logger.Field{Key: "order_id", Value: order.ID},
		logger.Field{Key: "dealer", Value: req.Dealer},
	)
	e.sink.Emit(eventv1.NewRFQEvent(eventv1.RFQQuoted, r, now))
	return r.Quote.Clone(), nil
}

// Accept executes the live quote against the RFQ order for min(remaining, available).
func (e *Engine) Accept(ctx context.Context, m *market.Market, inst *instrumentv1.Instrument, caller, rfqID string) (*rfqv1.Acceptance, error) {
	now := e.clock.Now()

	r, order, err := e.open(m, rfqID)
	if err != nil {
		return nil, err
	}
	if caller != r.Creator {
		return nil, errors.NewAuthorizationError(errors.ErrOrderNotOwned, fmt.Sprintf("rfq %s is not owned by %s", rfqID, caller))
	}
	q := r.Quote
	switch {
	case q == nil:
		return nil, errors.NewNotFoundError(errors.ErrQuoteNotFound, fmt.Sprintf("rfq %s has no quote", rfqID))
	case !q.Active:
		return nil, errors.NewStateError(errors.ErrQuoteInactive, fmt.Sprintf("quote %s is no longer active", q.ID))
	case q.IsExpired(now):
		q.Active = false
		return nil, errors.NewExpiryError(errors.ErrQuoteExpired, fmt.Sprintf("quote %s expired at %s", q.ID, q.ExpiresAt))
	}
	if err := inst.EnsureActive(); err != nil {
		return nil, err
	}
	if err := e.ledger.CanAppend(1); err != nil {
		return nil, err
	}

	qty := decimal.Min(order.RemainingQuantity, q.AvailableQuantity)
	notional := qty.Mul(q.Price)
	buyer, seller := r.Creator, q.Dealer
	if r.Side == orderv1.SideSell {
		buyer, seller = q.Dealer, r.Creator
	}

	if err := matching.Reserve(ctx, e.custodian, buyer, inst.QuoteAsset, notional); err != nil {
		return nil, err
	}
	if err := matching.Reserve(ctx, e.custodian, seller, inst.BaseAsset, qty); err != nil {
		e.release(ctx, buyer, inst.QuoteAsset, notional)
		return nil, err
	}

	trade := tradev1.NewTrade(util.NewID(), tradev1.Execution{
		InstrumentID: inst.ID,
		MakerOrderID: order.ID,
		Maker:        r.Creator,
		Taker:        q.Dealer,
		TakerSide:    r.Side.Opposite(),
		Quantity:     qty,
		Price:        q.Price,
		MakerFeeBps:  inst.MakerFeeBps,
		TakerFeeBps:  inst.TakerFeeBps,
		RFQID:        r.ID,
		ExecutedAt:   now,
	})
	if err := e.ledger.Append(ctx, trade); err != nil {
		e.release(ctx, buyer, inst.QuoteAsset, notional)
		e.release(ctx, seller, inst.BaseAsset, qty)
		return nil, err
	}

	if err := m.Orders.Fill(order, qty, now); err != nil {
		return nil, errors.NewFatalError(errors.ErrInvalidTransition, fmt.Sprintf("fill rfq order %s after ledger append: %s", order.ID, err))
	}
	q.Active = false

	err = e.custodian.Settle(ctx, collateralv1.Settlement{Trade: trade, BaseAsset: inst.BaseAsset, QuoteAsset: inst.QuoteAsset})
	if err != nil {
		e.logger.ErrorContext(ctx, errors.TracerFromError(err), logger.Field{Key: "trade_id", Value: trade.ID})
	}

	e.logger.InfoContext(ctx, "rfq quote accepted",
		logger.Field{Key: "rfq_id", Value: r.ID},
		logger.Field{Key: "trade_id", Value: trade.ID},
		logger.Field{Key: "status", Value: order.Status},
	)
	e.sink.Emit(
		eventv1.NewRFQEvent(eventv1.RFQAccepted, r, now),
		eventv1.NewTradeEvent(trade),
		eventv1.NewFillEvent(order, now),
	)

	c := *trade
	return &rfqv1.Acceptance{RFQ: r.Clone(), Order: order.Clone(), Quote: q.Clone(), Trade: &c}, nil
}

// Cancel closes the RFQ order and deactivates its quote.
func (e *Engine) Cancel(ctx context.Context, m *market.Market, caller, rfqID string) (*rfqv1.RFQ, error) {
	now := e.clock.Now()

	r, order, err := e.open(m, rfqID)
	if err != nil {
		return nil, err
	}
	if caller != r.Creator {
		return nil, errors.NewAuthorizationError(errors.ErrOrderNotOwned, fmt.Sprintf("rfq %s is not owned by %s", rfqID, caller))
	}
	if err := m.Orders.Cancel(order, now); err != nil {
		return nil, err
	}
	if r.Quote != nil {
		r.Quote.Active = false
	}

	e.logger.InfoContext(ctx, "rfq cancelled", logger.Field{Key: "rfq_id", Value: r.ID})
	e.sink.Emit(
		eventv1.NewOrderEvent(eventv1.OrderCancelled, order, now),
		eventv1.NewRFQEvent(eventv1.RFQCancelled, r, now),
	)
	return r.Clone(), nil
}

// open returns the RFQ and its order, failing when the order is no longer open.
func (e *Engine) open(m *market.Market, rfqID string) (*rfqv1.RFQ, *orderv1.Order, error) {
	r, ok := m.RFQs[rfqID]
	if !ok {
		return nil, nil, errors.NewNotFoundError(errors.ErrRFQNotFound, fmt.Sprintf("rfq %s not found", rfqID))
	}
	order, ok := m.Orders.Get(r.OrderID)
	if !ok {
		return nil, nil, errors.NewFatalError(errors.ErrOrderNotFound, fmt.Sprintf("rfq %s lost order %s", rfqID, r.OrderID))
	}
	if !order.IsOpen() {
		return nil, nil, errors.NewStateError(errors.ErrRFQClosed, fmt.Sprintf("rfq %s is %s", rfqID, order.Status))
	}
	return r, order, nil
}

func (e *Engine) release(ctx context.Context, trader, asset string, amount decimal.Decimal) {
	if err := e.custodian.Release(ctx, trader, asset, amount); err != nil {
		e.logger.ErrorContext(ctx, errors.TracerFromError(err),
			logger.Field{Key: "trader", Value: trader},
			logger.Field{Key: "amount", Value: amount.String()},
		)
	}
}
