package matching

import (
	"context"
	"fmt"
	"time"

	collateralv1 "github.com/muhammadchandra19/exchange-core/internal/domain/collateral/v1"
	eventv1 "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1"
	instrumentv1 "github.com/muhammadchandra19/exchange-core/internal/domain/instrument/v1"
	matchv1 "github.com/muhammadchandra19/exchange-core/internal/domain/match/v1"
	orderbookv1 "github.com/muhammadchandra19/exchange-core/internal/domain/orderbook/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	tradev1 "github.com/muhammadchandra19/exchange-core/internal/domain/trade/v1"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/market"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
	"github.com/shopspring/decimal"
)

// Options configures matching behaviour.
type Options struct {
	// DefaultSlippageBps applies when a request carries no slippage. Zero disables the bound.
	DefaultSlippageBps int64
}

// Result is the outcome of placing an order.
type Result struct {
	Order  *orderv1.Order
	Trades []*tradev1.Trade
}

// Engine matches incoming orders against a market's book.
// Every method expects the caller to hold the market sequencer.
type Engine struct {
	ledger     tradev1.Ledger
	custodian  collateralv1.Custodian
	authorizer collateralv1.Authorizer
	sink       eventv1.Sink
	clock      util.Clock
	logger     logger.Interface
	opts       Options
}

// NewEngine creates a matching engine.
func NewEngine(
	ledger tradev1.Ledger,
	custodian collateralv1.Custodian,
	authorizer collateralv1.Authorizer,
	sink eventv1.Sink,
	clock util.Clock,
	log logger.Interface,
	opts Options,
) *Engine {
	return &Engine{
		ledger:     ledger,
		custodian:  custodian,
		authorizer: authorizer,
		sink:       sink,
		clock:      clock,
		logger:     log,
		opts:       opts,
	}
}

// PlaceLimit validates, matches and rests or cancels the remainder of a limit order.
func (e *Engine) PlaceLimit(ctx context.Context, m *market.Market, inst *instrumentv1.Instrument, req orderv1.PlaceOrderRequest) (*Result, error) {
	now := e.clock.Now()
	if err := validateLimit(inst, req, now); err != nil {
		return nil, err
	}
	if err := Authorize(ctx, e.authorizer, req.Owner); err != nil {
		return nil, err
	}

	order := m.Orders.New(req, orderv1.TypeLimit, now)
	plan := e.plan(m, order, order.Price, e.bound(m, req), now)

	if order.TimeInForce == orderv1.FOK && !plan.Covers(order.Quantity) {
		return nil, errors.NewStateError(errors.ErrFillOrKillUnfilled,
			fmt.Sprintf("only %s of %s available within limit %s", plan.Filled, order.Quantity, order.Price))
	}

	amount, asset := reservation(inst, order.Side, order.Quantity.Mul(order.Price), order.Quantity)
	return e.execute(ctx, m, inst, order, plan, amount, asset, now)
}

// PlaceMarket sweeps the opposite side best-first. Market orders never rest.
func (e *Engine) PlaceMarket(ctx context.Context, m *market.Market, inst *instrumentv1.Instrument, req orderv1.PlaceOrderRequest) (*Result, error) {
	now := e.clock.Now()
	if err := validateMarket(inst, req, now); err != nil {
		return nil, err
	}
	if err := Authorize(ctx, e.authorizer, req.Owner); err != nil {
		return nil, err
	}

	order := m.Orders.New(req, orderv1.TypeMarket, now)
	plan := e.plan(m, order, decimal.Zero, e.bound(m, req), now)

	if plan.IsEmpty() {
		code := errors.ErrInsufficientAskVolume
		if order.Side == orderv1.SideSell {
			code = errors.ErrInsufficientBidVolume
		}
		return nil, errors.NewStateError(code, fmt.Sprintf("no executable %s liquidity", order.Side.Opposite()))
	}
	if order.TimeInForce == orderv1.FOK && !plan.Covers(order.Quantity) {
		return nil, errors.NewStateError(errors.ErrFillOrKillUnfilled,
			fmt.Sprintf("only %s of %s available", plan.Filled, order.Quantity))
	}

	amount, asset := reservation(inst, order.Side, plan.Notional, plan.Filled)
	return e.execute(ctx, m, inst, order, plan, amount, asset, now)
}

// Cancel cancels an open order owned by caller.
func (e *Engine) Cancel(ctx context.Context, m *market.Market, caller, orderID string) (*orderv1.Order, error) {
	now := e.clock.Now()

	order, ok := m.Orders.Get(orderID)
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrOrderNotFound, fmt.Sprintf("order %s not found", orderID))
	}
	if order.Owner != caller {
		return nil, errors.NewAuthorizationError(errors.ErrOrderNotOwned,
			fmt.Sprintf("order %s is not owned by %s", orderID, caller))
	}
	if order.Type == orderv1.TypeRFQ {
		return nil, errors.NewValidationError(errors.GeneralBadRequestError, "rfq orders are cancelled through their RFQ", "orderId")
	}
	if order.IsOpen() && order.IsExpired(now) {
		if err := e.ExpireOrder(ctx, m, order, now); err != nil {
			return nil, err
		}
		return nil, errors.NewExpiryError(errors.ErrOrderExpired, fmt.Sprintf("order %s expired at %s", orderID, order.ExpiresAt))
	}
	if !order.IsOpen() {
		return nil, errors.NewStateError(errors.ErrInvalidTransition,
			fmt.Sprintf("order %s is %s and cannot be cancelled", orderID, order.Status))
	}

	if m.Book.Contains(orderID) {
		if _, err := m.Book.Remove(orderID); err != nil {
			return nil, err
		}
	}
	if err := m.Orders.Cancel(order, now); err != nil {
		return nil, err
	}
	e.release(ctx, order)

	e.logger.InfoContext(ctx, "order cancelled", logger.Field{Key: "order_id", Value: orderID})
	e.sink.Emit(eventv1.NewOrderEvent(eventv1.OrderCancelled, order, now))
	return order.Clone(), nil
}

// ExpireOrder evicts an open order that reached its expiry.
func (e *Engine) ExpireOrder(ctx context.Context, m *market.Market, order *orderv1.Order, now time.Time) error {
	if err := e.expire(ctx, m, order, now); err != nil {
		return err
	}
	e.sink.Emit(eventv1.NewOrderEvent(eventv1.OrderExpired, order, now))
	return nil
}

func (e *Engine) expire(ctx context.Context, m *market.Market, order *orderv1.Order, now time.Time) error {
	if m.Book.Contains(order.ID) {
		if _, err := m.Book.Remove(order.ID); err != nil {
			return err
		}
	}
	if err := m.Orders.Expire(order, now); err != nil {
		return err
	}
	e.release(ctx, order)
	return nil
}

// ExpireDue expires every open order whose expiry has passed and returns how many were expired.
func (e *Engine) ExpireDue(ctx context.Context, m *market.Market) (int, error) {
	now := e.clock.Now()
	count := 0
	for _, order := range m.Orders.Due(now) {
		if err := e.ExpireOrder(ctx, m, order, now); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// bound returns the worst executable price for req, or zero when unbounded.
func (e *Engine) bound(m *market.Market, req orderv1.PlaceOrderRequest) decimal.Decimal {
	var bps int64
	switch {
	case req.SlippageBps != nil:
		bps = *req.SlippageBps
	case e.opts.DefaultSlippageBps > 0:
		bps = e.opts.DefaultSlippageBps
	default:
		return decimal.Zero
	}

	reference := req.ReferencePrice
	if !reference.IsPositive() {
		best, ok := m.Book.Best(req.Side.Opposite())
		if !ok {
			return decimal.Zero
		}
		reference = best.Price
	}
	return SlippageBound(reference, bps, req.Side)
}

// SlippageBound returns reference * (1 + bps/10000) for buys and reference * (1 - bps/10000) for sells.
func SlippageBound(reference decimal.Decimal, bps int64, side orderv1.Side) decimal.Decimal {
	delta := reference.Mul(decimal.NewFromInt(bps)).Shift(-4)
	if side == orderv1.SideBuy {
		return reference.Add(delta)
	}
	return reference.Sub(delta)
}

// plan walks the opposite side without mutating anything.
// limit and bound are ignored when zero.
func (e *Engine) plan(m *market.Market, taker *orderv1.Order, limit, bound decimal.Decimal, now time.Time) *matchv1.Plan {
	plan := matchv1.NewPlan()
	plan.Bound = bound
	remaining := taker.Quantity

	m.Book.Walk(taker.Side.Opposite(), func(level *orderbookv1.Limit) bool {
		if !crosses(taker.Side, level.Price, limit) || !crosses(taker.Side, level.Price, bound) {
			return false
		}
		level.Each(func(maker *orderv1.Order) bool {
			if maker.IsExpired(now) {
				plan.Expired = append(plan.Expired, maker)
				return true
			}
			qty := decimal.Min(remaining, maker.RemainingQuantity)
			plan.Add(matchv1.Fill{Maker: maker, Quantity: qty, Price: maker.Price})
			remaining = remaining.Sub(qty)
			return remaining.IsPositive()
		})
		return remaining.IsPositive()
	})
	return plan
}

// crosses reports whether a taker on side may trade at price given a limit. A zero limit always crosses.
func crosses(side orderv1.Side, price, limit decimal.Decimal) bool {
	if limit.IsZero() {
		return true
	}
	if side == orderv1.SideBuy {
		return price.LessThanOrEqual(limit)
	}
	return price.GreaterThanOrEqual(limit)
}

// execute reserves, records and commits a validated plan.
func (e *Engine) execute(
	ctx context.Context,
	m *market.Market,
	inst *instrumentv1.Instrument,
	order *orderv1.Order,
	plan *matchv1.Plan,
	amount decimal.Decimal,
	asset string,
	now time.Time,
) (*Result, error) {
	if err := e.ledger.CanAppend(len(plan.Fills)); err != nil {
		return nil, err
	}
	if err := Reserve(ctx, e.custodian, order.Owner, asset, amount); err != nil {
		return nil, err
	}
	order.Reserved = amount
	order.ReservedAsset = asset

	trades := make([]*tradev1.Trade, 0, len(plan.Fills))
	for _, fill := range plan.Fills {
		trades = append(trades, tradev1.NewTrade(util.NewID(), tradev1.Execution{
			InstrumentID: inst.ID,
			MakerOrderID: fill.Maker.ID,
			TakerOrderID: order.ID,
			Maker:        fill.Maker.Owner,
			Taker:        order.Owner,
			TakerSide:    order.Side,
			Quantity:     fill.Quantity,
			Price:        fill.Price,
			MakerFeeBps:  inst.MakerFeeBps,
			TakerFeeBps:  inst.TakerFeeBps,
			ExecutedAt:   now,
		}))
	}
	if err := e.ledger.Append(ctx, trades...); err != nil {
		e.release(ctx, order)
		return nil, err
	}

	if err := m.Orders.Admit(order); err != nil {
		return nil, errors.NewFatalError(errors.ErrInvalidTransition, fmt.Sprintf("admit order %s after ledger append: %s", order.ID, err))
	}
	events := []eventv1.Event{eventv1.NewOrderEvent(eventv1.OrderPlaced, order, now)}

	for _, expired := range plan.Expired {
		if err := e.expire(ctx, m, expired, now); err != nil {
			return nil, errors.NewFatalError(errors.ErrInvalidTransition, err.Error())
		}
		events = append(events, eventv1.NewOrderEvent(eventv1.OrderExpired, expired, now))
	}

	for i, fill := range plan.Fills {
		if err := e.commitFill(ctx, m, order, fill, now); err != nil {
			return nil, errors.NewFatalError(errors.ErrInvalidTransition, err.Error())
		}
		events = append(events,
			eventv1.NewTradeEvent(trades[i]),
			eventv1.NewFillEvent(fill.Maker, now),
			eventv1.NewFillEvent(order, now),
		)
	}

	if order.IsOpen() {
		switch {
		case order.Type == orderv1.TypeMarket:
			if err := m.Orders.Close(order, now); err != nil {
				return nil, errors.NewFatalError(errors.ErrInvalidTransition, err.Error())
			}
		case order.TimeInForce == orderv1.GTC || order.TimeInForce == orderv1.GTD:
			if err := m.Book.Add(order); err != nil {
				return nil, errors.NewFatalError(errors.ErrInvalidTransition, err.Error())
			}
		default:
			if err := m.Orders.Cancel(order, now); err != nil {
				return nil, errors.NewFatalError(errors.ErrInvalidTransition, err.Error())
			}
			events = append(events, eventv1.NewOrderEvent(eventv1.OrderCancelled, order, now))
		}
	}
	if !order.IsOpen() {
		e.release(ctx, order)
	}

	for _, t := range trades {
		e.settle(ctx, inst, t)
	}

	e.logger.InfoContext(ctx, "order placed",
		logger.Field{Key: "order_id", Value: order.ID},
		logger.Field{Key: "instrument_id", Value: inst.ID},
		logger.Field{Key: "status", Value: order.Status},
		logger.Field{Key: "trades", Value: len(trades)},
	)
	e.sink.Emit(events...)

	return &Result{Order: order.Clone(), Trades: cloneTrades(trades)}, nil
}

func (e *Engine) commitFill(ctx context.Context, m *market.Market, taker *orderv1.Order, fill matchv1.Fill, now time.Time) error {
	maker := fill.Maker
	if err := m.Orders.Fill(maker, fill.Quantity, now); err != nil {
		return err
	}
	if err := m.Orders.Fill(taker, fill.Quantity, now); err != nil {
		return err
	}
	if err := m.Book.Reduce(maker.ID, fill.Quantity); err != nil {
		return err
	}

	maker.Consume(consumed(maker.Side, fill))
	taker.Consume(consumed(taker.Side, fill))
	if !maker.IsOpen() {
		e.release(ctx, maker)
	}
	return nil
}

// consumed is the part of a reservation a fill uses up: quote notional for buyers, base quantity for sellers.
func consumed(side orderv1.Side, fill matchv1.Fill) decimal.Decimal {
	if side == orderv1.SideBuy {
		return fill.Notional()
	}
	return fill.Quantity
}

func (e *Engine) release(ctx context.Context, order *orderv1.Order) {
	if !order.Reserved.IsPositive() {
		return
	}
	if err := e.custodian.Release(ctx, order.Owner, order.ReservedAsset, order.Reserved); err != nil {
		e.logger.ErrorContext(ctx, errors.TracerFromError(err),
			logger.Field{Key: "order_id", Value: order.ID},
			logger.Field{Key: "amount", Value: order.Reserved.String()},
		)
	}
	order.Reserved = decimal.Zero
}

func (e *Engine) settle(ctx context.Context, inst *instrumentv1.Instrument, t *tradev1.Trade) {
	err := e.custodian.Settle(ctx, collateralv1.Settlement{Trade: t, BaseAsset: inst.BaseAsset, QuoteAsset: inst.QuoteAsset})
	if err != nil {
		e.logger.ErrorContext(ctx, errors.TracerFromError(err), logger.Field{Key: "trade_id", Value: t.ID})
	}
}

func cloneTrades(trades []*tradev1.Trade) []*tradev1.Trade {
	out := make([]*tradev1.Trade, 0, len(trades))
	for _, t := range trades {
		c := *t
		out = append(out, &c)
	}
	return out
}
