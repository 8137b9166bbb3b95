package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	collateralv1 "github.com/muhammadchandra19/exchange-core/internal/domain/collateral/v1"
	eventv1 "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1"
	instrumentv1 "github.com/muhammadchandra19/exchange-core/internal/domain/instrument/v1"
	marketdatav1 "github.com/muhammadchandra19/exchange-core/internal/domain/marketdata/v1"
	orderbookv1 "github.com/muhammadchandra19/exchange-core/internal/domain/orderbook/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	rfqv1 "github.com/muhammadchandra19/exchange-core/internal/domain/rfq/v1"
	snapshotv1 "github.com/muhammadchandra19/exchange-core/internal/domain/snapshot/v1"
	tradev1 "github.com/muhammadchandra19/exchange-core/internal/domain/trade/v1"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/instrument"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/ledger"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/market"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/marketdata"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/matching"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/rfq"
	"github.com/muhammadchandra19/exchange-core/pkg/config"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
	"github.com/shopspring/decimal"
)

// Options configures the components behind the exchange.
type Options struct {
	Matching matching.Options
	Feed     marketdata.Options
	Ledger   ledger.Options
}

// DefaultOptions returns the defaults of every component.
func DefaultOptions() Options {
	return Options{
		Feed: marketdata.DefaultOptions(),
	}
}

// OptionsFromConfig maps the engine configuration onto component options.
func OptionsFromConfig(cfg config.EngineConfig) Options {
	feed := marketdata.DefaultOptions()
	feed.ThresholdBps = cfg.ArbitrageThresholdBps
	feed.TTL = cfg.ArbitrageTTL
	feed.Window = cfg.MarketDataWindow

	return Options{
		Matching: matching.Options{DefaultSlippageBps: cfg.DefaultSlippageBps},
		Feed:     feed,
		Ledger:   ledger.Options{MaxTrades: cfg.MaxTrades},
	}
}

// Exchange is the entry point of the matching core. Every mutation of an instrument
// runs behind that instrument's sequencer; different instruments proceed in parallel.
type Exchange struct {
	markets sync.Map // instrument id -> *market.Market
	orders  sync.Map // order id -> instrument id
	rfqs    sync.Map // rfq id -> instrument id

	registry *instrument.Registry
	ledger   *ledger.Ledger
	feed     *marketdata.Feed
	matching *matching.Engine
	rfq      *rfq.Engine

	custodian collateralv1.Custodian
	clock     util.Clock
	logger    logger.Interface
}

// NewExchange wires the core components around the given collaborators.
func NewExchange(
	custodian collateralv1.Custodian,
	authorizer collateralv1.Authorizer,
	sink eventv1.Sink,
	clock util.Clock,
	log logger.Interface,
	opts Options,
) *Exchange {
	registry := instrument.NewRegistry(clock, log)
	tradeLedger := ledger.NewLedger(opts.Ledger, log)

	return &Exchange{
		registry: registry,
		ledger:   tradeLedger,
		feed:     marketdata.NewFeed(registry, sink, clock, log, opts.Feed),
		matching: matching.NewEngine(tradeLedger, custodian, authorizer, sink, clock, log, opts.Matching),
		rfq:      rfq.NewEngine(tradeLedger, custodian, authorizer, sink, clock, log),

		custodian: custodian,
		clock:     clock,
		logger:    log,
	}
}

// CreateInstrument registers an instrument and opens its market.
func (e *Exchange) CreateInstrument(ctx context.Context, params instrumentv1.CreateInstrumentParams) (*instrumentv1.Instrument, error) {
	inst, err := e.registry.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	e.markets.Store(inst.ID, market.New(inst.ID))
	return inst, nil
}

// UpdateFees changes the fee schedule applied to later trades.
func (e *Exchange) UpdateFees(ctx context.Context, instrumentID string, makerBps, takerBps int64) (*instrumentv1.Instrument, error) {
	return e.registry.UpdateFees(ctx, instrumentID, makerBps, takerBps)
}

// UpdateLimits changes the order size limits applied to later orders.
func (e *Exchange) UpdateLimits(ctx context.Context, instrumentID string, minSize, maxSize decimal.Decimal) (*instrumentv1.Instrument, error) {
	return e.registry.UpdateLimits(ctx, instrumentID, minSize, maxSize)
}

// DeactivateInstrument stops new orders, RFQs and quotes. Resting orders stay cancellable.
func (e *Exchange) DeactivateInstrument(ctx context.Context, instrumentID string) (*instrumentv1.Instrument, error) {
	return e.registry.Deactivate(ctx, instrumentID)
}

// Instrument returns a copy of the instrument.
func (e *Exchange) Instrument(instrumentID string) (*instrumentv1.Instrument, error) {
	return e.registry.Get(instrumentID)
}

// Instruments returns copies of every instrument.
func (e *Exchange) Instruments() []*instrumentv1.Instrument {
	return e.registry.List()
}

// PlaceLimitOrder matches a limit order and rests or cancels its remainder.
func (e *Exchange) PlaceLimitOrder(ctx context.Context, req orderv1.PlaceOrderRequest) (*matching.Result, error) {
	return e.place(ctx, req, e.matching.PlaceLimit)
}

// PlaceMarketOrder sweeps the opposite side of the book.
func (e *Exchange) PlaceMarketOrder(ctx context.Context, req orderv1.PlaceOrderRequest) (*matching.Result, error) {
	return e.place(ctx, req, e.matching.PlaceMarket)
}

type placeFunc func(context.Context, *market.Market, *instrumentv1.Instrument, orderv1.PlaceOrderRequest) (*matching.Result, error)

func (e *Exchange) place(ctx context.Context, req orderv1.PlaceOrderRequest, fn placeFunc) (*matching.Result, error) {
	m, inst, err := e.resolve(req.InstrumentID)
	if err != nil {
		return nil, err
	}

	var result *matching.Result
	err = m.Sequence(func() error {
		res, err := fn(ctx, m, inst, req)
		if err != nil {
			return err
		}
		e.orders.Store(res.Order.ID, inst.ID)
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelOrder cancels an open order on behalf of caller.
func (e *Exchange) CancelOrder(ctx context.Context, caller, orderID string) (*orderv1.Order, error) {
	m, err := e.marketOf(&e.orders, orderID, errors.ErrOrderNotFound, "order")
	if err != nil {
		return nil, err
	}

	var cancelled *orderv1.Order
	err = m.Sequence(func() error {
		o, err := e.matching.Cancel(ctx, m, caller, orderID)
		cancelled = o
		return err
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// CreateRFQ opens a request for quote backed by an rfq order.
func (e *Exchange) CreateRFQ(ctx context.Context, req rfqv1.CreateRFQRequest) (*rfqv1.RFQ, error) {
	m, inst, err := e.resolve(req.InstrumentID)
	if err != nil {
		return nil, err
	}

	var created *rfqv1.RFQ
	err = m.Sequence(func() error {
		r, err := e.rfq.Create(ctx, m, inst, req)
		if err != nil {
			return err
		}
		e.rfqs.Store(r.ID, inst.ID)
		e.orders.Store(r.OrderID, inst.ID)
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SubmitQuote attaches a dealer quote to an open RFQ.
func (e *Exchange) SubmitQuote(ctx context.Context, req rfqv1.SubmitQuoteRequest) (*rfqv1.Quote, error) {
	m, inst, err := e.resolveRFQ(req.RFQID)
	if err != nil {
		return nil, err
	}

	var quote *rfqv1.Quote
	err = m.Sequence(func() error {
		q, err := e.rfq.SubmitQuote(ctx, m, inst, req)
		quote = q
		return err
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// AcceptQuote executes the live quote of an RFQ on behalf of its creator.
func (e *Exchange) AcceptQuote(ctx context.Context, caller, rfqID string) (*rfqv1.Acceptance, error) {
	m, inst, err := e.resolveRFQ(rfqID)
	if err != nil {
		return nil, err
	}

	var acceptance *rfqv1.Acceptance
	err = m.Sequence(func() error {
		a, err := e.rfq.Accept(ctx, m, inst, caller, rfqID)
		acceptance = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return acceptance, nil
}

// CancelRFQ cancels an RFQ and its order.
func (e *Exchange) CancelRFQ(ctx context.Context, caller, rfqID string) (*rfqv1.RFQ, error) {
	m, err := e.marketOf(&e.rfqs, rfqID, errors.ErrRFQNotFound, "rfq")
	if err != nil {
		return nil, err
	}

	var cancelled *rfqv1.RFQ
	err = m.Sequence(func() error {
		r, err := e.rfq.Cancel(ctx, m, caller, rfqID)
		cancelled = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// UpdateMarketData applies a producer push and returns the opportunities it raised.
func (e *Exchange) UpdateMarketData(ctx context.Context, u marketdatav1.Update) (*marketdatav1.Snapshot, []*marketdatav1.ArbitrageOpportunity, error) {
	return e.feed.Update(ctx, u)
}

// ResetWindow clears the rolling statistics window until the next update.
func (e *Exchange) ResetWindow(ctx context.Context, instrumentID string) (*marketdatav1.Snapshot, error) {
	return e.feed.ResetWindow(ctx, instrumentID)
}

// MarketSnapshot returns the market data view of an instrument.
func (e *Exchange) MarketSnapshot(instrumentID string) (*marketdatav1.Snapshot, error) {
	return e.feed.Snapshot(instrumentID)
}

// ActiveOpportunities returns the unexpired arbitrage opportunities of an instrument.
func (e *Exchange) ActiveOpportunities(instrumentID string) []*marketdatav1.ArbitrageOpportunity {
	return e.feed.ActiveOpportunities(instrumentID)
}

// Depth returns up to levels aggregated price levels per side. Zero returns every level.
func (e *Exchange) Depth(instrumentID string, levels int) (orderbookv1.Depth, error) {
	m, err := e.market(instrumentID)
	if err != nil {
		return orderbookv1.Depth{}, err
	}

	var depth orderbookv1.Depth
	m.Read(func() {
		depth = m.Book.Depth(levels)
	})
	return depth, nil
}

// Order returns a copy of an order. An open order past its expiry is expired first.
func (e *Exchange) Order(ctx context.Context, orderID string) (*orderv1.Order, error) {
	m, err := e.marketOf(&e.orders, orderID, errors.ErrOrderNotFound, "order")
	if err != nil {
		return nil, err
	}

	var (
		order *orderv1.Order
		due   bool
	)
	m.Read(func() {
		o, ok := m.Orders.Get(orderID)
		if !ok {
			return
		}
		order = o.Clone()
		due = o.IsOpen() && o.IsExpired(e.clock.Now())
	})
	if order == nil {
		return nil, errors.NewNotFoundError(errors.ErrOrderNotFound, fmt.Sprintf("order %s not found", orderID))
	}
	if !due {
		return order, nil
	}

	err = m.Sequence(func() error {
		o, _ := m.Orders.Get(orderID)
		if o.IsOpen() && o.IsExpired(e.clock.Now()) {
			if err := e.matching.ExpireOrder(ctx, m, o, e.clock.Now()); err != nil {
				return err
			}
		}
		order = o.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// RFQ returns a copy of an RFQ with its current quote.
func (e *Exchange) RFQ(rfqID string) (*rfqv1.RFQ, error) {
	m, err := e.marketOf(&e.rfqs, rfqID, errors.ErrRFQNotFound, "rfq")
	if err != nil {
		return nil, err
	}

	var r *rfqv1.RFQ
	m.Read(func() {
		if found, ok := m.RFQs[rfqID]; ok {
			r = found.Clone()
		}
	})
	if r == nil {
		return nil, errors.NewNotFoundError(errors.ErrRFQNotFound, fmt.Sprintf("rfq %s not found", rfqID))
	}
	return r, nil
}

// Trades returns the trades of an instrument recorded since start or restore.
func (e *Exchange) Trades(instrumentID string) []*tradev1.Trade {
	return e.ledger.Trades(instrumentID)
}

// LedgerStats returns the aggregates of an instrument.
func (e *Exchange) LedgerStats(instrumentID string) tradev1.Stats {
	return e.ledger.Stats(instrumentID)
}

// GlobalStats returns the aggregates of every instrument.
func (e *Exchange) GlobalStats() tradev1.Stats {
	return e.ledger.GlobalStats()
}

// VerifyLedger replays the trade log against the running aggregates.
func (e *Exchange) VerifyLedger() error {
	return e.ledger.Verify()
}

// Halted returns the fatal error that stopped an instrument, if any.
func (e *Exchange) Halted(instrumentID string) error {
	m, err := e.market(instrumentID)
	if err != nil {
		return err
	}
	return m.Halted()
}

// ExpireDue evicts every open order past its expiry and returns how many were expired.
// Halted instruments are skipped.
func (e *Exchange) ExpireDue(ctx context.Context) (int, error) {
	total := 0
	for _, m := range e.sortedMarkets() {
		if m.Halted() != nil {
			continue
		}
		err := m.Sequence(func() error {
			n, err := e.matching.ExpireDue(ctx, m)
			total += n
			return err
		})
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Snapshot captures instruments, open orders, RFQs, market data and ledger aggregates.
// Each market is read under its own lock; callers that need a single point in time
// must stop mutations while it runs.
func (e *Exchange) Snapshot() *snapshotv1.Snapshot {
	snap := &snapshotv1.Snapshot{
		TakenAt:       e.clock.Now(),
		Instruments:   e.registry.List(),
		MarketData:    e.feed.Snapshots(),
		GlobalStats:   e.ledger.GlobalStats(),
		TradeSequence: e.ledger.Sequence(),
	}

	for _, m := range e.sortedMarkets() {
		ms := snapshotv1.MarketSnapshot{
			InstrumentID: m.InstrumentID,
			Stats:        e.ledger.Stats(m.InstrumentID),
		}
		m.Read(func() {
			ms.OrderSequence = m.Orders.Sequence()
			for _, o := range m.Book.Orders() {
				ms.Orders = append(ms.Orders, o.Clone())
			}
			for _, o := range m.Orders.Open() {
				if !m.Book.Contains(o.ID) {
					ms.Orders = append(ms.Orders, o.Clone())
				}
			}
			for _, r := range m.OpenRFQs() {
				ms.RFQs = append(ms.RFQs, r.Clone())
			}
		})
		snap.Markets = append(snap.Markets, ms)
	}
	return snap
}

// Restore replaces the whole exchange state with snap and takes back the custody
// reservations of its open orders. It must run before any other call.
func (e *Exchange) Restore(ctx context.Context, snap *snapshotv1.Snapshot) error {
	if err := e.registry.Restore(snap.Instruments); err != nil {
		return errors.TracerFromError(err)
	}

	e.markets.Range(func(k, _ any) bool { e.markets.Delete(k); return true })
	e.orders.Range(func(k, _ any) bool { e.orders.Delete(k); return true })
	e.rfqs.Range(func(k, _ any) bool { e.rfqs.Delete(k); return true })
	for _, inst := range snap.Instruments {
		e.markets.Store(inst.ID, market.New(inst.ID))
	}

	perInstrument := make(map[string]tradev1.Stats, len(snap.Markets))
	for _, ms := range snap.Markets {
		m, err := e.market(ms.InstrumentID)
		if err != nil {
			return err
		}

		orders := make([]*orderv1.Order, 0, len(ms.Orders))
		for _, o := range ms.Orders {
			orders = append(orders, o.Clone())
		}
		m.Orders.Restore(orders, ms.OrderSequence)
		for _, o := range orders {
			e.orders.Store(o.ID, m.InstrumentID)
			if o.IsOpen() && o.Reserved.IsPositive() {
				if err := matching.Reserve(ctx, e.custodian, o.Owner, o.ReservedAsset, o.Reserved); err != nil {
					return errors.NewTracer(fmt.Sprintf("restore reservation of order %s", o.ID)).Wrap(err)
				}
			}
			if o.Type != orderv1.TypeLimit || !o.IsOpen() {
				continue
			}
			if err := m.Book.Add(o); err != nil {
				return errors.NewTracer(fmt.Sprintf("restore order %s", o.ID)).Wrap(err)
			}
		}
		for _, r := range ms.RFQs {
			m.RFQs[r.ID] = r.Clone()
			e.rfqs.Store(r.ID, m.InstrumentID)
		}
		if ms.Stats.TradeCount > 0 {
			perInstrument[ms.InstrumentID] = ms.Stats
		}
	}

	e.ledger.Restore(snap.GlobalStats, perInstrument, snap.TradeSequence)
	e.feed.Restore(snap.MarketData)

	e.logger.Info("exchange restored",
		logger.Field{Key: "instruments", Value: len(snap.Instruments)},
		logger.Field{Key: "trade_sequence", Value: snap.TradeSequence},
	)
	return nil
}

func (e *Exchange) market(instrumentID string) (*market.Market, error) {
	v, ok := e.markets.Load(instrumentID)
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrInstrumentNotFound, fmt.Sprintf("instrument %s not found", instrumentID))
	}
	return v.(*market.Market), nil
}

// resolve returns the market together with a copy of its current instrument definition.
func (e *Exchange) resolve(instrumentID string) (*market.Market, *instrumentv1.Instrument, error) {
	inst, err := e.registry.Get(instrumentID)
	if err != nil {
		return nil, nil, err
	}
	m, err := e.market(instrumentID)
	if err != nil {
		return nil, nil, err
	}
	return m, inst, nil
}

func (e *Exchange) resolveRFQ(rfqID string) (*market.Market, *instrumentv1.Instrument, error) {
	v, ok := e.rfqs.Load(rfqID)
	if !ok {
		return nil, nil, errors.NewNotFoundError(errors.ErrRFQNotFound, fmt.Sprintf("rfq %s not found", rfqID))
	}
	return e.resolve(v.(string))
}

func (e *Exchange) marketOf(index *sync.Map, id string, code errors.ErrorCode, kind string) (*market.Market, error) {
	v, ok := index.Load(id)
	if !ok {
		return nil, errors.NewNotFoundError(code, fmt.Sprintf("%s %s not found", kind, id))
	}
	return e.market(v.(string))
}

func (e *Exchange) sortedMarkets() []*market.Market {
	var markets []*market.Market
	e.markets.Range(func(_, v any) bool {
		markets = append(markets, v.(*market.Market))
		return true
	})
	sort.Slice(markets, func(i, j int) bool { return markets[i].InstrumentID < markets[j].InstrumentID })
	return markets
}
