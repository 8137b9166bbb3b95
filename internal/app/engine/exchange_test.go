package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	eventv1 "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1"
	instrumentv1 "github.com/muhammadchandra19/exchange-core/internal/domain/instrument/v1"
	marketdatav1 "github.com/muhammadchandra19/exchange-core/internal/domain/marketdata/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	rfqv1 "github.com/muhammadchandra19/exchange-core/internal/domain/rfq/v1"
	snapshotv1 "github.com/muhammadchandra19/exchange-core/internal/domain/snapshot/v1"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/collateral"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/ledger"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/matching"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type recordingBus struct {
	mu       sync.Mutex
	events   []eventv1.Event
	sequence uint64
}

func (b *recordingBus) Emit(events ...eventv1.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range events {
		b.sequence++
		e.Sequence = b.sequence
		b.events = append(b.events, e)
	}
}

func (b *recordingBus) Sequence() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sequence
}

func (b *recordingBus) Restore(sequence uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sequence = sequence
}

func (b *recordingBus) ofType(typ eventv1.Type) []eventv1.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []eventv1.Event
	for _, e := range b.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	clock    *util.ManualClock
	bus      *recordingBus
	exchange *Exchange
	inst     *instrumentv1.Instrument
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	log := logger.NewNopLogger()
	f := &fixture{
		clock: util.NewManualClock(t0),
		bus:   &recordingBus{},
	}
	f.exchange = NewExchange(collateral.NewCustodian(true, log), collateral.AllowAll{}, f.bus, f.clock, log, opts)
	f.inst = f.instrument(t, "BTC")
	return f
}

func (f *fixture) instrument(t *testing.T, base string) *instrumentv1.Instrument {
	t.Helper()
	inst, err := f.exchange.CreateInstrument(context.Background(), instrumentv1.CreateInstrumentParams{
		BaseAsset:    base,
		QuoteAsset:   "USD",
		Class:        instrumentv1.AssetClassSpot,
		TickSize:     d(1),
		LotSize:      d(1),
		MinOrderSize: d(1),
		MaxOrderSize: d(10_000),
		MakerFeeBps:  10,
		TakerFeeBps:  20,
	})
	require.NoError(t, err)
	return inst
}

func (f *fixture) limit(owner string, side orderv1.Side, qty, price int64) (*matching.Result, error) {
	return f.exchange.PlaceLimitOrder(context.Background(), orderv1.PlaceOrderRequest{
		InstrumentID: f.inst.ID,
		Owner:        owner,
		Side:         side,
		Quantity:     d(qty),
		Price:        d(price),
		TimeInForce:  orderv1.GTC,
	})
}

func (f *fixture) mustLimit(t *testing.T, owner string, side orderv1.Side, qty, price int64) *matching.Result {
	t.Helper()
	res, err := f.limit(owner, side, qty, price)
	require.NoError(t, err)
	return res
}

func (f *fixture) order(t *testing.T, id string) *orderv1.Order {
	t.Helper()
	o, err := f.exchange.Order(context.Background(), id)
	require.NoError(t, err)
	return o
}

func TestExchange_FullFill(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	buy := f.mustLimit(t, "alice", orderv1.SideBuy, 100, 10)
	sell := f.mustLimit(t, "bob", orderv1.SideSell, 100, 10)

	require.Len(t, sell.Trades, 1)
	trade := sell.Trades[0]
	assert.True(t, trade.Quantity.Equal(d(100)))
	assert.True(t, trade.Price.Equal(d(10)))
	assert.Equal(t, buy.Order.ID, trade.MakerOrderID)
	assert.Equal(t, sell.Order.ID, trade.TakerOrderID)

	assert.Equal(t, orderv1.StatusFilled, f.order(t, buy.Order.ID).Status)
	assert.Equal(t, orderv1.StatusFilled, sell.Order.Status)

	depth, err := f.exchange.Depth(f.inst.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, depth.Bids)
	assert.Empty(t, depth.Asks)
	assert.Len(t, f.bus.ofType(eventv1.TradeExecuted), 1)
}

func TestExchange_PartialFillRests(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	buy := f.mustLimit(t, "alice", orderv1.SideBuy, 150, 10)
	sell := f.mustLimit(t, "bob", orderv1.SideSell, 100, 10)

	require.Len(t, sell.Trades, 1)
	assert.True(t, sell.Trades[0].Quantity.Equal(d(100)))
	assert.True(t, sell.Trades[0].Price.Equal(d(10)))

	resting := f.order(t, buy.Order.ID)
	assert.Equal(t, orderv1.StatusPartial, resting.Status)
	assert.True(t, resting.RemainingQuantity.Equal(d(50)))
	assert.True(t, resting.FilledQuantity.Add(resting.RemainingQuantity).Equal(resting.Quantity))

	depth, err := f.exchange.Depth(f.inst.ID, 0)
	require.NoError(t, err)
	require.Len(t, depth.Bids, 1)
	assert.True(t, depth.Bids[0].Price.Equal(d(10)))
	assert.True(t, depth.Bids[0].Quantity.Equal(d(50)))
	assert.Equal(t, 1, depth.Bids[0].OrderCount)
}

func TestExchange_CancelRemovesFromBook(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()

	buy := f.mustLimit(t, "alice", orderv1.SideBuy, 100, 10)

	cancelled, err := f.exchange.CancelOrder(ctx, "alice", buy.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderv1.StatusCancelled, cancelled.Status)

	depth, err := f.exchange.Depth(f.inst.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, depth.Bids)

	sell := f.mustLimit(t, "bob", orderv1.SideSell, 100, 10)
	assert.Empty(t, sell.Trades)
	assert.Equal(t, orderv1.StatusPending, sell.Order.Status)

	_, err = f.exchange.CancelOrder(ctx, "alice", buy.Order.ID)
	assert.True(t, errors.IsState(err))
}

func TestExchange_CancelErrors(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()

	resting := f.mustLimit(t, "alice", orderv1.SideBuy, 10, 10)
	filled := f.mustLimit(t, "bob", orderv1.SideSell, 10, 10)
	open := f.mustLimit(t, "carol", orderv1.SideSell, 5, 12)

	testCases := []struct {
		name     string
		caller   string
		orderID  string
		assertFn func(t *testing.T, err error)
	}{
		{
			name:    "unknown order",
			caller:  "alice",
			orderID: "missing",
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsNotFound(err))
				assert.True(t, errors.ErrorCodeEquals(err, errors.ErrOrderNotFound))
			},
		},
		{
			name:    "not the owner",
			caller:  "mallory",
			orderID: open.Order.ID,
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsAuthorization(err))
			},
		},
		{
			name:    "cancel after fill",
			caller:  "alice",
			orderID: resting.Order.ID,
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsState(err))
			},
		},
		{
			name:    "taker filled on arrival",
			caller:  "bob",
			orderID: filled.Order.ID,
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsState(err))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.exchange.CancelOrder(ctx, tc.caller, tc.orderID)
			require.Error(t, err)
			tc.assertFn(t, err)
		})
	}

	assert.Equal(t, orderv1.StatusPending, f.order(t, open.Order.ID).Status)
}

func TestExchange_RFQPartialAcceptance(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()

	r, err := f.exchange.CreateRFQ(ctx, rfqv1.CreateRFQRequest{
		InstrumentID: f.inst.ID,
		Creator:      "taker",
		Side:         orderv1.SideBuy,
		Quantity:     d(1000),
	})
	require.NoError(t, err)

	_, err = f.exchange.SubmitQuote(ctx, rfqv1.SubmitQuoteRequest{
		RFQID:             r.ID,
		Dealer:            "dealer",
		Price:             d(5),
		AvailableQuantity: d(800),
		ExpiresAt:         t0.Add(time.Minute),
	})
	require.NoError(t, err)

	accepted, err := f.exchange.AcceptQuote(ctx, "taker", r.ID)
	require.NoError(t, err)

	assert.True(t, accepted.Trade.Quantity.Equal(d(800)))
	assert.True(t, accepted.Trade.Price.Equal(d(5)))
	assert.Equal(t, r.ID, accepted.Trade.RFQID)
	assert.Empty(t, accepted.Trade.TakerOrderID)
	assert.False(t, accepted.Quote.Active)
	assert.Equal(t, orderv1.StatusPartial, accepted.Order.Status)
	assert.True(t, accepted.Order.RemainingQuantity.Equal(d(200)))

	o := f.order(t, r.OrderID)
	assert.Equal(t, orderv1.StatusPartial, o.Status)

	_, err = f.exchange.AcceptQuote(ctx, "taker", r.ID)
	assert.True(t, errors.IsState(err))

	depth, err := f.exchange.Depth(f.inst.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, depth.Bids)

	stats := f.exchange.LedgerStats(f.inst.ID)
	assert.Equal(t, uint64(1), stats.TradeCount)
	assert.True(t, stats.QuoteVolume.Equal(d(4000)))
}

func TestExchange_SecondQuoteRejected(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()

	r, err := f.exchange.CreateRFQ(ctx, rfqv1.CreateRFQRequest{
		InstrumentID: f.inst.ID,
		Creator:      "taker",
		Side:         orderv1.SideSell,
		Quantity:     d(100),
	})
	require.NoError(t, err)

	quote := func(dealer string, price int64) error {
		_, err := f.exchange.SubmitQuote(ctx, rfqv1.SubmitQuoteRequest{
			RFQID:             r.ID,
			Dealer:            dealer,
			Price:             d(price),
			AvailableQuantity: d(100),
			ExpiresAt:         f.clock.Now().Add(time.Minute),
		})
		return err
	}

	require.NoError(t, quote("dealer-a", 10))
	err = quote("dealer-b", 11)
	assert.True(t, errors.IsState(err))
	assert.True(t, errors.ErrorCodeEquals(err, errors.ErrQuoteAlreadyActive))

	current, err := f.exchange.RFQ(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "dealer-a", current.Quote.Dealer)

	f.clock.Advance(2 * time.Minute)
	require.NoError(t, quote("dealer-b", 11))
}

func TestExchange_ArbitrageDetection(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	snap, opps, err := f.exchange.UpdateMarketData(context.Background(), marketdatav1.Update{
		InstrumentID: f.inst.ID,
		LastPrice:    d(101),
		Bid:          d(100),
		Ask:          d(102),
		Volume:       d(10),
	})
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.True(t, opps[0].ProfitBps.Round(0).Equal(d(196)))
	assert.Equal(t, t0.Add(5*time.Minute), opps[0].ExpiresAt)
	assert.True(t, snap.Spread().Equal(d(2)))
	assert.Len(t, f.bus.ofType(eventv1.ArbitrageDetected), 1)

	stored, err := f.exchange.MarketSnapshot(f.inst.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastPrice.Equal(d(101)))

	f.clock.Advance(5 * time.Minute)
	assert.Empty(t, f.exchange.ActiveOpportunities(f.inst.ID))
}

func TestExchange_RejectionLeavesNoTrace(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.mustLimit(t, "alice", orderv1.SideBuy, 10, 10)

	testCases := []struct {
		name     string
		req      orderv1.PlaceOrderRequest
		assertFn func(t *testing.T, err error)
	}{
		{
			name: "unknown instrument",
			req:  orderv1.PlaceOrderRequest{InstrumentID: "missing", Owner: "bob", Side: orderv1.SideSell, Quantity: d(10), Price: d(10), TimeInForce: orderv1.GTC},
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsNotFound(err))
			},
		},
		{
			name: "price off tick",
			req:  orderv1.PlaceOrderRequest{InstrumentID: f.inst.ID, Owner: "bob", Side: orderv1.SideSell, Quantity: d(10), Price: decimal.RequireFromString("9.5"), TimeInForce: orderv1.GTC},
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsValidation(err))
			},
		},
		{
			name: "below minimum size",
			req:  orderv1.PlaceOrderRequest{InstrumentID: f.inst.ID, Owner: "bob", Side: orderv1.SideSell, Quantity: d(0), Price: d(10), TimeInForce: orderv1.GTC},
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsValidation(err))
			},
		},
		{
			name: "fill or kill short of liquidity",
			req:  orderv1.PlaceOrderRequest{InstrumentID: f.inst.ID, Owner: "bob", Side: orderv1.SideSell, Quantity: d(20), Price: d(10), TimeInForce: orderv1.FOK},
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.ErrorCodeEquals(err, errors.ErrFillOrKillUnfilled))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.exchange.PlaceLimitOrder(context.Background(), tc.req)
			require.Error(t, err)
			tc.assertFn(t, err)

			depth, err := f.exchange.Depth(f.inst.ID, 0)
			require.NoError(t, err)
			require.Len(t, depth.Bids, 1)
			assert.True(t, depth.Bids[0].Quantity.Equal(d(10)))
			assert.Empty(t, depth.Asks)
			assert.Empty(t, f.exchange.Trades(f.inst.ID))
		})
	}
}

func TestExchange_MarketOrder(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()

	_, err := f.exchange.PlaceMarketOrder(ctx, orderv1.PlaceOrderRequest{
		InstrumentID: f.inst.ID, Owner: "bob", Side: orderv1.SideBuy, Quantity: d(5),
	})
	assert.True(t, errors.ErrorCodeEquals(err, errors.ErrInsufficientAskVolume))

	f.mustLimit(t, "alice", orderv1.SideSell, 3, 10)
	f.mustLimit(t, "carol", orderv1.SideSell, 3, 11)

	res, err := f.exchange.PlaceMarketOrder(ctx, orderv1.PlaceOrderRequest{
		InstrumentID: f.inst.ID, Owner: "bob", Side: orderv1.SideBuy, Quantity: d(5),
	})
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.True(t, res.Trades[0].Price.Equal(d(10)))
	assert.True(t, res.Trades[1].Price.Equal(d(11)))
	assert.True(t, res.Trades[1].Quantity.Equal(d(2)))
	assert.Equal(t, orderv1.StatusFilled, res.Order.Status)
}

func TestExchange_LazyExpiryOnQuery(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	res, err := f.exchange.PlaceLimitOrder(context.Background(), orderv1.PlaceOrderRequest{
		InstrumentID: f.inst.ID,
		Owner:        "alice",
		Side:         orderv1.SideBuy,
		Quantity:     d(10),
		Price:        d(10),
		TimeInForce:  orderv1.GTD,
		ExpiresAt:    t0.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, orderv1.StatusPending, f.order(t, res.Order.ID).Status)

	f.clock.Advance(2 * time.Minute)

	assert.Equal(t, orderv1.StatusExpired, f.order(t, res.Order.ID).Status)
	depth, err := f.exchange.Depth(f.inst.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, depth.Bids)
	assert.Len(t, f.bus.ofType(eventv1.OrderExpired), 1)
}

func TestExchange_ExpireDue(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	other := f.instrument(t, "ETH")

	for _, id := range []string{f.inst.ID, other.ID} {
		_, err := f.exchange.PlaceLimitOrder(context.Background(), orderv1.PlaceOrderRequest{
			InstrumentID: id,
			Owner:        "alice",
			Side:         orderv1.SideSell,
			Quantity:     d(1),
			Price:        d(20),
			TimeInForce:  orderv1.GTD,
			ExpiresAt:    t0.Add(time.Minute),
		})
		require.NoError(t, err)
	}
	f.mustLimit(t, "bob", orderv1.SideSell, 1, 21)

	n, err := f.exchange.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(time.Minute)
	n, err = f.exchange.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	depth, err := f.exchange.Depth(f.inst.ID, 0)
	require.NoError(t, err)
	require.Len(t, depth.Asks, 1)
	assert.True(t, depth.Asks[0].Price.Equal(d(21)))
}

func TestExchange_FatalLedgerConditionHaltsInstrument(t *testing.T) {
	opts := DefaultOptions()
	opts.Ledger = ledger.Options{MaxTrades: 1}
	f := newFixture(t, opts)
	other := f.instrument(t, "ETH")

	f.mustLimit(t, "alice", orderv1.SideBuy, 10, 10)
	f.mustLimit(t, "bob", orderv1.SideSell, 5, 10)

	_, err := f.limit("bob", orderv1.SideSell, 5, 10)
	require.True(t, errors.IsFatal(err))
	require.Error(t, f.exchange.Halted(f.inst.ID))

	_, err = f.limit("carol", orderv1.SideBuy, 1, 5)
	assert.True(t, errors.IsState(err))
	assert.True(t, errors.ErrorCodeEquals(err, errors.ErrInstrumentHalted))

	depth, err := f.exchange.Depth(f.inst.ID, 0)
	require.NoError(t, err)
	require.Len(t, depth.Bids, 1)
	assert.True(t, depth.Bids[0].Quantity.Equal(d(5)))

	_, err = f.exchange.PlaceLimitOrder(context.Background(), orderv1.PlaceOrderRequest{
		InstrumentID: other.ID, Owner: "carol", Side: orderv1.SideBuy, Quantity: d(1), Price: d(5), TimeInForce: orderv1.GTC,
	})
	assert.NoError(t, err)
	assert.NoError(t, f.exchange.Halted(other.ID))
	assert.NoError(t, f.exchange.VerifyLedger())
}

func TestExchange_SnapshotRestore(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()

	first := f.mustLimit(t, "alice", orderv1.SideBuy, 10, 10)
	second := f.mustLimit(t, "bob", orderv1.SideBuy, 10, 10)
	f.mustLimit(t, "carol", orderv1.SideSell, 4, 10)
	f.mustLimit(t, "carol", orderv1.SideSell, 7, 12)

	r, err := f.exchange.CreateRFQ(ctx, rfqv1.CreateRFQRequest{InstrumentID: f.inst.ID, Creator: "dave", Side: orderv1.SideBuy, Quantity: d(50)})
	require.NoError(t, err)
	_, err = f.exchange.SubmitQuote(ctx, rfqv1.SubmitQuoteRequest{RFQID: r.ID, Dealer: "erin", Price: d(11), AvailableQuantity: d(50), ExpiresAt: t0.Add(time.Hour)})
	require.NoError(t, err)
	_, _, err = f.exchange.UpdateMarketData(ctx, marketdatav1.Update{InstrumentID: f.inst.ID, LastPrice: d(10), Bid: d(10), Ask: d(12), Volume: d(4)})
	require.NoError(t, err)

	data, err := json.Marshal(f.exchange.Snapshot())
	require.NoError(t, err)
	var snap snapshotv1.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))

	restored := newFixture(t, DefaultOptions())
	require.NoError(t, restored.exchange.Restore(ctx, &snap))
	restored.inst = f.inst

	want, err := f.exchange.Depth(f.inst.ID, 0)
	require.NoError(t, err)
	got, err := restored.exchange.Depth(f.inst.ID, 0)
	require.NoError(t, err)
	require.Len(t, got.Bids, len(want.Bids))
	require.Len(t, got.Asks, len(want.Asks))
	for i := range want.Bids {
		assert.True(t, got.Bids[i].Quantity.Equal(want.Bids[i].Quantity))
	}

	partial := restored.order(t, first.Order.ID)
	assert.Equal(t, orderv1.StatusPartial, partial.Status)
	assert.True(t, partial.RemainingQuantity.Equal(d(6)))

	rfqCopy, err := restored.exchange.RFQ(r.ID)
	require.NoError(t, err)
	require.NotNil(t, rfqCopy.Quote)
	assert.True(t, rfqCopy.Quote.Active)

	assert.True(t, restored.exchange.GlobalStats().Equal(f.exchange.GlobalStats()))
	assert.True(t, restored.exchange.LedgerStats(f.inst.ID).Equal(f.exchange.LedgerStats(f.inst.ID)))
	assert.NoError(t, restored.exchange.VerifyLedger())

	md, err := restored.exchange.MarketSnapshot(f.inst.ID)
	require.NoError(t, err)
	assert.True(t, md.Ask.Equal(d(12)))

	// price-time priority survives the restore
	res := restored.mustLimit(t, "frank", orderv1.SideSell, 8, 10)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, first.Order.ID, res.Trades[0].MakerOrderID)
	assert.Equal(t, second.Order.ID, res.Trades[1].MakerOrderID)
	assert.Greater(t, res.Order.Sequence, partial.Sequence)

	accepted, err := restored.exchange.AcceptQuote(ctx, "dave", r.ID)
	require.NoError(t, err)
	assert.Equal(t, orderv1.StatusFilled, accepted.Order.Status)
	assert.NoError(t, restored.exchange.VerifyLedger())
}

func TestExchange_RestoreReservesCollateral(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNopLogger()
	balances := []string{"alice:USD:1000", "bob:BTC:10"}

	withCustodian := func(t *testing.T, entries []string) (*fixture, *collateral.Custodian) {
		custodian := collateral.NewCustodian(false, log)
		require.NoError(t, custodian.Seed(entries))
		f := &fixture{clock: util.NewManualClock(t0), bus: &recordingBus{}}
		f.exchange = NewExchange(custodian, collateral.AllowAll{}, f.bus, f.clock, log, DefaultOptions())
		return f, custodian
	}

	f, custodian := withCustodian(t, balances)
	f.inst = f.instrument(t, "BTC")
	f.mustLimit(t, "alice", orderv1.SideBuy, 10, 10)
	require.True(t, custodian.Balance("alice", "USD").Held.Equal(d(100)))
	snap := f.exchange.Snapshot()

	restored, restoredCustodian := withCustodian(t, balances)
	require.NoError(t, restored.exchange.Restore(ctx, snap))
	restored.inst = f.inst

	alice := restoredCustodian.Balance("alice", "USD")
	assert.True(t, alice.Held.Equal(d(100)))
	assert.True(t, alice.Available.Equal(d(900)))

	res := restored.mustLimit(t, "bob", orderv1.SideSell, 10, 10)
	require.Len(t, res.Trades, 1)
	assert.True(t, restoredCustodian.Balance("alice", "USD").Held.IsZero())
	assert.True(t, restoredCustodian.Balance("alice", "BTC").Available.Equal(d(10)))
	assert.True(t, restoredCustodian.Balance("bob", "USD").Available.Equal(d(100)))
	assert.True(t, restoredCustodian.Balance("bob", "BTC").Held.IsZero())

	short, _ := withCustodian(t, []string{"alice:USD:50"})
	assert.Error(t, short.exchange.Restore(ctx, snap))
}

func TestExchange_ConcurrentInstruments(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	instruments := []*instrumentv1.Instrument{f.inst, f.instrument(t, "ETH"), f.instrument(t, "SOL")}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []string
	)
	for _, inst := range instruments {
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(instrumentID string, worker int) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					side := orderv1.SideBuy
					if (i+worker)%2 == 0 {
						side = orderv1.SideSell
					}
					res, err := f.exchange.PlaceLimitOrder(context.Background(), orderv1.PlaceOrderRequest{
						InstrumentID: instrumentID,
						Owner:        fmt.Sprintf("trader-%d", worker),
						Side:         side,
						Quantity:     d(int64(1 + i%3)),
						Price:        d(int64(99 + i%3)),
						TimeInForce:  orderv1.GTC,
					})
					if !assert.NoError(t, err) {
						return
					}
					mu.Lock()
					ids = append(ids, res.Order.ID)
					mu.Unlock()
				}
			}(inst.ID, w)
		}
	}
	wg.Wait()

	require.NoError(t, f.exchange.VerifyLedger())

	var trades uint64
	for _, inst := range instruments {
		trades += uint64(len(f.exchange.Trades(inst.ID)))

		depth, err := f.exchange.Depth(inst.ID, 1)
		require.NoError(t, err)
		if len(depth.Bids) > 0 && len(depth.Asks) > 0 {
			assert.True(t, depth.Bids[0].Price.LessThan(depth.Asks[0].Price), "book of %s is crossed", inst.ID)
		}
	}
	assert.Equal(t, f.exchange.GlobalStats().TradeCount, trades)

	for _, id := range ids {
		o := f.order(t, id)
		assert.True(t, o.FilledQuantity.Add(o.RemainingQuantity).Equal(o.Quantity))
		assert.False(t, o.FilledQuantity.IsNegative())
	}
}
