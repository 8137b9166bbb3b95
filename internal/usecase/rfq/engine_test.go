package rfq

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	collateralv1_mock "github.com/muhammadchandra19/exchange-core/internal/domain/collateral/v1/mock"
	eventv1 "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1"
	eventv1_mock "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1/mock"
	instrumentv1 "github.com/muhammadchandra19/exchange-core/internal/domain/instrument/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	rfqv1 "github.com/muhammadchandra19/exchange-core/internal/domain/rfq/v1"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/collateral"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/ledger"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/market"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type fixture struct {
	clock     *util.ManualClock
	ledger    *ledger.Ledger
	custodian *collateral.Custodian
	events    []eventv1.Event
	engine    *Engine
	market    *market.Market
	inst      *instrumentv1.Instrument
}

func (f *fixture) Emit(events ...eventv1.Event) {
	f.events = append(f.events, events...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNopLogger()
	f := &fixture{
		clock:     util.NewManualClock(t0),
		ledger:    ledger.NewLedger(ledger.Options{}, log),
		custodian: collateral.NewCustodian(false, log),
		market:    market.New("bond-usd"),
		inst: &instrumentv1.Instrument{
			ID:           "bond-usd",
			BaseAsset:    "BOND",
			QuoteAsset:   "USD",
			Class:        instrumentv1.AssetClassBond,
			TickSize:     decimal.RequireFromString("0.01"),
			LotSize:      dec(1),
			MinOrderSize: dec(1),
			MaxOrderSize: dec(100_000),
			MakerFeeBps:  5,
			TakerFeeBps:  10,
			Active:       true,
		},
	}
	require.NoError(t, f.custodian.Seed([]string{"taker:USD:100000", "dealer:BOND:5000", "dealer2:BOND:5000"}))
	f.engine = NewEngine(f.ledger, f.custodian, collateral.AllowAll{}, f, f.clock, log)
	return f
}

func (f *fixture) create(t *testing.T, creator string, side orderv1.Side, qty int64) *rfqv1.RFQ {
	t.Helper()
	var r *rfqv1.RFQ
	require.NoError(t, f.market.Sequence(func() error {
		var err error
		r, err = f.engine.Create(context.Background(), f.market, f.inst, rfqv1.CreateRFQRequest{
			InstrumentID: f.inst.ID,
			Creator:      creator,
			Side:         side,
			Quantity:     dec(qty),
		})
		return err
	}))
	return r
}

func (f *fixture) quote(rfqID, dealer string, price decimal.Decimal, qty int64, ttl time.Duration) (*rfqv1.Quote, error) {
	var q *rfqv1.Quote
	err := f.market.Sequence(func() error {
		var err error
		q, err = f.engine.SubmitQuote(context.Background(), f.market, f.inst, rfqv1.SubmitQuoteRequest{
			RFQID:             rfqID,
			Dealer:            dealer,
			Price:             price,
			AvailableQuantity: dec(qty),
			ExpiresAt:         f.clock.Now().Add(ttl),
		})
		return err
	})
	return q, err
}

func (f *fixture) accept(caller, rfqID string) (*rfqv1.Acceptance, error) {
	var a *rfqv1.Acceptance
	err := f.market.Sequence(func() error {
		var err error
		a, err = f.engine.Accept(context.Background(), f.market, f.inst, caller, rfqID)
		return err
	})
	return a, err
}

func (f *fixture) cancel(caller, rfqID string) (*rfqv1.RFQ, error) {
	var r *rfqv1.RFQ
	err := f.market.Sequence(func() error {
		var err error
		r, err = f.engine.Cancel(context.Background(), f.market, caller, rfqID)
		return err
	})
	return r, err
}

func TestEngine_PartialAcceptance(t *testing.T) {
	f := newFixture(t)

	r := f.create(t, "taker", orderv1.SideBuy, 1000)
	assert.Equal(t, 0, f.market.Book.Len())

	_, err := f.quote(r.ID, "dealer", dec(5), 800, time.Minute)
	require.NoError(t, err)

	a, err := f.accept("taker", r.ID)
	require.NoError(t, err)

	assert.True(t, a.Trade.Quantity.Equal(dec(800)))
	assert.True(t, a.Trade.Price.Equal(dec(5)))
	assert.Equal(t, r.ID, a.Trade.RFQID)
	assert.Equal(t, r.OrderID, a.Trade.MakerOrderID)
	assert.Empty(t, a.Trade.TakerOrderID)
	assert.Equal(t, "dealer", a.Trade.Taker)
	assert.Equal(t, orderv1.SideSell, a.Trade.TakerSide)
	assert.True(t, a.Trade.MakerFee.Equal(dec(2)))
	assert.True(t, a.Trade.TakerFee.Equal(dec(4)))

	assert.False(t, a.Quote.Active)
	assert.Equal(t, orderv1.StatusPartial, a.Order.Status)
	assert.True(t, a.Order.RemainingQuantity.Equal(dec(200)))

	assert.True(t, f.custodian.Balance("taker", "BOND").Available.Equal(dec(800)))
	assert.True(t, f.custodian.Balance("taker", "USD").Available.Equal(dec(96_000)))
	assert.True(t, f.custodian.Balance("dealer", "USD").Available.Equal(dec(4000)))
	assert.True(t, f.custodian.Balance("dealer", "BOND").Available.Equal(dec(4200)))
	assert.NoError(t, f.ledger.Verify())

	_, err = f.accept("taker", r.ID)
	assert.True(t, errors.IsState(err))
	assert.True(t, errors.ErrorCodeEquals(err, errors.ErrQuoteInactive))

	_, err = f.quote(r.ID, "dealer2", decimal.RequireFromString("5.01"), 500, time.Minute)
	require.NoError(t, err)
	a, err = f.accept("taker", r.ID)
	require.NoError(t, err)
	assert.True(t, a.Trade.Quantity.Equal(dec(200)))
	assert.Equal(t, orderv1.StatusFilled, a.Order.Status)

	_, err = f.quote(r.ID, "dealer", dec(5), 10, time.Minute)
	assert.True(t, errors.ErrorCodeEquals(err, errors.ErrRFQClosed))
}

func TestEngine_SecondQuoteRejected(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "taker", orderv1.SideBuy, 100)

	first, err := f.quote(r.ID, "dealer", dec(5), 100, time.Minute)
	require.NoError(t, err)

	_, err = f.quote(r.ID, "dealer2", decimal.RequireFromString("4.99"), 100, time.Minute)
	assert.True(t, errors.IsState(err))
	assert.True(t, errors.ErrorCodeEquals(err, errors.ErrQuoteAlreadyActive))
	assert.Equal(t, first.ID, f.market.RFQs[r.ID].Quote.ID)

	f.clock.Advance(time.Minute)
	second, err := f.quote(r.ID, "dealer2", decimal.RequireFromString("4.99"), 100, time.Minute)
	require.NoError(t, err, "an expired quote no longer blocks")
	assert.NotEqual(t, first.ID, second.ID)
}

func TestEngine_AcceptExpiredQuote(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "taker", orderv1.SideBuy, 100)

	_, err := f.quote(r.ID, "dealer", dec(5), 100, time.Minute)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	_, err = f.accept("taker", r.ID)
	assert.True(t, errors.IsExpiry(err))
	assert.False(t, f.market.RFQs[r.ID].Quote.Active)

	_, err = f.accept("taker", r.ID)
	assert.True(t, errors.IsState(err), "an expired quote can never be accepted again")
	assert.Equal(t, uint64(0), f.ledger.GlobalStats().TradeCount)
}

func TestEngine_SubmitQuoteValidation(t *testing.T) {
	testCases := []struct {
		name     string
		rfqID    func(r *rfqv1.RFQ) string
		dealer   string
		price    decimal.Decimal
		qty      int64
		ttl      time.Duration
		assertFn func(t *testing.T, err error)
	}{
		{
			name:   "unknown rfq",
			rfqID:  func(*rfqv1.RFQ) string { return "missing" },
			dealer: "dealer", price: dec(5), qty: 10, ttl: time.Minute,
			assertFn: func(t *testing.T, err error) { assert.True(t, errors.IsNotFound(err)) },
		},
		{
			name:   "creator quoting own rfq",
			rfqID:  func(r *rfqv1.RFQ) string { return r.ID },
			dealer: "taker", price: dec(5), qty: 10, ttl: time.Minute,
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsAuthorization(err))
				assert.True(t, errors.ErrorCodeEquals(err, errors.ErrSelfQuote))
			},
		},
		{
			name:   "price off tick",
			rfqID:  func(r *rfqv1.RFQ) string { return r.ID },
			dealer: "dealer", price: decimal.RequireFromString("5.001"), qty: 10, ttl: time.Minute,
			assertFn: func(t *testing.T, err error) { assert.True(t, errors.ErrorCodeEquals(err, errors.ErrInvalidTickSize)) },
		},
		{
			name:   "zero quantity",
			rfqID:  func(r *rfqv1.RFQ) string { return r.ID },
			dealer: "dealer", price: dec(5), qty: 0, ttl: time.Minute,
			assertFn: func(t *testing.T, err error) { assert.True(t, errors.IsValidation(err)) },
		},
		{
			name:   "expiry in the past",
			rfqID:  func(r *rfqv1.RFQ) string { return r.ID },
			dealer: "dealer", price: dec(5), qty: 10, ttl: -time.Second,
			assertFn: func(t *testing.T, err error) { assert.True(t, errors.ErrorCodeEquals(err, errors.ErrInvalidExpiry)) },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			r := f.create(t, "taker", orderv1.SideBuy, 100)
			q, err := f.quote(tc.rfqID(r), tc.dealer, tc.price, tc.qty, tc.ttl)
			assert.Nil(t, q)
			tc.assertFn(t, err)
			assert.Nil(t, f.market.RFQs[r.ID].Quote)
		})
	}
}

func TestEngine_AcceptAuthorization(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "taker", orderv1.SideBuy, 100)

	_, err := f.accept("taker", r.ID)
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.ErrorCodeEquals(err, errors.ErrQuoteNotFound))

	_, err = f.quote(r.ID, "dealer", dec(5), 100, time.Minute)
	require.NoError(t, err)

	_, err = f.accept("dealer", r.ID)
	assert.True(t, errors.IsAuthorization(err))
	assert.True(t, f.market.RFQs[r.ID].Quote.Active)
}

func TestEngine_AcceptInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "taker", orderv1.SideBuy, 10_000)

	_, err := f.quote(r.ID, "dealer", dec(50), 3000, time.Minute)
	require.NoError(t, err)

	_, err = f.accept("taker", r.ID)
	assert.True(t, errors.ErrorCodeEquals(err, errors.ErrInsufficientBalance))
	assert.True(t, f.market.RFQs[r.ID].Quote.Active)
	assert.True(t, f.custodian.Balance("taker", "USD").Held.IsZero())
	assert.True(t, f.custodian.Balance("dealer", "BOND").Held.IsZero())
}

func TestEngine_SellSideRFQ(t *testing.T) {
	f := newFixture(t)
	f.custodian.Deposit("seller", "BOND", dec(100))
	f.custodian.Deposit("dealer", "USD", dec(1000))

	r := f.create(t, "seller", orderv1.SideSell, 100)
	_, err := f.quote(r.ID, "dealer", dec(7), 100, time.Minute)
	require.NoError(t, err)

	a, err := f.accept("seller", r.ID)
	require.NoError(t, err)
	assert.Equal(t, orderv1.SideBuy, a.Trade.TakerSide)
	assert.Equal(t, "dealer", a.Trade.Buyer())
	assert.Equal(t, "seller", a.Trade.Seller())
	assert.True(t, f.custodian.Balance("seller", "USD").Available.Equal(dec(700)))
	assert.True(t, f.custodian.Balance("dealer", "BOND").Available.Equal(dec(5100)))
}

func TestEngine_Cancel(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "taker", orderv1.SideBuy, 100)
	_, err := f.quote(r.ID, "dealer", dec(5), 100, time.Minute)
	require.NoError(t, err)

	_, err = f.cancel("dealer", r.ID)
	assert.True(t, errors.IsAuthorization(err))

	out, err := f.cancel("taker", r.ID)
	require.NoError(t, err)
	assert.False(t, out.Quote.Active)

	order, ok := f.market.Orders.Get(r.OrderID)
	require.True(t, ok)
	assert.Equal(t, orderv1.StatusCancelled, order.Status)

	_, err = f.accept("taker", r.ID)
	assert.True(t, errors.ErrorCodeEquals(err, errors.ErrRFQClosed))
	_, err = f.cancel("taker", r.ID)
	assert.True(t, errors.IsState(err))
}

func TestEngine_CreateRejectsUnauthorized(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	authorizer := collateralv1_mock.NewMockAuthorizer(ctrl)
	sink := eventv1_mock.NewMockSink(ctrl)
	authorizer.EXPECT().IsAuthorized(ctx, "taker").Return(false, nil)

	f := newFixture(t)
	f.engine = NewEngine(f.ledger, f.custodian, authorizer, sink, f.clock, logger.NewNopLogger())

	err := f.market.Sequence(func() error {
		_, err := f.engine.Create(ctx, f.market, f.inst, rfqv1.CreateRFQRequest{
			InstrumentID: f.inst.ID,
			Creator:      "taker",
			Side:         orderv1.SideBuy,
			Quantity:     dec(10),
		})
		return err
	})
	assert.True(t, errors.IsAuthorization(err))
	assert.Empty(t, f.market.RFQs)
	assert.Equal(t, 0, f.market.Orders.Len())
}

func TestEngine_EmitsLifecycleEvents(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "taker", orderv1.SideBuy, 100)
	_, err := f.quote(r.ID, "dealer", dec(5), 100, time.Minute)
	require.NoError(t, err)
	_, err = f.accept("taker", r.ID)
	require.NoError(t, err)

	types := make([]eventv1.Type, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []eventv1.Type{
		eventv1.OrderPlaced,
		eventv1.RFQCreated,
		eventv1.RFQQuoted,
		eventv1.RFQAccepted,
		eventv1.TradeExecuted,
		eventv1.OrderFilled,
	}, types)
}
