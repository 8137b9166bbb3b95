package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	eventv1 "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1"
	eventv1_mock "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1/mock"
	instrumentv1 "github.com/muhammadchandra19/exchange-core/internal/domain/instrument/v1"
	marketdatav1 "github.com/muhammadchandra19/exchange-core/internal/domain/marketdata/v1"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/instrument"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type discard struct{}

func (discard) Emit(...eventv1.Event) {}

func setup(t *testing.T, sink eventv1.Sink) (*Feed, *util.ManualClock, string) {
	t.Helper()
	clock := util.NewManualClock(t0)
	registry := instrument.NewRegistry(clock, logger.NewNopLogger())
	inst, err := registry.Create(context.Background(), instrumentv1.CreateInstrumentParams{
		BaseAsset:    "EUR",
		QuoteAsset:   "USD",
		Class:        instrumentv1.AssetClassForex,
		TickSize:     dec("0.0001"),
		LotSize:      dec("1000"),
		MinOrderSize: dec("1000"),
		MaxOrderSize: dec("10000000"),
	})
	require.NoError(t, err)
	return NewFeed(registry, sink, clock, logger.NewNopLogger(), DefaultOptions()), clock, inst.ID
}

func update(id, last, bid, ask, volume string) marketdatav1.Update {
	return marketdatav1.Update{InstrumentID: id, LastPrice: dec(last), Bid: dec(bid), Ask: dec(ask), Volume: dec(volume)}
}

func TestFeed_DetectsWideSpread(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := eventv1_mock.NewMockSink(ctrl)
	feed, _, id := setup(t, sink)

	var emitted []eventv1.Event
	sink.EXPECT().Emit(gomock.Any(), gomock.Any()).Do(func(events ...eventv1.Event) {
		emitted = append(emitted, events...)
	})

	snap, opps, err := feed.Update(context.Background(), update(id, "101", "100", "102", "5000"))
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.True(t, opp.ProfitBps.Round(0).Equal(dec("196")), "got %s", opp.ProfitBps)
	assert.Equal(t, t0.Add(5*time.Minute), opp.ExpiresAt)
	assert.True(t, opp.Active)
	assert.True(t, snap.Spread().Equal(dec("2")))

	require.Len(t, emitted, 2)
	assert.Equal(t, eventv1.MarketDataUpdated, emitted[0].Type)
	assert.Equal(t, eventv1.ArbitrageDetected, emitted[1].Type)
	assert.Equal(t, opp.ID, emitted[1].Opportunity.ID)
}

func TestFeed_Threshold(t *testing.T) {
	testCases := []struct {
		name     string
		bid, ask string
		flagged  bool
	}{
		{name: "inside threshold", bid: "100", ask: "100.5", flagged: false},
		{name: "exactly at threshold", bid: "100", ask: "101", flagged: false},
		{name: "just above threshold", bid: "100", ask: "101.01", flagged: true},
		{name: "crossed quotes", bid: "101", ask: "100", flagged: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			feed, _, id := setup(t, discard{})
			_, opps, err := feed.Update(context.Background(), update(id, "100", tc.bid, tc.ask, "0"))
			require.NoError(t, err)
			assert.Equal(t, tc.flagged, len(opps) == 1)
			assert.Equal(t, tc.flagged, len(feed.ActiveOpportunities(id)) == 1)
		})
	}
}

func TestFeed_OpportunitiesExpireLazily(t *testing.T) {
	feed, clock, id := setup(t, discard{})

	_, _, err := feed.Update(context.Background(), update(id, "101", "100", "102", "0"))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, _, err = feed.Update(context.Background(), update(id, "101", "100", "103", "0"))
	require.NoError(t, err)
	assert.Len(t, feed.ActiveOpportunities(id), 2)

	clock.Advance(4 * time.Minute)
	active := feed.ActiveOpportunities(id)
	require.Len(t, active, 1)
	assert.True(t, active[0].Ask.Equal(dec("103")))

	clock.Advance(time.Minute)
	assert.Empty(t, feed.ActiveOpportunities(id))
}

func TestFeed_RollingWindow(t *testing.T) {
	feed, clock, id := setup(t, discard{})
	ctx := context.Background()

	for _, last := range []string{"100", "104", "97", "101"} {
		_, _, err := feed.Update(ctx, update(id, last, "99", "100", "10"))
		require.NoError(t, err)
		clock.Advance(time.Hour)
	}

	snap, err := feed.Snapshot(id)
	require.NoError(t, err)
	assert.True(t, snap.Open24h.Equal(dec("100")))
	assert.True(t, snap.High24h.Equal(dec("104")))
	assert.True(t, snap.Low24h.Equal(dec("97")))
	assert.True(t, snap.LastPrice.Equal(dec("101")))
	assert.True(t, snap.Volume24h.Equal(dec("10")))
	assert.Equal(t, t0, snap.WindowStartedAt)

	clock.Advance(24 * time.Hour)
	rolled, _, err := feed.Update(ctx, update(id, "90", "89", "90", "1"))
	require.NoError(t, err)
	assert.True(t, rolled.Open24h.Equal(dec("90")))
	assert.True(t, rolled.High24h.Equal(dec("90")))
	assert.Equal(t, clock.Now(), rolled.WindowStartedAt)
}

func TestFeed_ResetWindow(t *testing.T) {
	feed, clock, id := setup(t, discard{})
	ctx := context.Background()

	_, _, err := feed.Update(ctx, update(id, "1.1000", "1.0999", "1.1001", "5000"))
	require.NoError(t, err)
	clock.Advance(time.Hour)

	reset, err := feed.ResetWindow(ctx, id)
	require.NoError(t, err)
	assert.True(t, reset.Open24h.IsZero())
	assert.True(t, reset.High24h.IsZero())
	assert.True(t, reset.Low24h.IsZero())
	assert.True(t, reset.Volume24h.IsZero())
	assert.True(t, reset.WindowStartedAt.IsZero())
	assert.True(t, reset.LastPrice.Equal(dec("1.1")))

	clock.Advance(time.Minute)
	snap, _, err := feed.Update(ctx, update(id, "1.2000", "1.1999", "1.2001", "7000"))
	require.NoError(t, err)
	assert.True(t, snap.Open24h.Equal(dec("1.2")))
	assert.True(t, snap.High24h.Equal(dec("1.2")))
	assert.True(t, snap.Low24h.Equal(dec("1.2")))
	assert.True(t, snap.Volume24h.Equal(dec("7000")))
	assert.Equal(t, clock.Now(), snap.WindowStartedAt)

	_, _, err = feed.Update(ctx, update(id, "1.1500", "1.1499", "1.1501", "7100"))
	require.NoError(t, err)
	snap, err = feed.Snapshot(id)
	require.NoError(t, err)
	assert.True(t, snap.Open24h.Equal(dec("1.2")))
	assert.True(t, snap.Low24h.Equal(dec("1.15")))
}

func TestFeed_Errors(t *testing.T) {
	feed, _, id := setup(t, discard{})
	ctx := context.Background()

	_, _, err := feed.Update(ctx, update("unknown", "1", "1", "1", "0"))
	assert.True(t, errors.IsNotFound(err))

	_, _, err = feed.Update(ctx, marketdatav1.Update{InstrumentID: id, LastPrice: dec("0"), Bid: dec("-1"), Ask: dec("1")})
	require.True(t, errors.IsValidation(err))
	var base *errors.BaseError
	require.ErrorAs(t, err, &base)
	assert.Len(t, base.GetDetails(), 2)

	_, err = feed.Snapshot(id)
	assert.True(t, errors.ErrorCodeEquals(err, errors.ErrMarketDataNotFound))
	_, err = feed.ResetWindow(ctx, id)
	assert.True(t, errors.IsNotFound(err))
}

func TestFeed_SnapshotsAndRestore(t *testing.T) {
	feed, _, id := setup(t, discard{})
	_, _, err := feed.Update(context.Background(), update(id, "1.1", "1.0999", "1.1001", "100"))
	require.NoError(t, err)

	saved := feed.Snapshots()
	require.Len(t, saved, 1)

	other, _, _ := setup(t, discard{})
	other.Restore(saved)
	snap, err := other.Snapshot(id)
	require.NoError(t, err)
	assert.True(t, snap.LastPrice.Equal(dec("1.1")))
}

func TestProfitBps(t *testing.T) {
	assert.True(t, ProfitBps(dec("100"), dec("102")).Equal(dec("196.08")))
	assert.True(t, ProfitBps(dec("100"), dec("0")).IsZero())
}
