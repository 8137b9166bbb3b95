package instrument

import (
	"context"
	"testing"
	"time"

	instrumentv1 "github.com/muhammadchandra19/exchange-core/internal/domain/instrument/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() instrumentv1.CreateInstrumentParams {
	return instrumentv1.CreateInstrumentParams{
		BaseAsset:    "BTC",
		QuoteAsset:   "USD",
		Class:        instrumentv1.AssetClassSpot,
		TickSize:     decimal.RequireFromString("0.5"),
		LotSize:      decimal.RequireFromString("0.01"),
		MinOrderSize: decimal.RequireFromString("0.01"),
		MaxOrderSize: decimal.NewFromInt(100),
		MakerFeeBps:  10,
		TakerFeeBps:  20,
	}
}

func newTestRegistry() *Registry {
	return NewRegistry(util.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), logger.NewNopLogger())
}

func TestRegistry_Create(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name     string
		mockFn   func(r *Registry)
		params   func() instrumentv1.CreateInstrumentParams
		assertFn func(t *testing.T, inst *instrumentv1.Instrument, err error)
	}{
		{
			name:   "success",
			params: validParams,
			assertFn: func(t *testing.T, inst *instrumentv1.Instrument, err error) {
				require.NoError(t, err)
				assert.NotEmpty(t, inst.ID)
				assert.True(t, inst.Active)
				assert.Equal(t, "BTC-USD", inst.Symbol())
			},
		},
		{
			name: "same base and quote",
			params: func() instrumentv1.CreateInstrumentParams {
				p := validParams()
				p.QuoteAsset = "BTC"
				return p
			},
			assertFn: func(t *testing.T, inst *instrumentv1.Instrument, err error) {
				assert.Nil(t, inst)
				assert.True(t, errors.IsValidation(err))
				assert.True(t, errors.ErrorCodeEquals(err, errors.ErrSameAsset))
			},
		},
		{
			name: "duplicate triple",
			mockFn: func(r *Registry) {
				_, err := r.Create(ctx, validParams())
				require.NoError(t, err)
			},
			params: validParams,
			assertFn: func(t *testing.T, inst *instrumentv1.Instrument, err error) {
				assert.Nil(t, inst)
				assert.True(t, errors.ErrorCodeEquals(err, errors.ErrInstrumentDuplicate))
			},
		},
		{
			name: "same pair different class is allowed",
			mockFn: func(r *Registry) {
				_, err := r.Create(ctx, validParams())
				require.NoError(t, err)
			},
			params: func() instrumentv1.CreateInstrumentParams {
				p := validParams()
				p.Class = instrumentv1.AssetClassFuture
				return p
			},
			assertFn: func(t *testing.T, inst *instrumentv1.Instrument, err error) {
				require.NoError(t, err)
				assert.Equal(t, instrumentv1.AssetClassFuture, inst.Class)
			},
		},
		{
			name: "every invalid field is reported",
			params: func() instrumentv1.CreateInstrumentParams {
				p := validParams()
				p.TickSize = decimal.Zero
				p.LotSize = decimal.NewFromInt(-1)
				p.MinOrderSize = decimal.NewFromInt(10)
				p.MaxOrderSize = decimal.NewFromInt(5)
				p.TakerFeeBps = 10_001
				return p
			},
			assertFn: func(t *testing.T, inst *instrumentv1.Instrument, err error) {
				assert.Nil(t, inst)
				var base *errors.BaseError
				require.ErrorAs(t, err, &base)
				assert.True(t, base.IsAnyCodeEqual(string(errors.ErrInvalidTickSize)))
				assert.True(t, base.IsAnyCodeEqual(string(errors.ErrInvalidLotSize)))
				assert.True(t, base.IsAnyCodeEqual(string(errors.ErrInvalidOrderSize)))
				assert.True(t, base.IsAnyCodeEqual(string(errors.ErrInvalidFee)))
				assert.True(t, errors.IsValidation(err))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRegistry()
			if tc.mockFn != nil {
				tc.mockFn(r)
			}
			inst, err := r.Create(ctx, tc.params())
			tc.assertFn(t, inst, err)
		})
	}
}

func TestRegistry_Admin(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry()
	inst, err := r.Create(ctx, validParams())
	require.NoError(t, err)

	updated, err := r.UpdateFees(ctx, inst.ID, 5, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(5), updated.MakerFeeBps)
	assert.Equal(t, int64(7), updated.TakerFeeBps)

	_, err = r.UpdateFees(ctx, inst.ID, -1, 7)
	assert.True(t, errors.ErrorCodeEquals(err, errors.ErrInvalidFee))

	updated, err = r.UpdateLimits(ctx, inst.ID, decimal.NewFromInt(1), decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.True(t, updated.MaxOrderSize.Equal(decimal.NewFromInt(2)))

	_, err = r.UpdateLimits(ctx, inst.ID, decimal.NewFromInt(3), decimal.NewFromInt(2))
	assert.True(t, errors.IsValidation(err))

	updated, err = r.Deactivate(ctx, inst.ID)
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.True(t, errors.ErrorCodeEquals(updated.EnsureActive(), errors.ErrInstrumentInactive))

	_, err = r.Deactivate(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))

	got, err := r.Get(inst.ID)
	require.NoError(t, err)
	got.Active = true
	again, _ := r.Get(inst.ID)
	assert.False(t, again.Active, "Get must return a copy")

	assert.Len(t, r.List(), 1)
}

func TestRegistry_Restore(t *testing.T) {
	ctx := context.Background()
	src := newTestRegistry()
	inst, err := src.Create(ctx, validParams())
	require.NoError(t, err)

	dst := newTestRegistry()
	require.NoError(t, dst.Restore(src.List()))

	got, err := dst.Get(inst.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.Symbol(), got.Symbol())

	_, err = dst.Create(ctx, validParams())
	assert.True(t, errors.ErrorCodeEquals(err, errors.ErrInstrumentDuplicate))
}
