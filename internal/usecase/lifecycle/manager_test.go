package lifecycle

import (
	"testing"
	"time"

	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func limitRequest(qty int64, tif orderv1.TimeInForce, expiresAt time.Time) orderv1.PlaceOrderRequest {
	return orderv1.PlaceOrderRequest{
		InstrumentID: "inst",
		Owner:        "alice",
		Side:         orderv1.SideBuy,
		Quantity:     decimal.NewFromInt(qty),
		Price:        decimal.NewFromInt(10),
		TimeInForce:  tif,
		ExpiresAt:    expiresAt,
	}
}

func TestManager_AdmitAssignsSequence(t *testing.T) {
	m := NewManager("inst")

	first := m.New(limitRequest(5, orderv1.GTC, time.Time{}), orderv1.TypeLimit, t0)
	second := m.New(limitRequest(5, orderv1.GTC, time.Time{}), orderv1.TypeLimit, t0)
	require.NoError(t, m.Admit(first))
	require.NoError(t, m.Admit(second))

	assert.Equal(t, uint64(1), first.Sequence)
	assert.Equal(t, uint64(2), second.Sequence)
	assert.Equal(t, orderv1.StatusPending, first.Status)
	assert.True(t, first.RemainingQuantity.Equal(decimal.NewFromInt(5)))

	assert.True(t, errors.IsState(m.Admit(first)))

	other := m.New(limitRequest(1, orderv1.GTC, time.Time{}), orderv1.TypeLimit, t0)
	other.InstrumentID = "elsewhere"
	assert.Error(t, m.Admit(other))
}

func TestManager_MarketOrdersDefaultToIOC(t *testing.T) {
	m := NewManager("inst")
	o := m.New(limitRequest(5, "", time.Time{}), orderv1.TypeMarket, t0)
	assert.Equal(t, orderv1.IOC, o.TimeInForce)
	assert.True(t, o.Price.IsZero())
}

func TestManager_StateMachine(t *testing.T) {
	testCases := []struct {
		name     string
		mockFn   func(m *Manager, o *orderv1.Order)
		assertFn func(t *testing.T, m *Manager, o *orderv1.Order)
	}{
		{
			name: "partial then full fill",
			mockFn: func(m *Manager, o *orderv1.Order) {
				require.NoError(t, m.Fill(o, decimal.NewFromInt(4), t0))
				assert.Equal(t, orderv1.StatusPartial, o.Status)
				require.NoError(t, m.Fill(o, decimal.NewFromInt(6), t0))
			},
			assertFn: func(t *testing.T, m *Manager, o *orderv1.Order) {
				assert.Equal(t, orderv1.StatusFilled, o.Status)
				assert.True(t, o.FilledQuantity.Equal(decimal.NewFromInt(10)))
				assert.True(t, o.RemainingQuantity.IsZero())
			},
		},
		{
			name: "overfill rejected without mutation",
			mockFn: func(m *Manager, o *orderv1.Order) {
				err := m.Fill(o, decimal.NewFromInt(11), t0)
				assert.True(t, errors.IsState(err))
			},
			assertFn: func(t *testing.T, m *Manager, o *orderv1.Order) {
				assert.Equal(t, orderv1.StatusPending, o.Status)
				assert.True(t, o.FilledQuantity.IsZero())
			},
		},
		{
			name: "cancel after fill is a state error",
			mockFn: func(m *Manager, o *orderv1.Order) {
				require.NoError(t, m.Fill(o, decimal.NewFromInt(10), t0))
			},
			assertFn: func(t *testing.T, m *Manager, o *orderv1.Order) {
				err := m.Cancel(o, t0)
				assert.True(t, errors.IsState(err))
				assert.True(t, errors.ErrorCodeEquals(err, errors.ErrInvalidTransition))
				assert.Equal(t, orderv1.StatusFilled, o.Status)
			},
		},
		{
			name: "cancelled is sticky",
			mockFn: func(m *Manager, o *orderv1.Order) {
				require.NoError(t, m.Cancel(o, t0))
			},
			assertFn: func(t *testing.T, m *Manager, o *orderv1.Order) {
				assert.True(t, errors.IsState(m.Cancel(o, t0)))
				assert.True(t, errors.IsState(m.Expire(o, t0)))
				assert.True(t, errors.IsState(m.Fill(o, decimal.NewFromInt(1), t0)))
				assert.Equal(t, orderv1.StatusCancelled, o.Status)
			},
		},
		{
			name: "partial order can expire",
			mockFn: func(m *Manager, o *orderv1.Order) {
				require.NoError(t, m.Fill(o, decimal.NewFromInt(3), t0))
				require.NoError(t, m.Expire(o, t0))
			},
			assertFn: func(t *testing.T, m *Manager, o *orderv1.Order) {
				assert.Equal(t, orderv1.StatusExpired, o.Status)
				assert.True(t, o.RemainingQuantity.Equal(decimal.NewFromInt(7)))
				assert.Empty(t, m.Open())
			},
		},
		{
			name: "closed partial keeps its status and stops trading",
			mockFn: func(m *Manager, o *orderv1.Order) {
				require.NoError(t, m.Fill(o, decimal.NewFromInt(4), t0))
				require.NoError(t, m.Close(o, t0))
			},
			assertFn: func(t *testing.T, m *Manager, o *orderv1.Order) {
				assert.Equal(t, orderv1.StatusPartial, o.Status)
				assert.False(t, o.IsOpen())
				assert.Empty(t, m.Open())
				assert.True(t, errors.IsState(m.Cancel(o, t0)))
				assert.True(t, errors.IsState(m.Expire(o, t0)))
				assert.True(t, errors.IsState(m.Fill(o, decimal.NewFromInt(1), t0)))
				assert.True(t, errors.IsState(m.Close(o, t0)))
				assert.True(t, o.RemainingQuantity.Equal(decimal.NewFromInt(6)))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewManager("inst")
			o := m.New(limitRequest(10, orderv1.GTC, time.Time{}), orderv1.TypeLimit, t0)
			require.NoError(t, m.Admit(o))
			tc.mockFn(m, o)
			tc.assertFn(t, m, o)
		})
	}
}

func TestManager_Due(t *testing.T) {
	m := NewManager("inst")
	late := m.New(limitRequest(1, orderv1.GTD, t0.Add(time.Hour)), orderv1.TypeLimit, t0)
	early := m.New(limitRequest(1, orderv1.GTD, t0.Add(time.Minute)), orderv1.TypeLimit, t0)
	never := m.New(limitRequest(1, orderv1.GTC, time.Time{}), orderv1.TypeLimit, t0)
	filled := m.New(limitRequest(1, orderv1.GTD, t0.Add(time.Second)), orderv1.TypeLimit, t0)
	for _, o := range []*orderv1.Order{late, early, never, filled} {
		require.NoError(t, m.Admit(o))
	}
	require.NoError(t, m.Fill(filled, decimal.NewFromInt(1), t0))

	assert.Empty(t, m.Due(t0))

	due := m.Due(t0.Add(time.Minute))
	require.Len(t, due, 1)
	assert.Equal(t, early.ID, due[0].ID)
	assert.True(t, early.IsExpired(t0.Add(time.Minute)))

	due = m.Due(t0.Add(2 * time.Hour))
	require.Len(t, due, 2)
	assert.Equal(t, early.ID, due[0].ID)
	assert.Equal(t, late.ID, due[1].ID)

	require.NoError(t, m.Expire(early, t0.Add(time.Minute)))
	assert.Len(t, m.Due(t0.Add(2*time.Hour)), 1)
}

func TestManager_Restore(t *testing.T) {
	src := NewManager("inst")
	a := src.New(limitRequest(1, orderv1.GTD, t0.Add(time.Minute)), orderv1.TypeLimit, t0)
	b := src.New(limitRequest(1, orderv1.GTC, time.Time{}), orderv1.TypeLimit, t0)
	require.NoError(t, src.Admit(a))
	require.NoError(t, src.Admit(b))

	dst := NewManager("inst")
	dst.Restore([]*orderv1.Order{a.Clone(), b.Clone()}, src.Sequence())

	assert.Equal(t, uint64(2), dst.Sequence())
	assert.Len(t, dst.Open(), 2)
	assert.Len(t, dst.Due(t0.Add(time.Minute)), 1)

	next := dst.New(limitRequest(1, orderv1.GTC, time.Time{}), orderv1.TypeLimit, t0)
	require.NoError(t, dst.Admit(next))
	assert.Equal(t, uint64(3), next.Sequence)
}
