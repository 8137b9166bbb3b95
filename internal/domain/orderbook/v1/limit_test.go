package orderbookv1

import (
	"testing"

	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restingOrder(id, price, qty string) *orderv1.Order {
	q := decimal.RequireFromString(qty)
	return &orderv1.Order{
		ID:                id,
		Side:              orderv1.SideSell,
		Price:             decimal.RequireFromString(price),
		Quantity:          q,
		RemainingQuantity: q,
		Status:            orderv1.StatusPending,
	}
}

func TestLimit_AddOrder(t *testing.T) {
	testCases := []struct {
		name     string
		order    *orderv1.Order
		assertFn func(*testing.T, *Limit, error)
	}{
		{
			name:  "appends and tracks volume",
			order: restingOrder("o1", "10", "5"),
			assertFn: func(t *testing.T, l *Limit, err error) {
				require.NoError(t, err)
				assert.Equal(t, 1, l.OrderCount())
				assert.True(t, l.TotalVolume.Equal(decimal.NewFromInt(5)))
				assert.True(t, l.Contains("o1"))
			},
		},
		{
			name:  "rejects nil order",
			order: nil,
			assertFn: func(t *testing.T, l *Limit, err error) {
				assert.True(t, errors.IsValidation(err))
				assert.True(t, l.IsEmpty())
			},
		},
		{
			name:  "rejects price mismatch",
			order: restingOrder("o1", "11", "5"),
			assertFn: func(t *testing.T, l *Limit, err error) {
				assert.True(t, errors.ErrorCodeEquals(err, errors.ErrInvalidPrice))
			},
		},
		{
			name:  "rejects empty remaining",
			order: restingOrder("o1", "10", "0"),
			assertFn: func(t *testing.T, l *Limit, err error) {
				assert.True(t, errors.ErrorCodeEquals(err, errors.ErrInvalidOrderSize))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLimit(decimal.NewFromInt(10))
			err := l.AddOrder(tc.order)
			tc.assertFn(t, l, err)
		})
	}
}

func TestLimit_FIFOAndRemove(t *testing.T) {
	l := NewLimit(decimal.NewFromInt(10))
	require.NoError(t, l.AddOrder(restingOrder("o1", "10", "1")))
	require.NoError(t, l.AddOrder(restingOrder("o2", "10", "2")))
	require.NoError(t, l.AddOrder(restingOrder("o3", "10", "3")))

	assert.Equal(t, "o1", l.Front().ID)

	removed, err := l.RemoveOrder("o2")
	require.NoError(t, err)
	assert.Equal(t, "o2", removed.ID)
	assert.True(t, l.TotalVolume.Equal(decimal.NewFromInt(4)))

	ids := []string{}
	for _, o := range l.Orders() {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"o1", "o3"}, ids)

	_, err = l.RemoveOrder("o2")
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, l.Validate())
}

func TestLimit_Reduce(t *testing.T) {
	l := NewLimit(decimal.NewFromInt(10))
	o := restingOrder("o1", "10", "5")
	require.NoError(t, l.AddOrder(o))

	o.RemainingQuantity = decimal.NewFromInt(3)
	l.Reduce(decimal.NewFromInt(2))

	assert.NoError(t, l.Validate())
	assert.True(t, l.TotalVolume.Equal(decimal.NewFromInt(3)))
}
