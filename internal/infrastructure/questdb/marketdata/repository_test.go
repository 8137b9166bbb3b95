package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	marketdatav1 "github.com/muhammadchandra19/exchange-core/internal/domain/marketdata/v1"
	mock "github.com/muhammadchandra19/exchange-core/pkg/questdb/mock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketDataRepository_StoreSnapshot(t *testing.T) {
	now := time.Now().UTC()
	snap := &marketdatav1.Snapshot{
		InstrumentID:    "eur-usd",
		LastPrice:       decimal.RequireFromString("1.1"),
		Bid:             decimal.RequireFromString("1.0999"),
		Ask:             decimal.RequireFromString("1.1001"),
		Open24h:         decimal.RequireFromString("1.09"),
		High24h:         decimal.RequireFromString("1.12"),
		Low24h:          decimal.RequireFromString("1.08"),
		Volume24h:       decimal.NewFromInt(5000),
		UpdatedAt:       now,
		WindowStartedAt: now.Add(-time.Hour),
	}

	testCases := []struct {
		name     string
		mockFn   func(mock *mock.MockQuestDBClient)
		assertFn func(t *testing.T, err error)
	}{
		{
			name: "success",
			mockFn: func(mock *mock.MockQuestDBClient) {
				mock.EXPECT().Exec(gomock.Any(), insertSnapshotQuery,
					now, "eur-usd", 1.1, 1.0999, 1.1001, 1.09, 1.12, 1.08, 5000.0, now.Add(-time.Hour)).Return(nil)
			},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "error",
			mockFn: func(mock *mock.MockQuestDBClient) {
				mock.EXPECT().Exec(gomock.Any(), insertSnapshotQuery, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
					gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("table busy"))
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "table busy")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			client := mock.NewMockQuestDBClient(ctrl)
			tc.mockFn(client)

			repo := NewRepository(client)
			tc.assertFn(t, repo.StoreSnapshot(context.Background(), snap))
		})
	}
}

func TestMarketDataRepository_StoreOpportunity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Now().UTC()
	opp := &marketdatav1.ArbitrageOpportunity{
		ID: "a1", InstrumentID: "eur-usd",
		Bid: decimal.NewFromInt(100), Ask: decimal.NewFromInt(102),
		ProfitBps: decimal.RequireFromString("196.08"), DetectedAt: now, ExpiresAt: now.Add(5 * time.Minute), Active: true,
	}

	client := mock.NewMockQuestDBClient(ctrl)
	client.EXPECT().Exec(gomock.Any(), insertOpportunityQuery, now, "a1", "eur-usd", 100.0, 102.0, 196.08, now.Add(5*time.Minute)).Return(nil)

	repo := NewRepository(client)
	assert.NoError(t, repo.StoreOpportunity(context.Background(), opp))
}

func TestMarketDataRepository_GetSnapshots(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Now().UTC()
	from, to := now.Add(-time.Hour), now

	client := mock.NewMockQuestDBClient(ctrl)
	rows := mock.NewMockRowsInterface(ctrl)
	client.EXPECT().Query(gomock.Any(), selectSnapshotsQuery, "eur-usd", from, to).Return(rows, nil)
	gomock.InOrder(
		rows.EXPECT().Next().Return(true),
		rows.EXPECT().Scan(gomock.Any()).DoAndReturn(func(dest ...any) error {
			*dest[0].(*time.Time) = now
			*dest[1].(*string) = "eur-usd"
			for i, v := range []float64{1.1, 1.0999, 1.1001, 1.09, 1.12, 1.08, 5000} {
				*dest[2+i].(*float64) = v
			}
			*dest[9].(*time.Time) = from
			return nil
		}),
		rows.EXPECT().Next().Return(false),
	)
	rows.EXPECT().Err().Return(nil)
	rows.EXPECT().Close()

	repo := NewRepository(client)
	got, err := repo.GetSnapshots(context.Background(), "eur-usd", from, to)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Ask.Equal(decimal.RequireFromString("1.1001")))
	assert.True(t, got[0].Volume24h.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, from, got[0].WindowStartedAt)
}

func TestMarketDataRepository_GetOpportunities(t *testing.T) {
	now := time.Now().UTC()

	testCases := []struct {
		name     string
		mockFn   func(client *mock.MockQuestDBClient, rows *mock.MockRowsInterface)
		assertFn func(t *testing.T, got []*marketdatav1.ArbitrageOpportunity, err error)
	}{
		{
			name: "active is derived from the range end",
			mockFn: func(client *mock.MockQuestDBClient, rows *mock.MockRowsInterface) {
				client.EXPECT().Query(gomock.Any(), selectOpportunitiesQuery, "eur-usd", now.Add(-time.Hour), now).Return(rows, nil)
				scan := func(detected time.Time, id string) func(dest ...any) error {
					return func(dest ...any) error {
						*dest[0].(*time.Time) = detected
						*dest[1].(*string) = id
						*dest[2].(*string) = "eur-usd"
						*dest[3].(*float64) = 100
						*dest[4].(*float64) = 102
						*dest[5].(*float64) = 196.08
						*dest[6].(*time.Time) = detected.Add(5 * time.Minute)
						return nil
					}
				}
				gomock.InOrder(
					rows.EXPECT().Next().Return(true),
					rows.EXPECT().Scan(gomock.Any()).DoAndReturn(scan(now.Add(-30*time.Minute), "old")),
					rows.EXPECT().Next().Return(true),
					rows.EXPECT().Scan(gomock.Any()).DoAndReturn(scan(now.Add(-time.Minute), "new")),
					rows.EXPECT().Next().Return(false),
				)
				rows.EXPECT().Err().Return(nil)
				rows.EXPECT().Close()
			},
			assertFn: func(t *testing.T, got []*marketdatav1.ArbitrageOpportunity, err error) {
				require.NoError(t, err)
				require.Len(t, got, 2)
				assert.False(t, got[0].Active)
				assert.True(t, got[1].Active)
			},
		},
		{
			name: "query error",
			mockFn: func(client *mock.MockQuestDBClient, rows *mock.MockRowsInterface) {
				client.EXPECT().Query(gomock.Any(), selectOpportunitiesQuery, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("error"))
			},
			assertFn: func(t *testing.T, got []*marketdatav1.ArbitrageOpportunity, err error) {
				assert.Error(t, err)
				assert.Nil(t, got)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			client := mock.NewMockQuestDBClient(ctrl)
			rows := mock.NewMockRowsInterface(ctrl)
			tc.mockFn(client, rows)

			repo := NewRepository(client)
			got, err := repo.GetOpportunities(context.Background(), "eur-usd", now.Add(-time.Hour), now)
			tc.assertFn(t, got, err)
		})
	}
}
