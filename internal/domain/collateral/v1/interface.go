package collateralv1

import (
	"context"

	tradev1 "github.com/muhammadchandra19/exchange-core/internal/domain/trade/v1"
	"github.com/shopspring/decimal"
)

// Settlement carries a committed trade together with the assets it moves.
type Settlement struct {
	Trade      *tradev1.Trade
	BaseAsset  string
	QuoteAsset string
}

// Authorizer is the compliance gate consulted before any order, RFQ or quote is created.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=collateralv1_mock
type Authorizer interface {
	IsAuthorized(ctx context.Context, trader string) (bool, error)
}

// Custodian holds trader balances on behalf of the engine.
type Custodian interface {
	Reserve(ctx context.Context, trader, asset string, amount decimal.Decimal) (bool, error)
	Release(ctx context.Context, trader, asset string, amount decimal.Decimal) error
	Settle(ctx context.Context, settlement Settlement) error
}
