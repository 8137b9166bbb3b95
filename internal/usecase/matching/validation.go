package matching

import (
	"context"
	"fmt"
	"time"

	collateralv1 "github.com/muhammadchandra19/exchange-core/internal/domain/collateral/v1"
	instrumentv1 "github.com/muhammadchandra19/exchange-core/internal/domain/instrument/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/shopspring/decimal"
)

func validateLimit(inst *instrumentv1.Instrument, req orderv1.PlaceOrderRequest, now time.Time) error {
	if err := validateCommon(inst, req, orderv1.TypeLimit, now); err != nil {
		return err
	}
	return inst.ValidatePrice(req.Price)
}

func validateMarket(inst *instrumentv1.Instrument, req orderv1.PlaceOrderRequest, now time.Time) error {
	if !req.Price.IsZero() {
		return errors.NewValidationError(errors.ErrInvalidPrice, "market orders carry no price", "price")
	}
	return validateCommon(inst, req, orderv1.TypeMarket, now)
}

func validateCommon(inst *instrumentv1.Instrument, req orderv1.PlaceOrderRequest, orderType orderv1.Type, now time.Time) error {
	if req.InstrumentID != inst.ID {
		return errors.NewValidationError(errors.GeneralBadRequestError, "request instrument does not match", "instrumentId")
	}
	if err := inst.EnsureActive(); err != nil {
		return err
	}
	if err := req.Validate(orderType, now); err != nil {
		return err
	}
	return inst.ValidateQuantity(req.Quantity)
}

// reservation picks what a side holds: quote notional for buys, base quantity for sells.
func reservation(inst *instrumentv1.Instrument, side orderv1.Side, notional, quantity decimal.Decimal) (decimal.Decimal, string) {
	if side == orderv1.SideBuy {
		return notional, inst.QuoteAsset
	}
	return quantity, inst.BaseAsset
}

// Authorize consults the compliance gate for trader.
func Authorize(ctx context.Context, authorizer collateralv1.Authorizer, trader string) error {
	ok, err := authorizer.IsAuthorized(ctx, trader)
	if err != nil {
		return errors.TracerFromError(err)
	}
	if !ok {
		return errors.NewAuthorizationError(errors.ErrTraderNotAuthorized, fmt.Sprintf("trader %s is not authorized", trader))
	}
	return nil
}

// Reserve holds amount of asset for trader.
func Reserve(ctx context.Context, custodian collateralv1.Custodian, trader, asset string, amount decimal.Decimal) error {
	ok, err := custodian.Reserve(ctx, trader, asset, amount)
	if err != nil {
		return errors.TracerFromError(err)
	}
	if !ok {
		return errors.NewValidationError(errors.ErrInsufficientBalance,
			fmt.Sprintf("trader %s cannot reserve %s %s", trader, amount, asset), "quantity")
	}
	return nil
}
