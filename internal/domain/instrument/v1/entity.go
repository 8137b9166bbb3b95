package instrumentv1

import (
	"fmt"
	"strings"
	"time"

	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/shopspring/decimal"
)

// MaxFeeBps is the upper bound of a fee rate, 100%.
const MaxFeeBps int64 = 10_000

// AssetClass classifies what an instrument trades.
type AssetClass string

const (
	AssetClassSpot   AssetClass = "spot"
	AssetClassFuture AssetClass = "future"
	AssetClassForex  AssetClass = "forex"
	AssetClassOption AssetClass = "option"
	AssetClassBond   AssetClass = "bond"
	AssetClassEquity AssetClass = "equity"
)

// Valid reports whether c is a known asset class.
func (c AssetClass) Valid() bool {
	switch c {
	case AssetClassSpot, AssetClassFuture, AssetClassForex, AssetClassOption, AssetClassBond, AssetClassEquity:
		return true
	}
	return false
}

// Instrument is a tradable pair with its trading rules and fee schedule.
type Instrument struct {
	ID           string          `json:"id"`
	BaseAsset    string          `json:"baseAsset"`
	QuoteAsset   string          `json:"quoteAsset"`
	Class        AssetClass      `json:"class"`
	TickSize     decimal.Decimal `json:"tickSize"`
	LotSize      decimal.Decimal `json:"lotSize"`
	MinOrderSize decimal.Decimal `json:"minOrderSize"`
	MaxOrderSize decimal.Decimal `json:"maxOrderSize"`
	MakerFeeBps  int64           `json:"makerFeeBps"`
	TakerFeeBps  int64           `json:"takerFeeBps"`
	Active       bool            `json:"active"`
	Jurisdiction string          `json:"jurisdiction,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Symbol returns the BASE-QUOTE display name.
func (i *Instrument) Symbol() string {
	return fmt.Sprintf("%s-%s", i.BaseAsset, i.QuoteAsset)
}

// Clone returns a copy of the instrument.
func (i *Instrument) Clone() *Instrument {
	c := *i
	return &c
}

// ValidatePrice checks that price is positive and on the tick grid.
func (i *Instrument) ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return errors.NewValidationError(errors.ErrInvalidPrice, "price must be positive", "price")
	}
	if !IsMultiple(price, i.TickSize) {
		return errors.NewValidationError(errors.ErrInvalidTickSize,
			fmt.Sprintf("price %s is not a multiple of tick size %s", price, i.TickSize), "price")
	}
	return nil
}

// ValidateQuantity checks the order size bounds and the lot grid.
func (i *Instrument) ValidateQuantity(qty decimal.Decimal) error {
	if qty.LessThan(i.MinOrderSize) || qty.GreaterThan(i.MaxOrderSize) {
		return errors.NewValidationError(errors.ErrInvalidOrderSize,
			fmt.Sprintf("quantity %s outside [%s, %s]", qty, i.MinOrderSize, i.MaxOrderSize), "quantity")
	}
	if !IsMultiple(qty, i.LotSize) {
		return errors.NewValidationError(errors.ErrInvalidLotSize,
			fmt.Sprintf("quantity %s is not a multiple of lot size %s", qty, i.LotSize), "quantity")
	}
	return nil
}

// EnsureActive returns a validation error for a deactivated instrument.
func (i *Instrument) EnsureActive() error {
	if !i.Active {
		return errors.NewValidationError(errors.ErrInstrumentInactive,
			fmt.Sprintf("instrument %s is inactive", i.ID), "instrumentId")
	}
	return nil
}

// MakerFee returns the maker fee owed on notional.
func (i *Instrument) MakerFee(notional decimal.Decimal) decimal.Decimal {
	return Fee(notional, i.MakerFeeBps)
}

// TakerFee returns the taker fee owed on notional.
func (i *Instrument) TakerFee(notional decimal.Decimal) decimal.Decimal {
	return Fee(notional, i.TakerFeeBps)
}

// Fee computes notional * bps / 10000.
func Fee(notional decimal.Decimal, bps int64) decimal.Decimal {
	return notional.Mul(decimal.NewFromInt(bps)).Shift(-4)
}

// IsMultiple reports whether value sits exactly on the step grid.
func IsMultiple(value, step decimal.Decimal) bool {
	if !step.IsPositive() {
		return false
	}
	return value.Mod(step).IsZero()
}

// PairKey identifies the (base, quote, class) triple that must be unique.
func PairKey(base, quote string, class AssetClass) string {
	return strings.ToUpper(base) + "/" + strings.ToUpper(quote) + "/" + string(class)
}

// CreateInstrumentParams holds the input of instrument creation.
type CreateInstrumentParams struct {
	BaseAsset    string          `json:"baseAsset"`
	QuoteAsset   string          `json:"quoteAsset"`
	Class        AssetClass      `json:"class"`
	TickSize     decimal.Decimal `json:"tickSize"`
	LotSize      decimal.Decimal `json:"lotSize"`
	MinOrderSize decimal.Decimal `json:"minOrderSize"`
	MaxOrderSize decimal.Decimal `json:"maxOrderSize"`
	MakerFeeBps  int64           `json:"makerFeeBps"`
	TakerFeeBps  int64           `json:"takerFeeBps"`
	Jurisdiction string          `json:"jurisdiction,omitempty"`
}

// Validate collects every rule the params violate into one error.
func (p CreateInstrumentParams) Validate() error {
	errs := errors.NewBaseError()

	if strings.TrimSpace(p.BaseAsset) == "" {
		errs.AddErrorDetails(errors.NewValidationError(errors.GeneralBadRequestError, "base asset is required", "baseAsset"))
	}
	if strings.TrimSpace(p.QuoteAsset) == "" {
		errs.AddErrorDetails(errors.NewValidationError(errors.GeneralBadRequestError, "quote asset is required", "quoteAsset"))
	}
	if p.BaseAsset != "" && strings.EqualFold(p.BaseAsset, p.QuoteAsset) {
		errs.AddErrorDetails(errors.NewValidationError(errors.ErrSameAsset, "base and quote asset must differ", "quoteAsset"))
	}
	if !p.Class.Valid() {
		errs.AddErrorDetails(errors.NewValidationError(errors.GeneralBadRequestError,
			fmt.Sprintf("unknown asset class %q", p.Class), "class"))
	}
	if !p.TickSize.IsPositive() {
		errs.AddErrorDetails(errors.NewValidationError(errors.ErrInvalidTickSize, "tick size must be positive", "tickSize"))
	}
	if !p.LotSize.IsPositive() {
		errs.AddErrorDetails(errors.NewValidationError(errors.ErrInvalidLotSize, "lot size must be positive", "lotSize"))
	}
	errs.AddErrorDetails(ValidateLimits(p.MinOrderSize, p.MaxOrderSize)...)
	errs.AddErrorDetails(ValidateFees(p.MakerFeeBps, p.TakerFeeBps)...)

	return errs.OrNil()
}

// ValidateLimits checks 0 < min <= max.
func ValidateLimits(minSize, maxSize decimal.Decimal) []*errors.ErrorDetails {
	var details []*errors.ErrorDetails
	if !minSize.IsPositive() {
		details = append(details, errors.NewValidationError(errors.ErrInvalidOrderSize, "min order size must be positive", "minOrderSize"))
	}
	if !maxSize.IsPositive() {
		details = append(details, errors.NewValidationError(errors.ErrInvalidOrderSize, "max order size must be positive", "maxOrderSize"))
	}
	if minSize.GreaterThan(maxSize) {
		details = append(details, errors.NewValidationError(errors.ErrInvalidOrderSize, "min order size exceeds max order size", "minOrderSize"))
	}
	return details
}

// ValidateFees checks both rates are within [0, MaxFeeBps].
func ValidateFees(makerBps, takerBps int64) []*errors.ErrorDetails {
	var details []*errors.ErrorDetails
	if makerBps < 0 || makerBps > MaxFeeBps {
		details = append(details, errors.NewValidationError(errors.ErrInvalidFee,
			fmt.Sprintf("maker fee %d bps outside [0, %d]", makerBps, MaxFeeBps), "makerFeeBps"))
	}
	if takerBps < 0 || takerBps > MaxFeeBps {
		details = append(details, errors.NewValidationError(errors.ErrInvalidFee,
			fmt.Sprintf("taker fee %d bps outside [0, %d]", takerBps, MaxFeeBps), "takerFeeBps"))
	}
	return details
}
