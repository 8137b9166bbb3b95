package errors

import (
	"bytes"
	"reflect"
	"strings"
)

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalServerError represents a generic internal server error.
	GeneralInternalServerError ErrorCode = "general_internal_server_error"
	// GeneralBadRequestError represents a generic bad request error.
	GeneralBadRequestError ErrorCode = "general_bad_request_error"
	// GeneralNotFoundError represents a generic not found error.
	GeneralNotFoundError ErrorCode = "general_not_found_error"
	// GeneralUnauthorizedError represents a generic unauthorized error.
	GeneralUnauthorizedError ErrorCode = "general_unauthorized_error"
	// GeneralRepositoryError represents a generic repository error.
	GeneralRepositoryError ErrorCode = "general_repository_error"

	// ErrInstrumentNotFound is returned for an unknown instrument id.
	ErrInstrumentNotFound ErrorCode = "instrument_not_found"
	// ErrInstrumentInactive is returned when trading a deactivated instrument.
	ErrInstrumentInactive ErrorCode = "instrument_inactive"
	// ErrInstrumentDuplicate is returned when the (base, quote, class) triple already exists.
	ErrInstrumentDuplicate ErrorCode = "instrument_duplicate"
	// ErrInstrumentHalted is returned for any mutation after a fatal ledger condition.
	ErrInstrumentHalted ErrorCode = "instrument_halted"
	// ErrSameAsset is returned when base and quote assets are equal.
	ErrSameAsset ErrorCode = "same_base_and_quote_asset"
	// ErrInvalidTickSize represents a non-positive tick size or a price off the tick grid.
	ErrInvalidTickSize ErrorCode = "invalid_tick_size"
	// ErrInvalidLotSize represents a non-positive lot size or a quantity off the lot grid.
	ErrInvalidLotSize ErrorCode = "invalid_lot_size"
	// ErrInvalidOrderSize represents a quantity outside the instrument's min/max bounds.
	ErrInvalidOrderSize ErrorCode = "invalid_order_size"
	// ErrInvalidPrice represents a non-positive price.
	ErrInvalidPrice ErrorCode = "invalid_price"
	// ErrInvalidFee represents a fee outside [0, 10000] bps.
	ErrInvalidFee ErrorCode = "invalid_fee"
	// ErrInvalidSide represents an unknown order side.
	ErrInvalidSide ErrorCode = "invalid_side"
	// ErrInvalidTimeInForce represents an unknown or unusable time in force.
	ErrInvalidTimeInForce ErrorCode = "invalid_time_in_force"
	// ErrInvalidExpiry represents an expiry that is missing or already in the past.
	ErrInvalidExpiry ErrorCode = "invalid_expiry"
	// ErrInvalidCommand represents a command message that cannot be decoded or lacks its payload.
	ErrInvalidCommand ErrorCode = "invalid_command"
	// ErrInvalidMarketData represents a malformed market data update.
	ErrInvalidMarketData ErrorCode = "invalid_market_data"
	// ErrInsufficientBalance is returned when the custodian refuses a reservation.
	ErrInsufficientBalance ErrorCode = "insufficient_balance"
	// ErrFillOrKillUnfilled is returned when a FOK order cannot be filled completely.
	ErrFillOrKillUnfilled ErrorCode = "fill_or_kill_unfilled"

	// ErrInsufficientAskVolume represents an error when there is not enough ask volume to fill a market order.
	ErrInsufficientAskVolume ErrorCode = "insufficient_ask_volume"
	// ErrInsufficientBidVolume represents an error when there is not enough bid volume to fill a market order.
	ErrInsufficientBidVolume ErrorCode = "insufficient_bid_volume"

	// ErrTraderNotAuthorized is returned when the compliance gate refuses a trader.
	ErrTraderNotAuthorized ErrorCode = "trader_not_authorized"
	// ErrOrderNotOwned is returned when a caller acts on an order it does not own.
	ErrOrderNotOwned ErrorCode = "order_not_owned"
	// ErrSelfQuote is returned when the RFQ creator tries to quote its own RFQ.
	ErrSelfQuote ErrorCode = "self_quote"

	// ErrOrderNotFound is returned for an unknown order id.
	ErrOrderNotFound ErrorCode = "order_not_found"
	// ErrRFQNotFound is returned for an unknown RFQ id.
	ErrRFQNotFound ErrorCode = "rfq_not_found"
	// ErrQuoteNotFound is returned when an RFQ has never been quoted.
	ErrQuoteNotFound ErrorCode = "quote_not_found"
	// ErrMarketDataNotFound is returned when no snapshot exists for an instrument.
	ErrMarketDataNotFound ErrorCode = "market_data_not_found"

	// ErrInvalidTransition represents a forbidden order state transition.
	ErrInvalidTransition ErrorCode = "invalid_state_transition"
	// ErrQuoteAlreadyActive is returned when an RFQ already carries a live quote.
	ErrQuoteAlreadyActive ErrorCode = "quote_already_active"
	// ErrQuoteInactive is returned when accepting a quote that was already consumed.
	ErrQuoteInactive ErrorCode = "quote_inactive"
	// ErrRFQClosed is returned when quoting or accepting on a terminal RFQ order.
	ErrRFQClosed ErrorCode = "rfq_closed"

	// ErrOrderExpired is returned when an order is past its expiry at time of use.
	ErrOrderExpired ErrorCode = "order_expired"
	// ErrQuoteExpired is returned when a quote is past its expiry at time of use.
	ErrQuoteExpired ErrorCode = "quote_expired"

	// ErrLedgerOverflow is returned when a ledger aggregate cannot absorb a trade.
	ErrLedgerOverflow ErrorCode = "ledger_overflow"
	// ErrLedgerCorrupted is returned when the replayed trade log disagrees with the counters.
	ErrLedgerCorrupted ErrorCode = "ledger_corrupted"

	// RedisConfigError represents an error when the Redis configuration is invalid or nil.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisDisconnectionError represents an error when disconnecting from Redis.
	RedisDisconnectionError ErrorCode = "redis_disconnection_error"
	// RedisPingError represents an error when pinging Redis.
	RedisPingError ErrorCode = "redis_pinging_error"
	// RedisGetError represents an error when getting a value from Redis.
	RedisGetError ErrorCode = "redis_get_error"
	// RedisSetError represents an error when setting a value in Redis.
	RedisSetError ErrorCode = "redis_set_error"
	// RedisSetMemberError represents an error when adding, removing or checking members of a Redis set.
	RedisSetMemberError ErrorCode = "redis_set_member_error"
)

// Category represents the category of an error.
type Category string

const (
	// CategoryValidation indicates malformed input: bad quantity, tick, lot, price or an inactive instrument.
	CategoryValidation Category = "validation"
	// CategoryAuthorization indicates the caller is not allowed to act: not the owner, not cleared by compliance.
	CategoryAuthorization Category = "authorization"
	// CategoryState indicates an invalid transition such as cancel-after-fill or a double accept.
	CategoryState Category = "state"
	// CategoryNotFound indicates an unknown order, instrument, RFQ or quote.
	CategoryNotFound Category = "not_found"
	// CategoryExpiry indicates an order or quote that expired before it was used.
	CategoryExpiry Category = "expiry"
	// CategoryFatal indicates an unrecoverable condition that halts an instrument.
	CategoryFatal Category = "fatal"
	// CategoryDatabase indicates an error related to database operations.
	CategoryDatabase Category = "database"
	// CategoryExternal indicates an error related to external services or APIs.
	CategoryExternal Category = "external"
	// CategoryUnknown indicates an unknown error category.
	CategoryUnknown Category = "unknown"
)

// BaseError is an `error` type containing an array of ErrorDetails.
// It is used where a single call can violate several rules at once, e.g. instrument creation.
type BaseError struct {
	details []*ErrorDetails
}

// NewBaseError create BaseError with ErrorDetails
func NewBaseError(details ...*ErrorDetails) *BaseError {
	return &BaseError{details: details}
}

// AddErrorDetails add more ErrorDetails to BaseError
func (b *BaseError) AddErrorDetails(errors ...*ErrorDetails) {
	b.details = append(b.details, errors...)
}

// GetDetails get array ErrorDetails on BaseError
func (b *BaseError) GetDetails() []*ErrorDetails {
	return b.details
}

// HasDetails reports whether at least one detail was collected.
func (b *BaseError) HasDetails() bool {
	return len(b.details) > 0
}

// OrNil returns b when it holds details and nil otherwise, so callers can return it directly.
func (b *BaseError) OrNil() error {
	if b == nil || !b.HasDetails() {
		return nil
	}
	return b
}

// Error implement error interface
func (b *BaseError) Error() string {
	buff := bytes.NewBufferString("")

	buff.WriteString("Error on\n")
	for _, err := range b.details {
		buff.WriteString("code: ")
		buff.WriteString(err.Code)
		buff.WriteString("; error: ")
		buff.WriteString(err.Error())
		buff.WriteString("; field: ")
		buff.WriteString(err.Field)
		buff.WriteString("; object: ")
		if err.Object != nil {
			buff.WriteString(reflect.TypeOf(err.Object).String())
		}
		buff.WriteString("\n")
	}

	return strings.TrimSpace(buff.String())
}

// Unwrap exposes the collected details to errors.Is / errors.As.
func (b *BaseError) Unwrap() []error {
	errs := make([]error, 0, len(b.details))
	for _, d := range b.details {
		errs = append(errs, d)
	}
	return errs
}

// IsAnyCodeEqual check if any ErrorDetails code is equal with given code
func (b *BaseError) IsAnyCodeEqual(code string) bool {
	for _, d := range b.GetDetails() {
		if d.Code == code {
			return true
		}
	}
	return false
}

// IsAllCodeEqual check if all ErrorDetails code is equal with given code
func (b *BaseError) IsAllCodeEqual(code string) bool {
	if len(b.details) == 0 {
		return false
	}

	for _, d := range b.GetDetails() {
		if d.Code != code {
			return false
		}
	}
	return true
}
