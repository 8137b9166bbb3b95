package commandreaderv1

import (
	"fmt"

	instrumentv1 "github.com/muhammadchandra19/exchange-core/internal/domain/instrument/v1"
	marketdatav1 "github.com/muhammadchandra19/exchange-core/internal/domain/marketdata/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	rfqv1 "github.com/muhammadchandra19/exchange-core/internal/domain/rfq/v1"
	"github.com/shopspring/decimal"
)

// Kind selects the engine operation a command invokes.
type Kind string

const (
	KindCreateInstrument     Kind = "create_instrument"
	KindUpdateFees           Kind = "update_fees"
	KindUpdateLimits         Kind = "update_limits"
	KindDeactivateInstrument Kind = "deactivate_instrument"
	KindPlaceLimit           Kind = "place_limit"
	KindPlaceMarket          Kind = "place_market"
	KindCancel               Kind = "cancel"
	KindCreateRFQ            Kind = "create_rfq"
	KindSubmitQuote          Kind = "submit_quote"
	KindAcceptQuote          Kind = "accept_quote"
	KindCancelRFQ            Kind = "cancel_rfq"
	KindMarketData           Kind = "market_data"
	KindResetWindow          Kind = "reset_window"
)

// Command is one message on the command topic. Exactly one payload matches Kind.
type Command struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	CreateInstrument *instrumentv1.CreateInstrumentParams `json:"createInstrument,omitempty"`
	Admin            *AdminRequest                        `json:"admin,omitempty"`
	PlaceOrder       *orderv1.PlaceOrderRequest           `json:"placeOrder,omitempty"`
	Cancel           *CancelRequest                       `json:"cancel,omitempty"`
	CreateRFQ        *rfqv1.CreateRFQRequest              `json:"createRfq,omitempty"`
	SubmitQuote      *rfqv1.SubmitQuoteRequest            `json:"submitQuote,omitempty"`
	RFQAction        *RFQAction                           `json:"rfqAction,omitempty"`
	MarketData       *marketdatav1.Update                 `json:"marketData,omitempty"`

	// Offset is the transport position, set by the reader.
	Offset int64 `json:"-"`
}

// AdminRequest carries instrument administration parameters.
type AdminRequest struct {
	InstrumentID string          `json:"instrumentId"`
	MakerFeeBps  int64           `json:"makerFeeBps,omitempty"`
	TakerFeeBps  int64           `json:"takerFeeBps,omitempty"`
	MinOrderSize decimal.Decimal `json:"minOrderSize"`
	MaxOrderSize decimal.Decimal `json:"maxOrderSize"`
}

// CancelRequest cancels an order on behalf of Caller.
type CancelRequest struct {
	Caller  string `json:"caller"`
	OrderID string `json:"orderId"`
}

// RFQAction accepts or cancels an RFQ on behalf of Caller.
type RFQAction struct {
	Caller string `json:"caller"`
	RFQID  string `json:"rfqId"`
}

// Validate checks that the payload required by Kind is present.
func (c Command) Validate() error {
	var present bool
	switch c.Kind {
	case KindCreateInstrument:
		present = c.CreateInstrument != nil
	case KindUpdateFees, KindUpdateLimits, KindDeactivateInstrument, KindResetWindow:
		present = c.Admin != nil
	case KindPlaceLimit, KindPlaceMarket:
		present = c.PlaceOrder != nil
	case KindCancel:
		present = c.Cancel != nil
	case KindCreateRFQ:
		present = c.CreateRFQ != nil
	case KindSubmitQuote:
		present = c.SubmitQuote != nil
	case KindAcceptQuote, KindCancelRFQ:
		present = c.RFQAction != nil
	case KindMarketData:
		present = c.MarketData != nil
	default:
		return fmt.Errorf("unknown command kind %q", c.Kind)
	}
	if !present {
		return fmt.Errorf("command %s of kind %s has no payload", c.ID, c.Kind)
	}
	return nil
}
