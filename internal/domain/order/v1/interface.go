package orderv1

import (
	"context"
	"time"
)

// Filter represents the filter criteria for order history.
type Filter struct {
	InstrumentID  string     `json:"instrumentId"`
	Owner         string     `json:"owner"`
	Side          Side       `json:"side"`
	Status        Status     `json:"status"`
	From          *time.Time `json:"from"`
	To            *time.Time `json:"to"`
	Limit         int        `json:"limit"`
	Offset        int        `json:"offset"`
	SortDirection string     `json:"sortDirection"`
}

// Repository persists order history.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=orderv1_mock
type Repository interface {
	Upsert(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, filter Filter) ([]*Order, error)
}
