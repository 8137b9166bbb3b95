package util

import (
	"context"

	"github.com/google/uuid"
)

type key string

const (
	requestIDKey = key("x-request-id")
	traderIDKey  = key("trader-id")
	commandIDKey = key("command-id")
)

// WithRequestID returns a context with request id.
// A new uuid is generated when the provided id is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// WithTraderID returns a context carrying the trader the call is made on behalf of.
func WithTraderID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traderIDKey, id)
}

// WithCommandID returns a context carrying the id of the transport command being handled.
func WithCommandID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, commandIDKey, id)
}

// GetRequestID returns request id from context
// will return empty string if not present
func GetRequestID(ctx context.Context) string {
	return valueOf(ctx, requestIDKey)
}

// GetTraderID returns trader id from context
// will return empty string if not present
func GetTraderID(ctx context.Context) string {
	return valueOf(ctx, traderIDKey)
}

// GetCommandID returns command id from context
// will return empty string if not present
func GetCommandID(ctx context.Context) string {
	return valueOf(ctx, commandIDKey)
}

func valueOf(ctx context.Context, k key) string {
	v, _ := ctx.Value(k).(string)
	return v
}
