package collateral

import (
	"context"
	"sync"

	collateralv1 "github.com/muhammadchandra19/exchange-core/internal/domain/collateral/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/redis"
)

// AllowAll authorizes every trader.
type AllowAll struct{}

// IsAuthorized always returns true.
func (AllowAll) IsAuthorized(context.Context, string) (bool, error) {
	return true, nil
}

// AllowList authorizes the traders it was given.
type AllowList struct {
	mu      sync.RWMutex
	traders map[string]struct{}
}

// NewAllowList creates an allow list holding traders.
func NewAllowList(traders ...string) *AllowList {
	a := &AllowList{traders: make(map[string]struct{}, len(traders))}
	a.Allow(traders...)
	return a
}

// Allow adds traders to the list.
func (a *AllowList) Allow(traders ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range traders {
		a.traders[t] = struct{}{}
	}
}

// Revoke removes traders from the list.
func (a *AllowList) Revoke(traders ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range traders {
		delete(a.traders, t)
	}
}

// IsAuthorized reports whether trader is on the list.
func (a *AllowList) IsAuthorized(_ context.Context, trader string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.traders[trader]
	return ok, nil
}

// RedisAllowList authorizes members of a Redis set.
type RedisAllowList struct {
	client redis.Client
	key    string
}

// NewRedisAllowList checks membership of key, already prefixed by the caller.
func NewRedisAllowList(client redis.Client, key string) *RedisAllowList {
	return &RedisAllowList{client: client, key: key}
}

// IsAuthorized reports whether trader is a member of the set.
func (a *RedisAllowList) IsAuthorized(ctx context.Context, trader string) (bool, error) {
	ok, err := a.client.SIsMember(ctx, a.key, trader)
	if err != nil {
		return false, errors.TracerFromError(err)
	}
	return ok, nil
}

// Allow adds traders to the set.
func (a *RedisAllowList) Allow(ctx context.Context, traders ...string) error {
	members := make([]any, 0, len(traders))
	for _, t := range traders {
		members = append(members, t)
	}
	if _, err := a.client.SAdd(ctx, a.key, members...); err != nil {
		return errors.TracerFromError(err)
	}
	return nil
}

// Revoke removes traders from the set.
func (a *RedisAllowList) Revoke(ctx context.Context, traders ...string) error {
	members := make([]any, 0, len(traders))
	for _, t := range traders {
		members = append(members, t)
	}
	if _, err := a.client.SRem(ctx, a.key, members...); err != nil {
		return errors.TracerFromError(err)
	}
	return nil
}

var (
	_ collateralv1.Authorizer = AllowAll{}
	_ collateralv1.Authorizer = (*AllowList)(nil)
	_ collateralv1.Authorizer = (*RedisAllowList)(nil)
)
