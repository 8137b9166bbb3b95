package redis

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type client struct {
	logger    logger.Interface
	config    *Config
	universal redis.UniversalClient
}

// NewClient creates a new Redis client with the provided logger and configuration.
func NewClient(logger logger.Interface, config *Config) Client {
	return &client{
		logger: logger,
		config: config,
	}
}

func configError(message string) error {
	return errors.NewErrorDetails(message, string(errors.RedisConfigError), "connect")
}

func (c *client) Connect(ctx context.Context) error {
	if c.config == nil {
		return configError("Redis config is nil")
	}
	if err := c.config.Validate(); err != nil {
		return err
	}

	switch c.config.Mode {
	case Standalone:
		c.universal = redis.NewClient(&redis.Options{
			Addr:            c.config.Addrs[0],
			Username:        c.config.Username,
			Password:        c.config.Password,
			DB:              c.config.DB,
			MaxRetries:      c.config.MaxRetries,
			MinRetryBackoff: c.config.MinRetryBackoff,
			MaxRetryBackoff: c.config.MaxRetryBackoff,
			DialTimeout:     c.config.ConnectTimeout,
			ReadTimeout:     c.config.ConnectTimeout,
			WriteTimeout:    c.config.ConnectTimeout,
			PoolSize:        c.config.PoolSize,
			MinIdleConns:    c.config.MinIdleConns,
			MaxIdleConns:    c.config.MaxIdleConns,
			ConnMaxLifetime: c.config.ConnMaxLifetime,
			ConnMaxIdleTime: c.config.ConnMaxIdleTime,
			PoolTimeout:     c.config.PoolTimeout,
		})
	case Cluster:
		c.universal = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           c.config.Addrs,
			Username:        c.config.Username,
			Password:        c.config.Password,
			MaxRetries:      c.config.MaxRetries,
			MinRetryBackoff: c.config.MinRetryBackoff,
			MaxRetryBackoff: c.config.MaxRetryBackoff,
			DialTimeout:     c.config.ConnectTimeout,
			ReadTimeout:     c.config.ConnectTimeout,
			WriteTimeout:    c.config.ConnectTimeout,
			PoolSize:        c.config.PoolSize,
			MinIdleConns:    c.config.MinIdleConns,
			MaxIdleConns:    c.config.MaxIdleConns,
			ConnMaxLifetime: c.config.ConnMaxLifetime,
			ConnMaxIdleTime: c.config.ConnMaxIdleTime,
			PoolTimeout:     c.config.PoolTimeout,
		})
	}

	if err := c.universal.Ping(ctx).Err(); err != nil {
		return errors.NewTracer(string(errors.RedisConnectionError)).Wrap(err)
	}
	return nil
}

func (c *client) Reconnect(ctx context.Context) bool {
	baseDelay := c.config.MinRetryBackoff
	maxDelay := c.config.MaxRetryBackoff

	for i := range c.config.ReconnectMaxRetries {
		backoff := min(baseDelay*time.Duration(math.Pow(2, float64(i))), maxDelay)

		jitter := time.Duration(rand.IntN(1000)) * time.Millisecond
		totalDelay := backoff + jitter

		c.logger.Info("Reconnecting to Redis",
			logger.Field{Key: "attempt", Value: i + 1},
			logger.Field{Key: "delay", Value: totalDelay},
		)

		select {
		case <-ctx.Done():
			c.logger.Info("Reconnect cancelled", logger.Field{Key: "reason", Value: ctx.Err()})
			return false
		case <-time.After(totalDelay):
			connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.Connect(connectCtx)
			cancel()
			if err == nil {
				c.logger.Info("Reconnected to Redis successfully", logger.Field{Key: "attempt", Value: i + 1})
				return true
			}
			c.logger.Error(errors.TracerFromError(err), logger.Field{Key: "attempt", Value: i + 1})
		}
	}

	return false
}

func (c *client) Disconnect(ctx context.Context) error {
	if c.universal == nil {
		return nil
	}
	if err := c.universal.Close(); err != nil {
		return errors.NewTracer(string(errors.RedisDisconnectionError)).Wrap(err)
	}
	return nil
}

func (c *client) Ping(ctx context.Context) error {
	if err := c.universal.Ping(ctx).Err(); err != nil {
		return errors.NewErrorDetails("Failed to ping Redis", string(errors.RedisPingError), "ping")
	}
	return nil
}

func (c *client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.universal.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", errors.NewErrorDetails("Failed to get value from Redis", string(errors.RedisGetError), "get")
	}
	return val, nil
}

func (c *client) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := c.universal.Set(ctx, key, value, expiration).Err(); err != nil {
		return errors.NewErrorDetails("Failed to set value in Redis", string(errors.RedisSetError), "set")
	}
	return nil
}

func (c *client) SAdd(ctx context.Context, key string, members ...any) (int64, error) {
	added, err := c.universal.SAdd(ctx, key, members...).Result()
	if err != nil {
		return 0, errors.NewErrorDetails("Failed to add members to set in Redis", string(errors.RedisSetMemberError), "sadd")
	}
	return added, nil
}

func (c *client) SRem(ctx context.Context, key string, members ...any) (int64, error) {
	removed, err := c.universal.SRem(ctx, key, members...).Result()
	if err != nil {
		return 0, errors.NewErrorDetails("Failed to remove members from set in Redis", string(errors.RedisSetMemberError), "srem")
	}
	return removed, nil
}

func (c *client) SIsMember(ctx context.Context, key string, member any) (bool, error) {
	ok, err := c.universal.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, errors.NewErrorDetails("Failed to check set membership in Redis", string(errors.RedisSetMemberError), "sismember")
	}
	return ok, nil
}
