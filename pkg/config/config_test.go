package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMatchingConfig(t *testing.T) {
	t.Setenv("KAFKA_COMMANDS_TOPIC", "commands")
	t.Setenv("KAFKA_COMMANDS_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_EVENTS_TOPIC", "events")
	t.Setenv("KAFKA_EVENTS_BROKERS", "k1:9092")
	t.Setenv("ENGINE_ARBITRAGE_TTL", "2m")
	t.Setenv("REDIS_ADDRS", "redis:6379")

	cfg := &MatchingConfig{}
	require.NoError(t, Load(cfg))

	assert.Equal(t, "commands", cfg.Commands.Topic)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Commands.Brokers)
	assert.Equal(t, "events", cfg.Events.Topic)
	assert.Equal(t, 2*time.Minute, cfg.Engine.ArbitrageTTL)
	assert.Equal(t, int64(100), cfg.Engine.ArbitrageThresholdBps)
	assert.Equal(t, []string{"redis:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, "allow_all", cfg.Collateral.AuthorizerMode)
	assert.True(t, cfg.Collateral.Unlimited)
}

func TestLoadRequiresKafkaTopics(t *testing.T) {
	cfg := &RecorderConfig{}
	assert.Error(t, Load(cfg))
}
