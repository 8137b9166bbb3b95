package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/muhammadchandra19/exchange-core/pkg/postgresql"
	"github.com/muhammadchandra19/exchange-core/pkg/questdb"
	"github.com/muhammadchandra19/exchange-core/pkg/redis"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and an optional .env file.
func Load[T any](cfg T) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return env.Parse(cfg)
}

// MatchingConfig holds the configuration of the matching service.
type MatchingConfig struct {
	LogLevel   string       `env:"LOG_LEVEL" envDefault:"info"`
	Engine     EngineConfig `envPrefix:"ENGINE_"`
	Commands   KafkaConfig  `envPrefix:"KAFKA_COMMANDS_"`
	Events     KafkaConfig  `envPrefix:"KAFKA_EVENTS_"`
	Redis      redis.Config `envPrefix:"REDIS_"`
	Health     HealthConfig `envPrefix:"HEALTH_"`
	Collateral CollateralConfig
}

// RecorderConfig holds the configuration of the event recorder.
type RecorderConfig struct {
	LogLevel  string            `env:"LOG_LEVEL" envDefault:"info"`
	Events    KafkaConfig       `envPrefix:"KAFKA_EVENTS_"`
	Postgres  postgresql.Config `envPrefix:"POSTGRES_"`
	QuestDB   questdb.Config    `envPrefix:"QUESTDB_"`
	Health    HealthConfig      `envPrefix:"HEALTH_"`
	BatchSize int               `env:"RECORDER_BATCH_SIZE" envDefault:"100"`
}

// MigrateConfig holds the database settings used by the migrate command.
type MigrateConfig struct {
	LogLevel string            `env:"LOG_LEVEL" envDefault:"info"`
	Postgres postgresql.Config `envPrefix:"POSTGRES_"`
	QuestDB  questdb.Config    `envPrefix:"QUESTDB_"`
}

// EngineConfig holds matching behaviour and background job settings.
type EngineConfig struct {
	DefaultSlippageBps    int64         `env:"DEFAULT_SLIPPAGE_BPS" envDefault:"0"`
	ArbitrageThresholdBps int64         `env:"ARBITRAGE_THRESHOLD_BPS" envDefault:"100"`
	ArbitrageTTL          time.Duration `env:"ARBITRAGE_TTL" envDefault:"5m"`
	MarketDataWindow      time.Duration `env:"MARKET_DATA_WINDOW" envDefault:"24h"`
	MaxTrades             uint64        `env:"LEDGER_MAX_TRADES" envDefault:"0"`
	SnapshotInterval      time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"30s"`
	SnapshotOffsetDelta   int64         `env:"SNAPSHOT_OFFSET_DELTA" envDefault:"1000"`
	SweepInterval         time.Duration `env:"SWEEP_INTERVAL" envDefault:"1s"`
	EventBufferSize       int           `env:"EVENT_BUFFER_SIZE" envDefault:"4096"`
	SnapshotKey           string        `env:"SNAPSHOT_KEY" envDefault:"snapshot"`
}

// KafkaConfig holds the configuration for Kafka consumer and producer.
type KafkaConfig struct {
	Topic   string   `env:"TOPIC,required"`
	GroupID string   `env:"GROUP_ID" envDefault:"exchange-core"`
	Brokers []string `env:"BROKERS,required"`
}

// HealthConfig holds the listen addresses of the health endpoints.
type HealthConfig struct {
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":9090"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
}

// CollateralConfig selects the collateral adapters.
type CollateralConfig struct {
	// AuthorizerMode is one of "allow_all", "memory" or "redis".
	AuthorizerMode string   `env:"AUTHORIZER_MODE" envDefault:"allow_all"`
	AllowedTraders []string `env:"ALLOWED_TRADERS"`
	AllowListKey   string   `env:"ALLOW_LIST_KEY" envDefault:"authorized_traders"`
	// Balances seeds the in-memory custodian, as trader:asset:amount entries.
	Balances []string `env:"CUSTODY_BALANCES"`
	// Unlimited disables balance checks in the in-memory custodian.
	Unlimited bool `env:"CUSTODY_UNLIMITED" envDefault:"true"`
}
