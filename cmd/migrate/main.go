package main

import (
	"context"
	"flag"
	"path/filepath"

	"github.com/muhammadchandra19/exchange-core/pkg/config"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/migration"
	"github.com/muhammadchandra19/exchange-core/pkg/postgresql"
	"github.com/muhammadchandra19/exchange-core/pkg/questdb"
)

func main() {
	var (
		target    = flag.String("target", "postgres", "Database to migrate: postgres, questdb or all")
		direction = flag.String("direction", "up", "Migration direction: up or down")
		steps     = flag.Int("steps", 0, "Number of steps to migrate (0 = all)")
		dir       = flag.String("dir", "migrations", "Root directory holding postgres/ and questdb/ migrations")
	)
	flag.Parse()

	cfg := &config.MigrateConfig{}
	config.MustLoad(cfg)

	log, err := logger.NewLogger(
		logger.WithLoggingLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithService("migrate"),
	)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	if *direction != "up" && *direction != "down" {
		log.Warn("Invalid direction, use 'up' or 'down'", logger.Field{Key: "direction", Value: *direction})
		return
	}

	switch *target {
	case "postgres":
		err = migratePostgres(ctx, cfg, log, *dir, *direction, *steps)
	case "questdb":
		err = migrateQuestDB(ctx, cfg, log, *dir, *direction, *steps)
	case "all":
		if err = migratePostgres(ctx, cfg, log, *dir, *direction, *steps); err == nil {
			err = migrateQuestDB(ctx, cfg, log, *dir, *direction, *steps)
		}
	default:
		log.Warn("Invalid target, use 'postgres', 'questdb' or 'all'", logger.Field{Key: "target", Value: *target})
		return
	}
	if err != nil {
		log.Error(err,
			logger.Field{Key: "action", Value: "migrate"},
			logger.Field{Key: "target", Value: *target},
			logger.Field{Key: "direction", Value: *direction},
		)
		return
	}

	log.Info("Migration completed",
		logger.Field{Key: "target", Value: *target},
		logger.Field{Key: "direction", Value: *direction},
	)
}

func migratePostgres(ctx context.Context, cfg *config.MigrateConfig, log logger.Interface, dir, direction string, steps int) error {
	client, err := postgresql.NewClient(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer client.Close()

	runner := migration.NewRunner(migration.NewPostgresStore(client, ""), filepath.Join(dir, "postgres"), log)
	return run(ctx, runner, direction, steps)
}

func migrateQuestDB(ctx context.Context, cfg *config.MigrateConfig, log logger.Interface, dir, direction string, steps int) error {
	client, err := questdb.NewClient(ctx, cfg.QuestDB)
	if err != nil {
		return err
	}
	defer client.Close()

	runner := migration.NewRunner(migration.NewQuestDBStore(client), filepath.Join(dir, "questdb"), log)
	return run(ctx, runner, direction, steps)
}

func run(ctx context.Context, runner *migration.Runner, direction string, steps int) error {
	if direction == "down" {
		return runner.MigrateDown(ctx, steps)
	}
	return runner.MigrateUp(ctx, steps)
}
