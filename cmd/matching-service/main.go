package main

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	app "github.com/muhammadchandra19/exchange-core/internal/app/engine"
	collateralv1 "github.com/muhammadchandra19/exchange-core/internal/domain/collateral/v1"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/collateral"
	commandreader "github.com/muhammadchandra19/exchange-core/internal/usecase/command-reader"
	eventpublisher "github.com/muhammadchandra19/exchange-core/internal/usecase/event-publisher"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/eventbus"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/snapshot"
	"github.com/muhammadchandra19/exchange-core/pkg/config"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/grpclib/health"
	"github.com/muhammadchandra19/exchange-core/pkg/httplib/healthcheck"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/redis"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
)

const serviceName = "exchange.MatchingService"

var cfg *config.MatchingConfig
var log *logger.Logger

func init() {
	cfg = &config.MatchingConfig{}
	if err := config.Load(cfg); err != nil {
		panic(err)
	}

	l, err := logger.NewLogger(
		logger.WithLoggingLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithService(serviceName),
	)
	if err != nil {
		panic(err)
	}

	log = l
}

func main() {
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	rclient := redis.NewClient(log, &cfg.Redis)
	if err := rclient.Connect(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_redis"})
		return
	}
	defer func() {
		if err := rclient.Disconnect(context.Background()); err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "disconnect_redis"})
		}
	}()

	authorizer, err := newAuthorizer(ctx, rclient)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "init_authorizer"})
		return
	}

	custodian := collateral.NewCustodian(cfg.Collateral.Unlimited, log)
	if err := custodian.Seed(cfg.Collateral.Balances); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "seed_custody"})
		return
	}

	publisher := eventpublisher.NewPublisher(cfg.Events, log)
	busOpts := eventbus.DefaultOptions()
	busOpts.BufferSize = cfg.Engine.EventBufferSize
	bus := eventbus.NewBus(publisher, log, busOpts)
	go bus.Run(context.WithoutCancel(ctx))

	clock := util.SystemClock{}
	exchange := app.NewExchange(custodian, authorizer, bus, clock, log, app.OptionsFromConfig(cfg.Engine))
	service := app.NewService(
		exchange,
		commandreader.NewReader(cfg.Commands, log),
		snapshot.NewSnapshotStore(rclient, cfg.Redis.Key(cfg.Engine.SnapshotKey), log),
		bus,
		clock,
		log,
		app.ServiceOptionsFromConfig(cfg.Engine),
	)

	if err := service.Start(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "start_service"})
		return
	}

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthServer.Register(grpcServer)
	reflection.Register(grpcServer)
	healthServer.InitService(serviceName)
	go healthServer.Monitor(ctx, serviceName, 5*time.Second, func(ctx context.Context) error {
		err := rclient.Ping(ctx)
		if err != nil && rclient.Reconnect(ctx) {
			return nil
		}
		return err
	})
	go serveGRPC(grpcServer)

	hc := healthcheck.HealthCheck{
		Probes:  map[string]healthcheck.Probe{"redis": rclient.Ping},
		Timeout: 2 * time.Second,
	}
	httpServer := &http.Server{
		Addr:              cfg.Health.HTTPAddr,
		Handler:           hc.Handler(http.NotFoundHandler()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go serveHTTP(httpServer)

	log.Info("Matching service started",
		logger.Field{Key: "commands_topic", Value: cfg.Commands.Topic},
		logger.Field{Key: "events_topic", Value: cfg.Events.Topic},
		logger.Field{Key: "command_offset", Value: service.CommandOffset()},
	)

	sig := <-sigChan
	log.Info("Received shutdown signal", logger.Field{Key: "signal", Value: sig.String()})

	healthServer.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := service.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_service"})
	}
	if err := bus.Close(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "close_event_bus"})
	}
	if err := publisher.Close(); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "close_publisher"})
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_http_health"})
	}
	grpcServer.GracefulStop()

	log.Info("Matching service shutdown complete")
}

func newAuthorizer(ctx context.Context, rclient redis.Client) (collateralv1.Authorizer, error) {
	switch cfg.Collateral.AuthorizerMode {
	case "", "allow_all":
		return collateral.AllowAll{}, nil
	case "memory":
		return collateral.NewAllowList(cfg.Collateral.AllowedTraders...), nil
	case "redis":
		allowList := collateral.NewRedisAllowList(rclient, cfg.Redis.Key(cfg.Collateral.AllowListKey))
		if len(cfg.Collateral.AllowedTraders) > 0 {
			if err := allowList.Allow(ctx, cfg.Collateral.AllowedTraders...); err != nil {
				return nil, err
			}
		}
		return allowList, nil
	default:
		return nil, errors.NewValidationError(
			errors.GeneralBadRequestError,
			"unknown authorizer mode "+cfg.Collateral.AuthorizerMode,
			"AUTHORIZER_MODE",
		)
	}
}

func serveGRPC(server *grpc.Server) {
	lis, err := net.Listen("tcp", cfg.Health.GRPCAddr)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "listen_grpc_health"})
		return
	}
	if err := server.Serve(lis); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "serve_grpc_health"})
	}
}

func serveHTTP(server *http.Server) {
	if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		log.Error(err, logger.Field{Key: "action", Value: "serve_http_health"})
	}
}
