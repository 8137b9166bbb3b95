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

	orderrepo "github.com/muhammadchandra19/exchange-core/internal/infrastructure/postgresql/order"
	traderepo "github.com/muhammadchandra19/exchange-core/internal/infrastructure/postgresql/trade"
	marketdatarepo "github.com/muhammadchandra19/exchange-core/internal/infrastructure/questdb/marketdata"
	eventpublisher "github.com/muhammadchandra19/exchange-core/internal/usecase/event-publisher"
	"github.com/muhammadchandra19/exchange-core/internal/usecase/recorder"
	"github.com/muhammadchandra19/exchange-core/pkg/config"
	"github.com/muhammadchandra19/exchange-core/pkg/grpclib/health"
	"github.com/muhammadchandra19/exchange-core/pkg/httplib/healthcheck"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/postgresql"
	"github.com/muhammadchandra19/exchange-core/pkg/questdb"
)

const serviceName = "exchange.Recorder"

var cfg *config.RecorderConfig
var log *logger.Logger

func init() {
	cfg = &config.RecorderConfig{}
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

	db, err := postgresql.NewClient(ctx, cfg.Postgres)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_postgres"})
		return
	}
	defer db.Close()

	qdb, err := questdb.NewClient(ctx, cfg.QuestDB)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_questdb"})
		return
	}
	defer qdb.Close()

	reader := eventpublisher.NewReader(cfg.Events, log)
	defer func() {
		if err := reader.Close(); err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "close_event_reader"})
		}
	}()

	opts := recorder.DefaultOptions()
	opts.BatchSize = cfg.BatchSize
	rec := recorder.NewRecorder(
		reader,
		orderrepo.NewRepository(db, log),
		traderepo.NewRepository(db, log),
		marketdatarepo.NewRepository(qdb),
		log,
		opts,
	)

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthServer.Register(grpcServer)
	reflection.Register(grpcServer)
	healthServer.InitService(serviceName)
	go healthServer.Monitor(ctx, serviceName, 5*time.Second, func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return err
		}
		return qdb.Ping(ctx)
	})
	go serveGRPC(grpcServer)

	hc := healthcheck.HealthCheck{
		Probes: map[string]healthcheck.Probe{
			"postgres": db.Ping,
			"questdb":  qdb.Ping,
		},
		Timeout: 2 * time.Second,
	}
	httpServer := &http.Server{
		Addr:              cfg.Health.HTTPAddr,
		Handler:           hc.Handler(http.NotFoundHandler()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go serveHTTP(httpServer)

	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	log.Info("Recorder started",
		logger.Field{Key: "events_topic", Value: cfg.Events.Topic},
		logger.Field{Key: "batch_size", Value: opts.BatchSize},
	)

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", logger.Field{Key: "signal", Value: sig.String()})
		healthServer.Shutdown()
		cancel()
		if err := <-done; err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "flush_recorder"})
		}
	case err := <-done:
		healthServer.Shutdown()
		if err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "run_recorder"})
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_http_health"})
	}
	grpcServer.GracefulStop()

	log.Info("Recorder shutdown complete")
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
