package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aggregator/internal/api"
	"aggregator/internal/application/factories/infrastructure"
	"aggregator/internal/channel"
	"aggregator/internal/config"
	"aggregator/internal/domain/record"
	"aggregator/internal/infrastructure/kafka"
	"aggregator/internal/infrastructure/memory"
	"aggregator/internal/infrastructure/postgres"
	"aggregator/internal/infrastructure/redisq"
	"aggregator/internal/ledger"
	"aggregator/internal/stats"
	"aggregator/internal/usecase"
	"aggregator/internal/worker"

	go_redis "github.com/redis/go-redis/v9"
)

func main() {
	// Initialize structured JSON logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	var (
		ch          channel.Channel
		store       ledger.Ledger
		reader      record.Reader
		redisClient *go_redis.Client
	)

	if cfg.Channel.Backend == "memory" {
		// Single-process mode for local runs: everything in memory.
		memLedger := memory.NewLedger()
		store, reader = memLedger, memLedger
		ch = memory.NewQueue(0, cfg.Channel.Visibility)
		logger.Warn("running with in-memory channel and ledger, state will not survive restart")
	} else {
		pgPool, err := infraFactory.Postgres(ctx)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}

		// The uniqueness constraint is the dedup guarantee; refuse to start
		// without it.
		if err := postgres.InitSchema(ctx, pgPool); err != nil {
			logger.Error("failed to ensure ledger schema", "error", err)
			os.Exit(1)
		}

		repo := postgres.NewRecordRepository(pgPool)
		store, reader = repo, repo

		switch cfg.Channel.Backend {
		case "kafka":
			kafkaCh := kafka.New(kafka.Config{
				Brokers: cfg.Kafka.Brokers,
				Topic:   cfg.Kafka.Topic,
				GroupID: cfg.Kafka.GroupID,
			})
			defer kafkaCh.Close()
			ch = kafkaCh

			// Redis is only the read cache here; run degraded without it.
			if redisClient, err = infraFactory.Redis(ctx); err != nil {
				logger.Warn("redis unavailable, listing cache disabled", "error", err)
				redisClient = nil
			}
		default:
			redisClient, err = infraFactory.Redis(ctx)
			if err != nil {
				logger.Error("failed to connect to redis", "error", err)
				os.Exit(1)
			}

			queue := redisq.New(redisClient, redisq.Config{
				QueueKey:   cfg.Channel.QueueKey,
				Visibility: cfg.Channel.Visibility,
			})
			ch = queue

			go queue.RunReclaimer(ctx, cfg.Channel.ReclaimInterval)
		}
	}

	// Ingestion pipeline
	agg := stats.New()
	pool := worker.NewPool(ch, store, agg, cfg.Workers.Count)

	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		pool.Run(ctx)
	}()

	// UseCases
	publishUC := usecase.NewPublishEvent(ch)
	listUC := usecase.NewListEvents(redisClient, reader)
	statsUC := usecase.NewGetStats(agg, ch)

	// REST API
	handlers := api.NewHandlers(publishUC, listUC, statsUC)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: api.NewRouter(handlers),
	}

	go func() {
		logger.Info("aggregator started", "port", cfg.HTTP.Port, "backend", cfg.Channel.Backend, "workers", cfg.Workers.Count)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Workers stop between deliveries; in-flight commits finish first.
	select {
	case <-poolDone:
	case <-time.After(10 * time.Second):
		logger.Error("worker pool did not drain in time")
	}

	logger.Info("aggregator exited")
}
