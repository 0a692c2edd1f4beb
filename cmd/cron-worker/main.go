package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snapmarket/snapmarket-backend/internal/cron"
	"github.com/snapmarket/snapmarket-backend/internal/entries"
	"github.com/snapmarket/snapmarket-backend/internal/requests"
	"github.com/snapmarket/snapmarket-backend/pkg/config"
	"github.com/snapmarket/snapmarket-backend/pkg/db"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
	"github.com/snapmarket/snapmarket-backend/pkg/metrics"
	"github.com/snapmarket/snapmarket-backend/pkg/migrate"
	"github.com/snapmarket/snapmarket-backend/pkg/redis"
	"github.com/snapmarket/snapmarket-backend/pkg/storage/s3"
)

const lockKeyFormat = "sm:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	s3Client, err := s3.NewClient(context.Background(), cfg.S3, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	requestsRepo := requests.NewRepository(dbClient.DB())
	entriesRepo := entries.NewRepository(dbClient.DB())

	expiryJob, err := cron.NewRequestExpiryJob(cron.RequestExpiryJobParams{
		Logger:  logg,
		Expirer: requestsRepo,
		Metrics: metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create request expiry job", err)
		os.Exit(1)
	}

	unselectedJob, err := cron.NewUnselectedPurgeJob(cron.UnselectedPurgeJobParams{
		Logger:  logg,
		Repo:    entriesRepo,
		Store:   s3Client,
		Metrics: metricsCollector,
		Grace:   cfg.Retention.UnselectedGrace,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create unselected purge job", err)
		os.Exit(1)
	}

	purchasedJob, err := cron.NewPurchasedPurgeJob(cron.PurchasedPurgeJobParams{
		Logger:    logg,
		Repo:      entriesRepo,
		Store:     s3Client,
		Metrics:   metricsCollector,
		Retention: cfg.Retention.PurchasedRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create purchased purge job", err)
		os.Exit(1)
	}

	// Expiry runs first so freshly expired requests age from this cycle, not
	// the next one.
	registry := cron.NewRegistry(expiryJob, unselectedJob, purchasedJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	go serveMetrics(cfg.Cron.MetricsPort, logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func serveMetrics(port string, logg *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":"+port, mux); err != nil && err != http.ErrServerClosed {
		logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
	}
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
