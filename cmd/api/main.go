package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/snapmarket/snapmarket-backend/api/controllers"
	"github.com/snapmarket/snapmarket-backend/api/routes"
	"github.com/snapmarket/snapmarket-backend/internal/entries"
	"github.com/snapmarket/snapmarket-backend/internal/payments"
	"github.com/snapmarket/snapmarket-backend/internal/requests"
	"github.com/snapmarket/snapmarket-backend/internal/users"
	checkoutwebhook "github.com/snapmarket/snapmarket-backend/internal/webhooks/checkout"
	"github.com/snapmarket/snapmarket-backend/pkg/checkout"
	"github.com/snapmarket/snapmarket-backend/pkg/config"
	"github.com/snapmarket/snapmarket-backend/pkg/db"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
	"github.com/snapmarket/snapmarket-backend/pkg/mailer"
	"github.com/snapmarket/snapmarket-backend/pkg/migrate"
	"github.com/snapmarket/snapmarket-backend/pkg/redis"
	"github.com/snapmarket/snapmarket-backend/pkg/storage/s3"
)

const webhookIdempotencyTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	checkoutClient, err := checkout.NewClient(context.Background(), cfg.Checkout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap checkout client", err)
		os.Exit(1)
	}

	mailClient, err := mailer.NewClient(context.Background(), cfg.Mail, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap mail client", err)
		os.Exit(1)
	}

	requestsRepo := requests.NewRepository(dbClient.DB())
	entriesRepo := entries.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

	requestsService, err := requests.NewService(requestsRepo, usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create requests service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.Params{
		Repo:     paymentsRepo,
		Entries:  entriesRepo,
		Requests: requestsRepo,
		Users:    usersRepo,
		Sessions: checkoutClient,
		Store:    s3Client,
		Mail:     mailClient,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	entriesService, err := entries.NewService(entries.Params{
		Repo:        entriesRepo,
		Requests:    requestsRepo,
		Users:       usersRepo,
		Store:       s3Client,
		Authorizer:  paymentsService,
		UploadTTL:   cfg.S3.UploadURLExpiry,
		DownloadTTL: cfg.S3.DownloadURLExpiry,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create entries service", err)
		os.Exit(1)
	}

	webhookService, err := checkoutwebhook.NewService(paymentsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := checkoutwebhook.NewIdempotencyGuard(redisClient, webhookIdempotencyTTL, "checkout")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config: cfg,
			Logger: logg,
			HealthDeps: map[string]controllers.HealthPinger{
				"database": dbClient,
				"redis":    redisClient,
				"storage":  s3Client,
			},
			RequestsService: requestsService,
			EntriesService:  entriesService,
			PaymentsService: paymentsService,
			UsersService:    usersService,
			CheckoutClient:  checkoutClient,
			WebhookService:  webhookService,
			WebhookGuard:    webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
