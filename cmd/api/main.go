package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sharebridge/sharebridge-backend/api/routes"
	"github.com/sharebridge/sharebridge-backend/internal/applications"
	"github.com/sharebridge/sharebridge-backend/internal/notifications"
	"github.com/sharebridge/sharebridge-backend/internal/producers"
	"github.com/sharebridge/sharebridge-backend/internal/products"
	"github.com/sharebridge/sharebridge-backend/internal/users"
	"github.com/sharebridge/sharebridge-backend/pkg/config"
	"github.com/sharebridge/sharebridge-backend/pkg/db"
	"github.com/sharebridge/sharebridge-backend/pkg/logger"
	"github.com/sharebridge/sharebridge-backend/pkg/metrics"
	"github.com/sharebridge/sharebridge-backend/pkg/migrate"
	"github.com/sharebridge/sharebridge-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	lifecycleMetrics := metrics.NewLifecycleMetrics(registry)

	mailer := buildMailer(ctx, cfg, logg)
	producerRepo := producers.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())

	applicationService, err := applications.NewService(applications.ServiceParams{
		Repo:      applications.NewRepository(dbClient.DB()),
		Tx:        dbClient,
		Products:  productRepo,
		Producers: producerRepo,
		Users:     users.NewRepository(dbClient.DB()),
		Mailer:    mailer,
		Metrics:   lifecycleMetrics,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create applications service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(products.ServiceParams{
		Repo:      productRepo,
		Tx:        dbClient,
		Producers: producerRepo,
		Cascade:   applicationService,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create products service", err)
		os.Exit(1)
	}

	handler, err := routes.NewRouter(routes.Deps{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		Idempotency:  redisClient,
		Locker:       redisClient,
		Gatherer:     registry,
		Applications: applicationService,
		Products:     productService,
	})
	if err != nil {
		logg.Error(ctx, "failed to build router", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "graceful shutdown failed", err)
		}
	}
}

// buildMailer prefers SendGrid and falls back to logging emails when no API key is configured.
func buildMailer(ctx context.Context, cfg *config.Config, logg *logger.Logger) notifications.Mailer {
	if !cfg.Sendgrid.Enabled() {
		logg.Warn(ctx, "sendgrid api key not set, emails will only be logged")
		return notifications.NewLogMailer(logg)
	}
	mailer, err := notifications.NewSendGridMailer(cfg.Sendgrid)
	if err != nil {
		logg.Error(ctx, "failed to create sendgrid mailer", err)
		os.Exit(1)
	}
	return mailer
}
