package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/freightdispatch-backend/internal/cron"
	"github.com/angelmondragon/freightdispatch-backend/internal/geocoding"
	"github.com/angelmondragon/freightdispatch-backend/internal/notifications"
	"github.com/angelmondragon/freightdispatch-backend/pkg/config"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db"
	"github.com/angelmondragon/freightdispatch-backend/pkg/instance"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/maps"
	"github.com/angelmondragon/freightdispatch-backend/pkg/metrics"
	"github.com/angelmondragon/freightdispatch-backend/pkg/migrate"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox"
	"github.com/angelmondragon/freightdispatch-backend/pkg/redis"
)

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

	cfg.Service.Kind = "cron-worker"

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

	mapsClient, err := maps.NewClient(cfg.GoogleMaps.APIKey,
		maps.WithHTTPClient(&http.Client{Timeout: cfg.GoogleMaps.RequestTimeout}),
		maps.WithGeocodeURL(cfg.GoogleMaps.GeocodeURL),
		maps.WithGeocodeSpacing(cfg.GoogleMaps.GeocodeSpacing),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create maps client", err)
		os.Exit(1)
	}

	dispatchMetrics := metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)
	geocodingService, err := geocoding.NewService(geocoding.NewRepository(dbClient.DB()), dbClient, mapsClient, logg,
		geocoding.WithMetrics(dispatchMetrics))
	if err != nil {
		logg.Error(context.Background(), "failed to create geocoding service", err)
		os.Exit(1)
	}

	backfillJob, err := cron.NewGeocodeBackfillJob(cron.GeocodeBackfillJobParams{
		Logger:    logg,
		Geocoder:  geocodingService,
		BatchSize: cfg.Cron.BackfillBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create geocode backfill job", err)
		os.Exit(1)
	}
	notificationJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(dbClient.DB()),
		Retention:  cfg.Cron.NotificationRetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}
	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(dbClient.DB()),
		Retention:   cfg.Cron.OutboxRetentionDays,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	schedule := []struct {
		spec string
		job  cron.Job
	}{
		{cfg.Cron.BackfillSchedule, backfillJob},
		{cfg.Cron.CleanupSchedule, notificationJob},
		{cfg.Cron.CleanupSchedule, outboxJob},
	}
	for _, entry := range schedule {
		if err := registry.Register(entry.spec, entry.job); err != nil {
			logg.Error(context.Background(), "failed to register cron job", err)
			os.Exit(1)
		}
	}

	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		RunOnStart: cfg.Cron.RunOnStart,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID("cron-0"),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
