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

	"github.com/angelmondragon/freightdispatch-backend/api/routes"
	"github.com/angelmondragon/freightdispatch-backend/internal/assignment"
	"github.com/angelmondragon/freightdispatch-backend/internal/bids"
	"github.com/angelmondragon/freightdispatch-backend/internal/geocoding"
	"github.com/angelmondragon/freightdispatch-backend/internal/loads"
	"github.com/angelmondragon/freightdispatch-backend/internal/notifications"
	"github.com/angelmondragon/freightdispatch-backend/internal/settlement"
	"github.com/angelmondragon/freightdispatch-backend/internal/tracking"
	"github.com/angelmondragon/freightdispatch-backend/pkg/config"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db"
	"github.com/angelmondragon/freightdispatch-backend/pkg/instance"
	"github.com/angelmondragon/freightdispatch-backend/pkg/lock"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/maps"
	"github.com/angelmondragon/freightdispatch-backend/pkg/metrics"
	"github.com/angelmondragon/freightdispatch-backend/pkg/migrate"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox"
	"github.com/angelmondragon/freightdispatch-backend/pkg/redis"
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
		maps.WithDistanceURL(cfg.GoogleMaps.DistanceURL),
		maps.WithGeocodeSpacing(cfg.GoogleMaps.GeocodeSpacing),
		maps.WithMaxElements(cfg.GoogleMaps.MaxElements),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create maps client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	dispatchMetrics := metrics.NewDispatchMetrics(registry)

	var locks lock.Locker = lock.NewLocal()
	if cfg.FeatureFlags.RedisLoadLocks {
		redisLocks, err := lock.NewRedis(redisClient, cfg.Dispatch.LockTTL, cfg.Dispatch.LockWait)
		if err != nil {
			logg.Error(context.Background(), "failed to create load locks", err)
			os.Exit(1)
		}
		locks = redisLocks
	}

	notifier := outbox.NewNotifier(dbClient, outbox.NewService(outbox.NewRepository(dbClient.DB()), logg), logg)

	geocodingService, err := geocoding.NewService(geocoding.NewRepository(dbClient.DB()), dbClient, mapsClient, logg,
		geocoding.WithMetrics(dispatchMetrics))
	if err != nil {
		logg.Error(context.Background(), "failed to create geocoding service", err)
		os.Exit(1)
	}

	settlementGuard, err := settlement.NewGuard(settlement.NewRepository(dbClient.DB()), dbClient, locks, notifier, logg,
		settlement.WithMetrics(dispatchMetrics))
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement guard", err)
		os.Exit(1)
	}

	loadOpts := []loads.Option{
		loads.WithMetrics(dispatchMetrics),
		loads.WithReadinessChecker(settlementGuard),
		loads.WithLocker(locks),
	}
	if cfg.FeatureFlags.GeocodeOnCreate {
		loadOpts = append(loadOpts, loads.WithGeocoder(geocodingService))
	}
	loadService, err := loads.NewService(loads.NewRepository(dbClient.DB()), dbClient, notifier, logg, loadOpts...)
	if err != nil {
		logg.Error(context.Background(), "failed to create load service", err)
		os.Exit(1)
	}

	bidService, err := bids.NewService(bids.NewRepository(dbClient.DB()), loadService, dbClient, locks, notifier, logg,
		bids.WithMetrics(dispatchMetrics))
	if err != nil {
		logg.Error(context.Background(), "failed to create bid service", err)
		os.Exit(1)
	}

	trackingService, err := tracking.NewService(tracking.NewRepository(dbClient.DB()), dbClient, mapsClient, logg,
		tracking.WithMetrics(dispatchMetrics),
		tracking.WithETATimeout(cfg.GoogleMaps.RequestTimeout))
	if err != nil {
		logg.Error(context.Background(), "failed to create tracking service", err)
		os.Exit(1)
	}

	assignmentService, err := assignment.NewService(assignment.NewRepository(dbClient.DB()), mapsClient, logg,
		assignment.WithMetrics(dispatchMetrics),
		assignment.WithTopN(cfg.Dispatch.FleetTopN, cfg.Dispatch.LoadTopN))
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID("local"),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry,
			loadService,
			bidService,
			trackingService,
			assignmentService,
			geocodingService,
			settlementGuard,
			notificationsService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
