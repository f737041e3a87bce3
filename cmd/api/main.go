package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotbook/internal/api"
	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/events"
	"slotbook/internal/logging"
	"slotbook/internal/metrics"
	"slotbook/internal/repository"
	"slotbook/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	db, err := initDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, cache := initAvailabilityCache(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	metrics.Register()

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, logger)

	bookingService := service.NewBookingService(db, cache, eventBus, cfg.Booking, logger)
	availabilityService := service.NewAvailabilityService(db, cache, cfg.Booking, logger)
	paymentService := service.NewPaymentService(db, eventBus, cfg.Booking, logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, logger)
		go backupService.Start(ctx)
	}

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(cfg.Monitoring.PrometheusPort, logger)
	}

	apiServer := api.NewHTTPServer(cfg.API, bookingService, availabilityService, paymentService, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return apiServer.Shutdown(shutdownCtx)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, &logger, closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return nil, err
	}

	if err := db.SyncVendors(context.Background(), cfg.Vendors); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// initAvailabilityCache wires redis behind a memory fallback. Without a
// configured redis address the cache runs memory-only.
func initAvailabilityCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, repository.AvailabilityCache) {
	ttl := time.Duration(cfg.Redis.CacheTTLSeconds) * time.Second
	memory := repository.NewMemoryAvailabilityCache(ttl)

	if cfg.Redis.Address == "" {
		logger.Info().Msg("redis address not configured, using in-memory availability cache")
		return nil, memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable at startup, failover cache will retry")
	}

	return client, repository.NewFailoverAvailabilityCache(
		repository.NewRedisAvailabilityCache(client, ttl), memory, logger)
}

func subscribeBookingEvents(bus *events.EventBus, logger *zerolog.Logger) {
	bus.Subscribe(events.EventBookingCreated, func(e *events.Event) error {
		logger.Info().RawJSON("payload", e.Payload).Msg("booking created")
		return nil
	})
	bus.Subscribe(events.EventBookingPaid, func(e *events.Event) error {
		logger.Info().RawJSON("payload", e.Payload).Msg("booking paid")
		return nil
	})
}

func startMetricsServer(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
