package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitrina/internal/api"
	"vitrina/internal/config"
	"vitrina/internal/database"
	"vitrina/internal/domain"
	"vitrina/internal/events"
	"vitrina/internal/logging"
	"vitrina/internal/metrics"
	"vitrina/internal/models"
	"vitrina/internal/repository"
	"vitrina/internal/service"
	"vitrina/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
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
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	metrics.Register()

	bus := events.NewEventBus()
	bus.OnError(func(event *events.Event, err error) {
		logger.Warn().Err(err).Str("event_type", event.Type).Msg("event handler failed")
	})

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Kafka.Enabled {
		sink := events.NewKafkaSink(
			events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic),
			cfg.Kafka.Buffer,
			logging.Component(logger, "kafka-sink"),
		)
		bus.SubscribeAll(sink.Handle)
		g.Go(func() error { return sink.Run(gctx) })
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka sink enabled")
	}

	svc := service.NewBookingService(db, bus, service.Options{
		NumberPrefix:      cfg.Numbering.Prefix,
		LookaheadDays:     cfg.Booking.LookaheadDays,
		MaxBookingsPerDay: cfg.Booking.MaxBookingsPerDay,
		Sequencer:         buildSequencer(cfg, redisClient, logger),
		Retry:             worker.RetryPolicy{MaxRetries: cfg.Booking.CreateRetries, InitialDelay: 20 * time.Millisecond, MaxDelay: time.Second},
	}, logging.Component(logger, "booking-service"))

	var trigger api.ActivityTrigger
	if cfg.Simulator.Enabled {
		sim := worker.NewActivitySimulator(svc, cfg.Simulator, logging.Component(logger, "simulator"))
		trigger = sim
		g.Go(func() error { return sim.Start(gctx) })
	}

	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
		g.Go(func() error { return backups.Start(gctx) })
	}

	if cfg.Monitoring.PrometheusEnabled {
		g.Go(func() error { return serveMetrics(gctx, cfg.Monitoring.PrometheusPort, logger) })
	}

	if cfg.API.Enabled && cfg.API.HTTP.Enabled {
		httpServer := api.NewHTTPServer(cfg.API, svc, trigger, logging.Component(logger, "http"))
		g.Go(httpServer.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	} else {
		logger.Warn().Msg("HTTP API is disabled in config")
	}

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("vitrina started")
	err = g.Wait()
	logger.Info().Msg("vitrina stopped")
	return err
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if err := db.SyncPerformers(ctx, cfg.Performers); err != nil {
		db.Close()
		return nil, fmt.Errorf("sync performers: %w", err)
	}
	logger.Info().Int("performers", len(cfg.Performers)).Msg("performers synced")
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		// FailoverSequencer copes with redis coming up later
		logger.Warn().Err(err).Msg("redis ping failed, numbering will fall back to memory until it recovers")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	return client
}

// buildSequencer returns nil for the database backend: the store's own
// counter table is used inside the creation transaction.
func buildSequencer(cfg *config.Config, client *redis.Client, logger *zerolog.Logger) domain.Sequencer {
	if cfg.Numbering.Backend != config.NumberingBackendRedis || client == nil {
		return nil
	}
	primary := repository.NewRedisSequencer(client, cfg.Numbering.RedisKeyPrefix, time.Duration(models.CounterTTLSeconds)*time.Second)
	return repository.NewFailoverSequencer(primary, repository.NewMemorySequencer(), logging.Component(logger, "sequencer"))
}

func serveMetrics(ctx context.Context, port int, logger *zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", port).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
