package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-channel-etl/internal/config"
	"github.com/ad-tracker/youtube-channel-etl/internal/db"
	"github.com/ad-tracker/youtube-channel-etl/internal/db/repository"
	"github.com/ad-tracker/youtube-channel-etl/internal/handler"
	"github.com/ad-tracker/youtube-channel-etl/internal/metrics"
	"github.com/ad-tracker/youtube-channel-etl/internal/pipeline"
	"github.com/ad-tracker/youtube-channel-etl/internal/service"
	"github.com/ad-tracker/youtube-channel-etl/internal/service/youtube"
	"github.com/ad-tracker/youtube-channel-etl/pkg/logger"
)

func main() {
	interval := flag.Duration("interval", 0, "Rerun the pipeline on this interval and serve health endpoints (0 runs once)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Log.Error("invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *interval); err != nil {
		fields := []zap.Field{zap.Error(err)}
		var se *pipeline.StageError
		if errors.As(err, &se) {
			fields = append(fields, zap.String("stage", se.Stage), zap.String("dataset", se.Dataset))
		}
		logger.Log.Error("etl run failed", fields...)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, interval time.Duration) error {
	log := logger.Log

	pool, err := db.NewPool(ctx, cfg.Database.DB())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close(pool)

	m := metrics.New()

	client, err := youtube.NewClient(ctx, youtube.Config{
		APIKey:         cfg.YouTube.APIKey,
		RequestTimeout: cfg.YouTube.RequestTimeout,
		Retry:          youtube.RetryConfig{MaxRetries: cfg.YouTube.MaxRetries},
		Metrics:        m,
		Logger:         logger.Named("youtube"),
	})
	if err != nil {
		return fmt.Errorf("failed to create youtube client: %w", err)
	}

	runnerCfg := pipeline.RunnerConfig{
		ChannelIDs: cfg.YouTube.ChannelIDs,
		Extractor: pipeline.NewOrchestrator(client, pipeline.OrchestratorOptions{
			PageSize:               cfg.YouTube.PageSize,
			ContinueOnChannelError: cfg.Pipeline.ContinueOnChannelError,
		}, logger.Named("extract")),
		Sink:    repository.NewDatasetRepository(pool),
		Metrics: m,
		Logger:  logger.Named("pipeline"),
	}

	var publisherHealth handler.PublisherHealth
	if cfg.RabbitMQ.Enabled {
		publisher, err := service.NewMessagePublisher(&cfg.RabbitMQ, logger.Named("publisher"))
		if err != nil {
			return fmt.Errorf("failed to create publisher: %w", err)
		}
		defer func() { _ = publisher.Close() }()

		runnerCfg.Publisher = publisher
		publisherHealth = publisher
	}

	runner := pipeline.NewRunner(runnerCfg)

	if interval <= 0 {
		_, err := runner.Run(ctx)
		return err
	}

	router := handler.NewRouter(handler.NewHealthHandler(pool, runner, publisherHealth), m.Handler(), logger.Named("http"))
	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("health server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
			_ = server.Close()
		}
		log.Info("etl daemon stopped gracefully")
	}()

	return schedule(ctx, runner, interval, serverErrors, log)
}

// schedule runs the pipeline immediately and then on every tick until ctx is
// done. Runs never overlap; a failed run is logged and the loop continues.
func schedule(ctx context.Context, runner *pipeline.Runner, interval time.Duration, serverErrors <-chan error, log *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("etl daemon starting", zap.Duration("interval", interval))
	runOnce(ctx, runner, log)

	for {
		select {
		case <-ticker.C:
			runOnce(ctx, runner, log)
		case err := <-serverErrors:
			return fmt.Errorf("health server error: %w", err)
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return nil
		}
	}
}

func runOnce(ctx context.Context, runner *pipeline.Runner, log *zap.Logger) {
	summary, err := runner.Run(ctx)
	if err == nil {
		return
	}

	fields := []zap.Field{zap.String("run_id", summary.RunID), zap.Error(err)}
	var se *pipeline.StageError
	if errors.As(err, &se) {
		fields = append(fields, zap.String("stage", se.Stage), zap.String("dataset", se.Dataset))
	}
	log.Error("scheduled run failed", fields...)
}
