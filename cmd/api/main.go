package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spacesedan/complaintflow/config"
	"github.com/spacesedan/complaintflow/internal/analyzer"
	"github.com/spacesedan/complaintflow/internal/classifier"
	"github.com/spacesedan/complaintflow/internal/clients"
	"github.com/spacesedan/complaintflow/internal/clients/kafka_client"
	"github.com/spacesedan/complaintflow/internal/handlers"
	"github.com/spacesedan/complaintflow/internal/logging"
	"github.com/spacesedan/complaintflow/internal/monitoring"
	"github.com/spacesedan/complaintflow/internal/sentiment"
)

const shutdownTimeout = 10 * time.Second

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("[API] Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("[API] Exiting", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	loc, err := time.LoadLocation(cfg.HTTP.DisplayTimezone)
	if err != nil {
		slog.Warn("[API] Unknown display timezone, using UTC",
			slog.String("timezone", cfg.HTTP.DisplayTimezone))
		loc = time.UTC
	}

	metrics := monitoring.NewTriageMetrics(prometheus.DefaultRegisterer)

	repo, closeStore, err := openRepository(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	hf := clients.NewHuggingFaceClient(cfg.HuggingFace)
	hf.Observer = metrics

	var oracle clients.Oracle = hf
	if cfg.Valkey.InitAddress != "" {
		vc, err := clients.NewValkeyClient(ctx, cfg.Valkey)
		if err != nil {
			slog.Warn("[API] Valkey unavailable, oracle responses will not be cached",
				slog.String("error", err.Error()))
		} else {
			defer vc.Close()
			oracle = clients.NewCachedOracle(hf, clients.NewValkeyCache(vc), cfg.Valkey.TTL)
		}
	}

	var publisher kafka_client.Publisher = kafka_client.NoopPublisher{}
	if cfg.Kafka.Broker != "" {
		kp, err := kafka_client.NewKafkaPublisher(kafka_client.FromConfig(cfg.Kafka))
		if err != nil {
			return err
		}
		publisher = kp
	}
	defer publisher.Close()

	a := analyzer.New(
		classifier.New(oracle, cfg.HuggingFace.ClassificationModel, cfg.Analysis.ClassificationThreshold, metrics),
		sentiment.NewDetector(oracle, cfg.HuggingFace.SentimentModel, cfg.Analysis.SentimentThreshold, metrics),
		analyzer.Options{
			MinLength:      cfg.Analysis.MinLength,
			DefaultContact: cfg.Analysis.DefaultContact,
			Metrics:        metrics,
		},
	)

	var wg sync.WaitGroup
	healthy := &atomic.Bool{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		monitoring.MonitorOracleHealth(ctx, func(ctx context.Context) bool {
			return hf.HealthCheck(ctx, cfg.HuggingFace.ClassificationModel)
		}, healthy, cfg.Monitoring.HealthCheckInterval)
	}()

	h := handlers.NewHandler(a, repo, publisher, handlers.Options{
		Location:        loc,
		AnalysisTimeout: cfg.Analysis.RequestTimeout,
		OracleHealthy:   healthy,
		Metrics:         metrics,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handlers.NewRouter(h, cfg.HTTP.AllowedOrigins, promhttp.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("[API] Listening",
			slog.String("addr", cfg.HTTP.Addr),
			slog.String("store", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		slog.Info("[API] Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("[API] Graceful shutdown failed", slog.String("error", err.Error()))
	}

	wg.Wait()
	slog.Info("[API] Stopped")
	return nil
}
