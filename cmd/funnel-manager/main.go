// cmd/funnel-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"opportunity-funnel/internal/archive"
	"opportunity-funnel/internal/common/config"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/common/notify"
	"opportunity-funnel/internal/common/observability"
	"opportunity-funnel/internal/funnel/classifier"
	"opportunity-funnel/internal/funnel/intelligence"
	"opportunity-funnel/internal/funnel/notes"
	"opportunity-funnel/internal/funnel/pipeline"
	"opportunity-funnel/internal/funnel/screening"
	"opportunity-funnel/internal/funnel/selection"
	"opportunity-funnel/internal/remote/analysisapi"
	"opportunity-funnel/internal/remote/opportunityapi"
	"opportunity-funnel/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting funnel manager...")

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Remote service clients ---
	opportunityClient := opportunityapi.NewClient(cfg.Services.Opportunity, log)
	analysisClient := analysisapi.NewClient(cfg.Services.Analysis, log)

	// --- Opportunity store + optional Redis snapshot cache ---
	opportunityStore := store.New()

	var snapshot pipeline.Snapshotter
	if cfg.Database.Redis.Address != "" {
		cache := store.NewSnapshotCache(cfg.Database.Redis, log)
		err = retryWithBackoff(func() error {
			return cache.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, snapshot cache disabled", zap.Error(err))
		} else {
			defer cache.Close()
			snapshot = cache
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Optional archive backends ---
	var ledger *archive.Ledger
	if cfg.Database.Postgres.Host != "" {
		err = retryWithBackoff(func() error {
			var err error
			ledger, err = archive.NewLedger(cfg.Database.Postgres, log)
			if err != nil {
				return err
			}
			return ledger.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer ledger.Close()
		zapLog.Info("PostgreSQL connected successfully")
	}

	var resultIndex *archive.ResultIndex
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		err = retryWithBackoff(func() error {
			var err error
			resultIndex, err = archive.NewResultIndex(cfg.Database.Elasticsearch, log)
			if err != nil {
				return err
			}
			return resultIndex.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Notifications ---
	notifier, err := notify.New(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notifier init failed", zap.Error(err))
	}

	// --- Funnel components ---
	funnelPipeline := pipeline.New(opportunityClient, opportunityStore, snapshot, log)
	categoryClassifier := classifier.NewService(opportunityStore, opportunityClient, cfg.Funnel, log)
	selectionGateway := selection.NewGateway(opportunityStore, opportunityClient, log)
	screeningOrchestrator := screening.NewOrchestrator(analysisClient, cfg.Funnel, log)
	intelligenceEngine := intelligence.NewEngine(
		cfg.TierCatalog(),
		analysisClient,
		opportunityStore,
		selectionGateway,
		archive.New(ledger, resultIndex),
		notifier,
		cfg.Funnel,
		log,
	)
	notesController := notes.NewController(opportunityClient, cfg.Notes, log)

	app := &App{
		Pipeline:     funnelPipeline,
		Classifier:   categoryClassifier,
		Selection:    selectionGateway,
		Screening:    screeningOrchestrator,
		Intelligence: intelligenceEngine,
		Notes:        notesController,
	}

	// --- Metrics and status endpoints ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		http.HandleFunc("/status", app.statusHandler(opportunityStore))
		addr := fmt.Sprintf(":%d", cfg.App.MetricsPort)
		zapLog.Info("metrics endpoint listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			zapLog.Error("metrics server failed", zap.Error(err))
		}
	}()

	zapLog.Info("Funnel manager ready",
		zap.String("environment", cfg.App.Environment),
		zap.Int("tiers", len(cfg.TierCatalog())),
	)

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	zapLog.Info("shutting down", zap.String("signal", sig.String()))
}
