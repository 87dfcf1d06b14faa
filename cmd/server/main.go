package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openprocure/tenderisk/internal/application"
	"github.com/openprocure/tenderisk/internal/config"
	"github.com/openprocure/tenderisk/internal/domain/models"
	domainservice "github.com/openprocure/tenderisk/internal/domain/service"
	"github.com/openprocure/tenderisk/internal/infrastructure/anomaly"
	"github.com/openprocure/tenderisk/internal/infrastructure/explain"
	"github.com/openprocure/tenderisk/internal/infrastructure/features"
	"github.com/openprocure/tenderisk/internal/infrastructure/monitoring"
	"github.com/openprocure/tenderisk/internal/infrastructure/rules"
	"github.com/openprocure/tenderisk/internal/infrastructure/schema"
	"github.com/openprocure/tenderisk/internal/infrastructure/workingset"
	"github.com/openprocure/tenderisk/internal/interfaces/http/handlers"
	"github.com/openprocure/tenderisk/internal/interfaces/http/router"
	"github.com/openprocure/tenderisk/pkg/logger"
)

var version = "dev"

func main() {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := monitoring.NewMetrics()

	bundles := anomaly.NewBundleProvider(ctx, cfg.Model.BundlePath, appLogger)
	if cfg.Model.WatchBundle && cfg.Model.BundlePath != "" {
		go func() {
			if err := bundles.Watch(ctx); err != nil {
				appLogger.Error(ctx, "bundle watcher stopped", err)
			}
		}()
	}

	defaults := models.DefaultThresholds()
	defaults.HighRiskCutoff = cfg.Scoring.HighRiskCutoff

	store := workingset.NewStore(cfg.Scoring.Retention(), appLogger)
	svc := application.NewAnalysisService(
		schema.NewResolver(appLogger),
		features.NewEngine(appLogger, features.WithOversightThresholds(cfg.Scoring.OversightThresholds)),
		rules.NewScorer(),
		anomaly.NewEnsemble(bundles, appLogger),
		domainservice.NewReconciler(appLogger),
		store,
		explain.NewClient(&cfg.Explain, appLogger),
		metrics,
		defaults,
		appLogger,
	)

	analysisHandler := handlers.NewAnalysisHandler(svc, cfg.Server.MaxUploadBytes, appLogger)
	healthHandler := handlers.NewHealthHandler(store, bundles, version)

	r := router.NewRouter(cfg, appLogger, analysisHandler, healthHandler)

	errCh := make(chan error, 1)
	go func() { errCh <- r.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Fatal(ctx, "http server failed", err)
		}
	case sig := <-quit:
		appLogger.Info(ctx, "shutting down", logger.String("signal", sig.String()))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := r.Stop(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "forced shutdown", err)
		}
	}
}
