package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"mindhub/config"
	"mindhub/content"
	"mindhub/normalize"
	"mindhub/services"
	"mindhub/storage"
)

var syncRunsCounter *prometheus.CounterVec

func init() {
	syncRunsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_sync_runs_total",
			Help: "Total number of content sync runs by result.",
		},
		[]string{"result"},
	)
	prometheus.MustRegister(syncRunsCounter)
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg)
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Running database auto-migration...")
	if err := storage.Migrate(db); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}
	entityStore := storage.NewEntityStore(db)
	providerStore := storage.NewProviderStore(db)

	// Content-Repository
	resourceCatalog := content.NewCatalog(cfg.ContentDir("resources"), logging)
	treatmentCatalog := content.NewCatalog(cfg.ContentDir("treatments"), logging)
	conditionCatalog := content.NewCatalog(cfg.ContentDir("conditions"), logging)
	logging.Info("Content categories discovered",
		zap.Strings("resources", resourceCatalog.Categories()),
		zap.Strings("treatments", treatmentCatalog.Categories()),
		zap.Strings("conditions", conditionCatalog.Categories()))

	normalizer := normalize.New()
	synchronizer := services.NewSynchronizer(cfg, entityStore, normalizer, logging)

	var archive *storage.ReportArchive
	if cfg.ArchiveEnabled() {
		s3Client, err := storage.NewS3Client(ctx, cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		archive = storage.NewReportArchive(s3Client, cfg.ReportS3Bucket, cfg.KeepReports, logging)
	}
	runner := newSyncRunner(synchronizer, archive, logging)

	router := newRouter(routerDeps{
		cfg:        cfg,
		resources:  content.NewLoader(resourceCatalog, logging, cfg.KnowledgeHubPath()),
		treatments: content.NewLoader(treatmentCatalog, logging),
		conditions: content.NewLoader(conditionCatalog, logging),
		normalizer: normalizer,
		search:     services.NewProviderSearch(providerStore, cfg, logging),
		limiter:    newIPRateLimiter(cfg.SearchRateLimit, cfg.SearchRateBurst),
		entities:   entityStore,
		runner:     runner,
		log:        logging,
	})

	if cfg.SyncCronSchedule != "" {
		cronScheduler := cron.New()
		_, err := cronScheduler.AddFunc(cfg.SyncCronSchedule, func() {
			logging.Info("Running scheduled content sync...")
			report, err := runner.Run(ctx, services.SyncOptions{})
			if err != nil {
				logging.Error("Scheduled content sync failed", zap.Error(err))
				return
			}
			logging.Info("Scheduled content sync completed",
				zap.Int("synced", report.Totals().Synced), zap.Int("errors", report.Totals().Errors))
		})
		if err != nil {
			logging.Fatal("Invalid SYNC_CRON_SCHEDULE", zap.String("schedule", cfg.SyncCronSchedule), zap.Error(err))
		}
		cronScheduler.Start()
		defer cronScheduler.Stop()
	}

	if cfg.WatchContent {
		go func() {
			err := content.Watch(ctx, logging, resourceCatalog, treatmentCatalog, conditionCatalog)
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.Warn("Content watcher stopped", zap.Error(err))
			}
		}()
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Server shutdown failed", zap.Error(err))
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}
