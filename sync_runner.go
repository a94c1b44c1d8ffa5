package main

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"mindhub/services"
	"mindhub/storage"
)

var errSyncRunning = errors.New("content sync already running")

// syncRunner verhindert parallele Sync-Läufe und merkt sich den letzten Report.
type syncRunner struct {
	synchronizer *services.Synchronizer
	archive      *storage.ReportArchive
	logger       *zap.Logger

	running atomic.Bool
	mu      sync.Mutex
	last    *services.SyncReport
}

func newSyncRunner(s *services.Synchronizer, archive *storage.ReportArchive, logger *zap.Logger) *syncRunner {
	return &syncRunner{synchronizer: s, archive: archive, logger: logger}
}

// Run führt einen Sync synchron aus.
func (r *syncRunner) Run(ctx context.Context, opts services.SyncOptions) (*services.SyncReport, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, errSyncRunning
	}
	defer r.running.Store(false)
	return r.run(ctx, opts)
}

// Start startet einen Sync im Hintergrund.
func (r *syncRunner) Start(opts services.SyncOptions) error {
	if !r.running.CompareAndSwap(false, true) {
		return errSyncRunning
	}
	go func() {
		defer r.running.Store(false)
		if _, err := r.run(context.Background(), opts); err != nil {
			r.logger.Error("Async content sync failed", zap.Error(err))
		}
	}()
	return nil
}

func (r *syncRunner) run(ctx context.Context, opts services.SyncOptions) (*services.SyncReport, error) {
	report, err := r.synchronizer.Run(ctx, opts)
	if report == nil {
		syncRunsCounter.WithLabelValues("failed").Inc()
		return nil, err
	}

	r.mu.Lock()
	r.last = report
	r.mu.Unlock()

	result := "ok"
	if report.HasErrors() {
		result = "with_errors"
	}
	syncRunsCounter.WithLabelValues(result).Inc()

	if r.archive != nil && !report.DryRun {
		if data, jerr := report.JSON(); jerr == nil {
			if _, aerr := r.archive.Store(ctx, data, report.StartedAt); aerr != nil {
				r.logger.Warn("Sync report could not be archived", zap.Error(aerr))
			}
		}
	}
	return report, err
}

func (r *syncRunner) Running() bool { return r.running.Load() }

func (r *syncRunner) Last() *services.SyncReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
