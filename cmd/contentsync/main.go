package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mindhub/config"
	"mindhub/normalize"
	"mindhub/services"
	"mindhub/storage"
)

type syncFlags struct {
	dryRun  bool
	types   []string
	verbose bool
	root    string
	archive bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f syncFlags
	cmd := &cobra.Command{
		Use:   "contentsync",
		Short: "Spiegelt das JSON-Content-Repository in die Datenbank",
		Long: `contentsync liest treatments/, conditions/ und resources/ unterhalb von CONTENT_ROOT,
normalisiert die Dokumente und schreibt sie gebündelt in den Entity-Store.

Der Exit-Code ist 1, sobald auch nur ein Datensatz fehlgeschlagen ist.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, f)
		},
	}
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "nur einlesen und zählen, nichts schreiben")
	cmd.Flags().StringSliceVar(&f.types, "type", nil, "Content-Typen (treatments, conditions, resources)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Fehlerdetails und Debug-Logs ausgeben")
	cmd.Flags().StringVar(&f.root, "root", "", "Content-Root, überschreibt CONTENT_ROOT")
	cmd.Flags().BoolVar(&f.archive, "archive", false, "Report im S3-Archiv ablegen")

	cmd.AddCommand(newRotateCmd())
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runSync(cmd *cobra.Command, f syncFlags) error {
	logger, err := newLogger(f.verbose)
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load error: %w", err)
	}
	if f.root != "" {
		cfg.ContentRoot = f.root
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ein Dry-Run schreibt nie und braucht deshalb keine Datenbank.
	var store services.EntityUpserter
	if !f.dryRun {
		db, err := storage.Open(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := storage.Migrate(db); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
		store = storage.NewEntityStore(db)
	}

	synchronizer := services.NewSynchronizer(cfg, store, normalize.New(), logger)
	report, err := synchronizer.Run(ctx, services.SyncOptions{
		DryRun:  f.dryRun,
		Types:   splitTypes(f.types),
		Verbose: f.verbose,
	})
	if report == nil {
		return err
	}
	report.Print(cmd.OutOrStdout(), f.verbose)

	if f.archive && !f.dryRun {
		if aerr := archiveReport(ctx, cfg, logger, report); aerr != nil {
			logger.Warn("Sync report could not be archived", zap.Error(aerr))
		}
	}
	if err != nil {
		return err
	}
	if report.HasErrors() {
		return fmt.Errorf("%d records failed", report.Totals().Errors)
	}
	return nil
}

func archiveReport(ctx context.Context, cfg *config.Config, logger *zap.Logger, report *services.SyncReport) error {
	archive, err := newArchive(ctx, cfg, logger)
	if err != nil {
		return err
	}
	data, err := report.JSON()
	if err != nil {
		return err
	}
	key, err := archive.Store(ctx, data, report.StartedAt)
	if err != nil {
		return err
	}
	logger.Info("Sync report archived", zap.String("bucket", cfg.ReportS3Bucket), zap.String("key", key))
	return nil
}

func newArchive(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage.ReportArchive, error) {
	if !cfg.ArchiveEnabled() {
		return nil, fmt.Errorf("report archive not configured (REPORT_S3_URL, REPORT_S3_BUCKET)")
	}
	client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("s3 client creation failed: %w", err)
	}
	return storage.NewReportArchive(client, cfg.ReportS3Bucket, cfg.KeepReports, logger), nil
}

func newRotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-reports",
		Short: "Löscht archivierte Sync-Reports über KEEP_REPORTS hinaus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("can't initialize zap logger: %w", err)
			}
			defer logger.Sync()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config load error: %w", err)
			}
			archive, err := newArchive(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			deleted, err := archive.Rotate(cmd.Context())
			if err != nil {
				return fmt.Errorf("rotation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d alte Reports gelöscht\n", deleted)
			return nil
		},
	}
}

// splitTypes erlaubt sowohl --type a --type b als auch --type "a, b".
func splitTypes(in []string) []string {
	var out []string
	for _, v := range in {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(strings.ToLower(t)); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
