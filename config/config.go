package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"mindhub"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	AppEnv       string `envconfig:"APP_ENV" default:"development"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Content-Repository (JSON-Dokumente auf der Platte)
	ContentRoot     string `envconfig:"CONTENT_ROOT" default:"./data"`
	KnowledgeHubDir string `envconfig:"KNOWLEDGE_HUB_DIR" default:"resources/knowledge-hub"`
	WatchContent    bool   `envconfig:"WATCH_CONTENT" default:"true"`

	// Provider-Suche
	SearchTimeout   time.Duration `envconfig:"SEARCH_TIMEOUT" default:"15s"`
	SearchCacheTTL  time.Duration `envconfig:"SEARCH_CACHE_TTL" default:"5m"`
	SearchRateLimit float64       `envconfig:"SEARCH_RATE_LIMIT" default:"5"`
	SearchRateBurst int           `envconfig:"SEARCH_RATE_BURST" default:"10"`

	// Content-Sync
	SyncBatchSize    int    `envconfig:"SYNC_BATCH_SIZE" default:"50"`
	SyncConcurrency  int    `envconfig:"SYNC_CONCURRENCY" default:"5"`
	SyncCronSchedule string `envconfig:"SYNC_CRON_SCHEDULE"`

	// Archiv für Sync-Reports (optional, leer = deaktiviert)
	ReportS3URL    string `envconfig:"REPORT_S3_URL"`
	ReportS3Key    string `envconfig:"REPORT_S3_KEY"`
	ReportS3Secret string `envconfig:"REPORT_S3_SECRET"`
	ReportS3Region string `envconfig:"REPORT_S3_REGION" default:"us-east-1"`
	ReportS3Bucket string `envconfig:"REPORT_S3_BUCKET"`
	KeepReports    int    `envconfig:"KEEP_REPORTS" default:"10"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// IsProduction meldet, ob interne Fehlerdetails aus Antworten entfernt werden müssen.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ArchiveEnabled ist true, wenn ein Bucket für Sync-Reports konfiguriert ist.
func (c *Config) ArchiveEnabled() bool {
	return c.ReportS3Bucket != "" && c.ReportS3URL != ""
}

// ContentDir liefert den Pfad eines Top-Level-Content-Typs (z.B. "resources").
func (c *Config) ContentDir(kind string) string {
	return filepath.Join(c.ContentRoot, kind)
}

// KnowledgeHubPath liefert den Pfad des priorisierten Knowledge-Hub-Verzeichnisses.
func (c *Config) KnowledgeHubPath() string {
	if filepath.IsAbs(c.KnowledgeHubDir) {
		return c.KnowledgeHubDir
	}
	return filepath.Join(c.ContentRoot, c.KnowledgeHubDir)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
