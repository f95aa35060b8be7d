package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"` // json | console
	Revision        string        `env:"K_REVISION"`                   // set by Cloud Run

	DatabaseURL      string        `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	StatementTimeout time.Duration `env:"STATEMENT_TIMEOUT" envDefault:"5s"`
	AutoMigrate      bool          `env:"AUTO_MIGRATE" envDefault:"false"`

	AuthProvider      string `env:"AUTH_PROVIDER" envDefault:"firebase"` // firebase | dev
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	DisplayTimezone string   `env:"DISPLAY_TIMEZONE" envDefault:"Europe/Moscow"`
	EventURLBase    string   `env:"EVENT_URL_BASE" envDefault:"/calendar/events"`
	ICSUIDDomain    string   `env:"ICS_UID_DOMAIN" envDefault:"photohub.app"`
	QueryWindowDays int      `env:"QUERY_WINDOW_DAYS" envDefault:"30"`
	MediaBucket     string   `env:"MEDIA_BUCKET" envDefault:"photohub-media"`
	StorageBackend  string   `env:"STORAGE_BACKEND" envDefault:"local"` // gcs | local
	StorageLocalDir string   `env:"STORAGE_LOCAL_DIR" envDefault:"./.data/storage"`
	CORSOrigins     []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"40"`
	TenantCacheTTL time.Duration `env:"TENANT_CACHE_TTL" envDefault:"1m"`
}

// loadConfig reads an optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func loadConfig(envFiles ...string) (config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		_ = godotenv.Load(file)
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, err
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	switch c.AuthProvider {
	case "firebase", "dev":
	default:
		return fmt.Errorf("unsupported AUTH_PROVIDER %q (use firebase or dev)", c.AuthProvider)
	}
	switch c.StorageBackend {
	case "gcs", "local":
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q (use gcs or local)", c.StorageBackend)
	}
	if c.StorageBackend == "local" && strings.TrimSpace(c.StorageLocalDir) == "" {
		return fmt.Errorf("STORAGE_LOCAL_DIR is required when STORAGE_BACKEND=local")
	}
	if c.QueryWindowDays <= 0 {
		return fmt.Errorf("QUERY_WINDOW_DAYS must be positive")
	}
	if strings.TrimSpace(c.MediaBucket) == "" {
		return fmt.Errorf("MEDIA_BUCKET is required")
	}
	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE: %w", err)
	}
	return nil
}

func (c config) location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c config) queryWindow() time.Duration {
	return time.Duration(c.QueryWindowDays) * 24 * time.Hour
}
