package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"k8s.io/klog/v2"
)

type AppConfig struct {
	HDXSiteURL      string
	HDXAPIKey       string
	HDXOrganization string
	UserAgent       string

	HTTPTimeout time.Duration
	// UploadTimeout bounds each resource upload to HDX.
	UploadTimeout time.Duration

	// TempDir receives downloads; SavedDataDir holds --save/--use-saved copies.
	TempDir      string
	SavedDataDir string

	// RunInterval controls how often serve mode runs the ingest.
	RunInterval time.Duration

	// In-memory run history retention.
	StoreMaxHistory int           // max number of run reports (0 = unlimited)
	StoreMaxAge     time.Duration // max age of run reports (0 = unlimited)

	Port string

	// Raster archive; empty bucket disables it.
	ArchiveBucket string
	ArchivePrefix string
	AWSRegion     string

	// Empty paths use the embedded defaults.
	ProjectConfigPath string
	StaticConfigPath  string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		klog.V(1).InfoS("no .env file loaded", "err", err)
	}
	cfg := &AppConfig{}

	cfg.HDXSiteURL = getenvDefault("HDX_SITE_URL", "https://data.humdata.org")
	cfg.HDXAPIKey = os.Getenv("HDX_API_KEY")
	cfg.HDXOrganization = getenvDefault("HDX_ORGANIZATION", "igad-climate-prediction-and-application-center")
	cfg.UserAgent = getenvDefault("USER_AGENT", "hdx-scraper-icpac-cdi")

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	uploadTimeout, err := time.ParseDuration(getenvDefault("UPLOAD_TIMEOUT", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_TIMEOUT: %w", err)
	}
	cfg.UploadTimeout = uploadTimeout

	cfg.TempDir = getenvDefault("TEMP_DIR", os.TempDir())
	cfg.SavedDataDir = getenvDefault("SAVED_DATA_DIR", "saved_data")

	interval, err := time.ParseDuration(getenvDefault("RUN_INTERVAL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_INTERVAL: %w", err)
	}
	cfg.RunInterval = interval

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 30)

	maxAge, err := time.ParseDuration(getenvDefault("STORE_MAX_AGE", "720h"))
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_MAX_AGE: %w", err)
	}
	cfg.StoreMaxAge = maxAge
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.ArchiveBucket = os.Getenv("ARCHIVE_S3_BUCKET")
	cfg.ArchivePrefix = getenvDefault("ARCHIVE_S3_PREFIX", "icpac-cdi")
	cfg.AWSRegion = getenvDefault("AWS_REGION", "us-east-1")

	cfg.ProjectConfigPath = os.Getenv("PROJECT_CONFIG")
	cfg.StaticConfigPath = os.Getenv("DATASET_STATIC_CONFIG")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
