package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HDX_SITE_URL", "HTTP_TIMEOUT", "UPLOAD_TIMEOUT", "RUN_INTERVAL", "STORE_MAX_HISTORY", "STORE_MAX_AGE", "ARCHIVE_S3_BUCKET"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://data.humdata.org", cfg.HDXSiteURL)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 30*time.Minute, cfg.UploadTimeout)
	assert.Equal(t, 24*time.Hour, cfg.RunInterval)
	assert.Equal(t, 30, cfg.StoreMaxHistory)
	assert.Empty(t, cfg.ArchiveBucket)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RUN_INTERVAL", "6h")
	t.Setenv("STORE_MAX_HISTORY", "5")
	t.Setenv("ARCHIVE_S3_BUCKET", "cdi-archive")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, cfg.RunInterval)
	assert.Equal(t, 5, cfg.StoreMaxHistory)
	assert.Equal(t, "cdi-archive", cfg.ArchiveBucket)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadInvalidUploadTimeout(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "")
	t.Setenv("UPLOAD_TIMEOUT", "later")
	_, err := Load()
	assert.ErrorContains(t, err, "UPLOAD_TIMEOUT")
}
