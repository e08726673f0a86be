// Package download fetches listings and raster files over HTTP and keeps
// optional local copies of everything it fetched.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sony/gobreaker"

	"github.com/hdx-scrapers/icpac-cdi/internal/resilience"
)

// Downloader performs resilient GET requests.
type Downloader struct {
	httpCfg resilience.Config
	circuit *gobreaker.CircuitBreaker
}

// NewDownloader creates a Downloader. A zero Backoff falls back to resilience.DefaultBackoff.
func NewDownloader(cfg resilience.Config) *Downloader {
	if cfg.Backoff == (resilience.BackoffConfig{}) {
		cfg.Backoff = resilience.DefaultBackoff
	}
	return &Downloader{
		httpCfg: cfg,
		circuit: resilience.NewCircuitBreaker("downloader"),
	}
}

func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	return resilience.Do(ctx, d.httpCfg, d.circuit, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	})
}

// FetchText returns the body of url as a string.
func (d *Downloader) FetchText(ctx context.Context, url string) (string, error) {
	resp, err := d.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body of %s: %w", url, err)
	}
	return string(body), nil
}

// FetchFile streams url into path, creating parent directories. A partial
// file is removed on failure.
func (d *Downloader) FetchFile(ctx context.Context, url, path string) error {
	resp, err := d.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".part-*")
	if err != nil {
		return fmt.Errorf("create file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move %s into place: %w", path, err)
	}
	return nil
}
