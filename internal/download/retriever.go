package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"
)

// ErrNotSaved is returned in use-saved mode when no saved copy exists.
var ErrNotSaved = errors.New("no saved copy")

// Mirror receives a copy of every file fetched from the network.
type Mirror interface {
	Mirror(ctx context.Context, localPath, sourceURL string) error
}

// RetrieverConfig controls where fetched artifacts land.
type RetrieverConfig struct {
	// TempDir receives downloads unless Save is set.
	TempDir string
	// SavedDir holds saved copies, written with Save and read with UseSaved.
	SavedDir string
	Save     bool
	UseSaved bool
}

// Retriever fetches listings and files by name, either from the network or
// from previously saved copies.
type Retriever struct {
	downloader *Downloader
	cfg        RetrieverConfig
	mirror     Mirror
}

// NewRetriever creates a Retriever. mirror may be nil.
func NewRetriever(downloader *Downloader, cfg RetrieverConfig, mirror Mirror) *Retriever {
	return &Retriever{downloader: downloader, cfg: cfg, mirror: mirror}
}

// FetchText returns the text at url. name is the saved-copy filename.
func (r *Retriever) FetchText(ctx context.Context, url, name string) (string, error) {
	saved := filepath.Join(r.cfg.SavedDir, name)
	if r.cfg.UseSaved {
		b, err := os.ReadFile(saved)
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotSaved, saved)
		}
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	text, err := r.downloader.FetchText(ctx, url)
	if err != nil {
		return "", err
	}

	if r.cfg.Save {
		if err := writeFile(saved, []byte(text)); err != nil {
			return "", err
		}
	}
	return text, nil
}

// FetchFile downloads url and returns the local path, whose base name is name.
func (r *Retriever) FetchFile(ctx context.Context, url, name string) (string, error) {
	if r.cfg.UseSaved {
		saved := filepath.Join(r.cfg.SavedDir, name)
		if _, err := os.Stat(saved); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", ErrNotSaved, saved)
			}
			return "", err
		}
		return saved, nil
	}

	dir := r.cfg.TempDir
	if r.cfg.Save {
		dir = r.cfg.SavedDir
	}
	path := filepath.Join(dir, name)

	if err := r.downloader.FetchFile(ctx, url, path); err != nil {
		return "", err
	}

	if r.mirror != nil {
		// A failed mirror copy does not make the download fail.
		if err := r.mirror.Mirror(ctx, path, url); err != nil {
			klog.FromContext(ctx).Error(err, "could not mirror file", "file", name)
		}
	}
	return path, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
