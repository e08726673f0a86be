package main

import (
	"context"
	"fmt"
	"net/http"

	"k8s.io/klog/v2"

	"github.com/hdx-scrapers/icpac-cdi/internal/archive"
	"github.com/hdx-scrapers/icpac-cdi/internal/config"
	"github.com/hdx-scrapers/icpac-cdi/internal/download"
	"github.com/hdx-scrapers/icpac-cdi/internal/hdx"
	"github.com/hdx-scrapers/icpac-cdi/internal/pipeline"
	"github.com/hdx-scrapers/icpac-cdi/internal/resilience"
)

// newService builds a pipeline.Service from configuration. store may be nil.
func newService(ctx context.Context, cfg *config.AppConfig, rc download.RetrieverConfig, store pipeline.Store) (*pipeline.Service, error) {
	project, err := config.LoadProject(cfg.ProjectConfigPath)
	if err != nil {
		return nil, err
	}
	static, err := config.LoadStatic(cfg.StaticConfigPath)
	if err != nil {
		return nil, err
	}

	// Shared HTTP client for outbound listing and raster calls.
	downloader := download.NewDownloader(resilience.Config{
		Client:    &http.Client{Timeout: cfg.HTTPTimeout},
		UserAgent: cfg.UserAgent,
	})

	var mirror download.Mirror
	if cfg.ArchiveBucket != "" {
		m, err := archive.New(ctx, cfg.AWSRegion, cfg.ArchiveBucket, cfg.ArchivePrefix)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		klog.InfoS("archiving rasters", "bucket", cfg.ArchiveBucket, "prefix", cfg.ArchivePrefix)
		mirror = m
	}

	rc.TempDir = cfg.TempDir
	rc.SavedDir = cfg.SavedDataDir
	retriever := download.NewRetriever(downloader, rc, mirror)

	catalog := hdx.NewClient(hdx.Config{
		SiteURL:       cfg.HDXSiteURL,
		APIKey:        cfg.HDXAPIKey,
		UserAgent:     cfg.UserAgent,
		Timeout:       cfg.HTTPTimeout,
		UploadTimeout: cfg.UploadTimeout,
	})

	return pipeline.NewService(pipeline.Options{
		Settings:     project.Settings(),
		Static:       static,
		Organization: cfg.HDXOrganization,
	}, retriever, catalog, store), nil
}
