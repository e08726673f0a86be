// Package pipeline runs one ingest: read the catalog, discover new rasters,
// assemble datasets and publish them.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/hdx-scrapers/icpac-cdi/internal/cdi"
	"github.com/hdx-scrapers/icpac-cdi/internal/hdx"
)

// UpdatedByScript identifies this scraper on every catalog write.
const UpdatedByScript = "HDX Scraper: icpac_cdi"

// Catalog is what a run needs from the data catalog.
type Catalog interface {
	cdi.CatalogReader
	CheckWriteAccess(ctx context.Context, organization string) error
	Publish(ctx context.Context, ds cdi.Dataset, opts hdx.PublishOptions) error
}

// Store records finished runs.
type Store interface {
	SaveRun(report RunReport)
}

// Options configures a Service.
type Options struct {
	Settings     cdi.Settings
	Static       map[string]any
	Organization string
}

// RunOptions configures a single run.
type RunOptions struct {
	// Years overrides the default year window.
	Years []int
	// DryRun assembles datasets without touching the catalog write API.
	DryRun bool
}

// Service orchestrates a run over the fetcher, catalog and store.
type Service struct {
	opts    Options
	fetcher cdi.Fetcher
	catalog Catalog
	store   Store
	now     func() time.Time
}

// NewService creates a new Service. store may be nil.
func NewService(opts Options, fetcher cdi.Fetcher, catalog Catalog, store Store) *Service {
	return &Service{
		opts:    opts,
		fetcher: fetcher,
		catalog: catalog,
		store:   store,
		now:     time.Now,
	}
}

// Run performs one ingest. Failures of single listings, files or datasets are
// recorded in the report; a failed access check, catalog read or cancellation
// ends the run with an error.
func (s *Service) Run(ctx context.Context, ro RunOptions) (RunReport, error) {
	report := RunReport{
		BatchID:   uuid.NewString(),
		StartedAt: s.now().UTC(),
		DryRun:    ro.DryRun,
		Years:     ro.Years,
	}
	if len(report.Years) == 0 {
		report.Years = cdi.Years(report.StartedAt)
	}

	log := klog.FromContext(ctx).WithValues("batch", report.BatchID)
	ctx = klog.NewContext(ctx, log)
	log.Info("starting run", "years", report.Years, "dryRun", ro.DryRun)

	err := s.run(ctx, ro, &report)
	report.FinishedAt = s.now().UTC()
	if err != nil {
		report.Error = err.Error()
		log.Error(err, "run failed")
	} else {
		log.Info("run finished", "datasets", len(report.Datasets), "skipped", len(report.Skipped))
	}

	if s.store != nil {
		s.store.SaveRun(report)
	}
	return report, err
}

func (s *Service) run(ctx context.Context, ro RunOptions, report *RunReport) error {
	log := klog.FromContext(ctx)
	kinds := s.opts.Settings.Kinds()

	if !ro.DryRun {
		if err := s.catalog.CheckWriteAccess(ctx, s.opts.Organization); err != nil {
			return fmt.Errorf("check write access: %w", err)
		}
	}

	snap, err := cdi.NewSnapshotReader(s.catalog).Read(ctx, kinds, report.Years)
	if err != nil {
		return err
	}

	discovery, err := cdi.NewEngine(s.opts.Settings, s.fetcher).Discover(ctx, kinds, report.Years, snap)
	if discovery != nil {
		for _, o := range discovery.Skipped() {
			report.Skipped = append(report.Skipped, SkippedItem{
				Dataset:  o.Key.Name(),
				Filename: o.Filename,
				Reason:   o.Err.Error(),
			})
		}
	}
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	assembler := cdi.NewAssembler(s.opts.Settings)
	for _, key := range discovery.Keys() {
		ds, err := assembler.Assemble(discovery, key)
		if err != nil {
			// Keys come from the discovery itself.
			return err
		}

		summary := DatasetSummary{
			Name:       ds.Name,
			Title:      ds.Title,
			TimePeriod: ds.TimePeriod,
			Resources:  ds.Resources,
		}

		if !ro.DryRun {
			err := s.catalog.Publish(ctx, ds, hdx.PublishOptions{
				BatchID:         report.BatchID,
				UpdatedByScript: UpdatedByScript,
				Static:          s.opts.Static,
			})
			if err != nil {
				log.Error(err, "could not publish dataset", "dataset", ds.Name)
				summary.PublishError = err.Error()
			} else {
				summary.Published = true
			}
		}

		report.Datasets = append(report.Datasets, summary)
	}

	return nil
}
