package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"k8s.io/klog/v2"

	"github.com/hdx-scrapers/icpac-cdi/internal/pipeline"
)

// Runner performs one ingest run.
type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (pipeline.RunReport, error)
}

// Scheduler periodically runs the ingest.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	interval  time.Duration
	timeout   time.Duration

	// guards against overlapping runs
	mu      sync.Mutex
	running bool
}

// New creates a new Scheduler. Each run is bounded by timeout when it is positive.
func New(interval, timeout time.Duration, runner Runner) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the periodic job, runs it once immediately and starts the
// underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 24 * 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// runOnce runs the ingest unless a previous run is still going.
func (s *Scheduler) runOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		klog.Info("scheduler: previous run still in progress; skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	klog.Info("scheduler: running ingest job")
	report, err := s.runner.Run(ctx, pipeline.RunOptions{})
	if err != nil {
		klog.ErrorS(err, "scheduler: run failed", "batch", report.BatchID)
		return
	}
	klog.InfoS("scheduler: completed ingest job", "batch", report.BatchID, "datasets", len(report.Datasets))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
