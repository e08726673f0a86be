package store

import (
	"errors"
	"sync"
	"time"

	"github.com/hdx-scrapers/icpac-cdi/internal/pipeline"
)

var (
	// ErrNotFound is returned when no run report matches.
	ErrNotFound = errors.New("no run reports")
)

// MemoryStore is a concurrency-safe in-memory history of run reports.
type MemoryStore struct {
	mu sync.RWMutex

	// ordered by StartedAt ascending
	runs []pipeline.RunReport

	// retention configuration
	maxHistory int           // max number of reports kept
	maxAge     time.Duration // optional max age for reports

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveRun appends a report and enforces retention.
func (s *MemoryStore) SaveRun(report pipeline.RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, report)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.runs) > s.maxHistory {
		over := len(s.runs) - s.maxHistory
		s.runs = s.runs[over:]
	}

	// Enforce retention by age; the newest report is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.runs)-1; i++ {
			if !s.runs[i].StartedAt.Before(cutoff) {
				break
			}
		}
		s.runs = s.runs[i:]
	}
}

// GetLatest returns the most recent report.
func (s *MemoryStore) GetLatest() (pipeline.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return pipeline.RunReport{}, ErrNotFound
	}
	return s.runs[len(s.runs)-1], nil
}

// GetRange returns all reports started between from and to (inclusive).
func (s *MemoryStore) GetRange(from, to time.Time) ([]pipeline.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []pipeline.RunReport
	for _, r := range s.runs {
		if !r.StartedAt.Before(from) && !r.StartedAt.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
