package pipeline

import (
	"time"

	"github.com/hdx-scrapers/icpac-cdi/internal/cdi"
)

// RunReport summarises one ingest run.
type RunReport struct {
	BatchID    string           `json:"batchId"`
	StartedAt  time.Time        `json:"startedAt"` // always UTC
	FinishedAt time.Time        `json:"finishedAt"`
	Years      []int            `json:"years"`
	DryRun     bool             `json:"dryRun"`
	Datasets   []DatasetSummary `json:"datasets"`
	Skipped    []SkippedItem    `json:"skipped,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Dataset returns the summary called name.
func (r RunReport) Dataset(name string) (DatasetSummary, bool) {
	for _, d := range r.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return DatasetSummary{}, false
}

// DatasetSummary describes one assembled dataset.
type DatasetSummary struct {
	Name         string         `json:"name"`
	Title        string         `json:"title"`
	TimePeriod   cdi.TimePeriod `json:"timePeriod"`
	Resources    []cdi.Resource `json:"resources"`
	Published    bool           `json:"published"`
	PublishError string         `json:"publishError,omitempty"`
}

// SkippedItem is a listing or file that discovery could not use.
type SkippedItem struct {
	Dataset  string `json:"dataset"`
	Filename string `json:"filename,omitempty"`
	Reason   string `json:"reason"`
}
