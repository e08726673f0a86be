package cdi

import (
	"fmt"
	"sort"
	"time"
)

// Region prefixes every dataset name published by this scraper.
const Region = "igad-region"

// RasterExtension is the suffix a listing entry needs to be considered a raster file.
const RasterExtension = ".tif"

// ResourceFormat is the catalog format tag given to every raster resource.
const ResourceFormat = "GeoTIFF"

// PeriodKind is the granularity of a published dataset series.
type PeriodKind string

const (
	Dekadal PeriodKind = "dekadal"
	Monthly PeriodKind = "monthly"
)

// Valid reports whether k is one of the known period kinds.
func (k PeriodKind) Valid() bool {
	return k == Dekadal || k == Monthly
}

// PeriodConfig is the per-kind configuration record.
type PeriodConfig struct {
	// URL is the listing location; "{year}" is replaced by the year.
	URL             string `yaml:"url" json:"url" validate:"required,startswith=http,contains={year}"`
	Title           string `yaml:"title" json:"title" validate:"required"`
	Notes           string `yaml:"notes" json:"notes" validate:"required"`
	UpdateFrequency string `yaml:"update_frequency" json:"updateFrequency" validate:"required"`
	// Description is the resource description; "[date]" is replaced by the date token.
	Description string `yaml:"description" json:"description" validate:"required"`
}

// Period binds a kind to its configuration.
type Period struct {
	Kind PeriodKind
	PeriodConfig
}

// Settings is the immutable configuration shared by every dataset of a run.
type Settings struct {
	// Periods are kept in configured order; discovery iterates them in this order.
	Periods   []Period
	Tags      []string
	Countries []string
}

// Period returns the configuration for kind.
func (s Settings) Period(kind PeriodKind) (Period, bool) {
	for _, p := range s.Periods {
		if p.Kind == kind {
			return p, true
		}
	}
	return Period{}, false
}

// Kinds returns the configured period kinds in order.
func (s Settings) Kinds() []PeriodKind {
	kinds := make([]PeriodKind, 0, len(s.Periods))
	for _, p := range s.Periods {
		kinds = append(kinds, p.Kind)
	}
	return kinds
}

// DatasetKey identifies the dataset of one (period kind, year) pair.
// The kind travels with the key so it never has to be recovered from the name.
type DatasetKey struct {
	Kind PeriodKind
	Year int
}

// Name returns the catalog name of the dataset.
func (k DatasetKey) Name() string {
	return fmt.Sprintf("%s-%s-combined-drought-indicator-cdi-%d", Region, k.Kind, k.Year)
}

func (k DatasetKey) String() string {
	return k.Name()
}

// SortKeys orders keys lexicographically by name.
func SortKeys(keys []DatasetKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Name() < keys[j].Name()
	})
}

// DiscoveredFile is one raster fetched during discovery.
type DiscoveredFile struct {
	Filename  string
	LocalPath string
	Start     time.Time
	End       time.Time
}

// DateBounds tracks the earliest and latest dates merged into it.
type DateBounds struct {
	start time.Time
	end   time.Time
	set   bool
}

// Add merges dates into the bounds.
func (b *DateBounds) Add(dates ...time.Time) {
	for _, d := range dates {
		if !b.set {
			b.start, b.end, b.set = d, d, true
			continue
		}
		if d.Before(b.start) {
			b.start = d
		}
		if d.After(b.end) {
			b.end = d
		}
	}
}

// Merge folds other into b.
func (b *DateBounds) Merge(other DateBounds) {
	if other.set {
		b.Add(other.start, other.end)
	}
}

// Empty reports whether no date has been added.
func (b DateBounds) Empty() bool {
	return !b.set
}

// Start returns the earliest date.
func (b DateBounds) Start() time.Time {
	return b.start
}

// End returns the latest date.
func (b DateBounds) End() time.Time {
	return b.end
}

// Accumulator is the per-dataset state built by discovery. Every file in Files
// has had its dates merged into Bounds.
type Accumulator struct {
	Files  []DiscoveredFile
	Bounds DateBounds
}

// FilePaths returns local paths in discovery order.
func (a *Accumulator) FilePaths() []string {
	paths := make([]string, 0, len(a.Files))
	for _, f := range a.Files {
		paths = append(paths, f.LocalPath)
	}
	return paths
}

func (a *Accumulator) add(f DiscoveredFile) {
	a.Files = append(a.Files, f)
	a.Bounds.Add(f.Start, f.End)
}

// TimePeriod is the inclusive coverage of a dataset.
type TimePeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Resource is one file of an assembled dataset.
type Resource struct {
	Name        string `json:"name"`
	Format      string `json:"format"`
	Description string `json:"description"`
	// FilePath is the local file to upload.
	FilePath string `json:"-"`
}

// Dataset is the catalog description assembled for one DatasetKey.
type Dataset struct {
	Key             DatasetKey `json:"-"`
	Name            string     `json:"name"`
	Title           string     `json:"title"`
	TimePeriod      TimePeriod `json:"timePeriod"`
	Notes           string     `json:"notes"`
	Tags            []string   `json:"tags"`
	UpdateFrequency string     `json:"updateFrequency"`
	Subnational     bool       `json:"subnational"`
	Countries       []string   `json:"countries"`
	Resources       []Resource `json:"resources"`
}

// Years returns the years considered by a run at now: the current year and the
// year six months earlier, deduplicated and ascending.
func Years(now time.Time) []int {
	current := now.Year()
	previous := now.AddDate(0, -6, 0).Year()
	if previous == current {
		return []int{current}
	}
	return []int{previous, current}
}
