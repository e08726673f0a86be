package cdi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// Outcome is the result of one discovery step: either a file was discovered
// or the step was skipped for Err. A skipped listing has an empty Filename.
type Outcome struct {
	Key      DatasetKey
	Filename string
	File     *DiscoveredFile
	Err      error
}

// Skipped reports whether the step produced nothing.
func (o Outcome) Skipped() bool {
	return o.Err != nil
}

// Discovery is the frozen result of one discovery run.
type Discovery struct {
	accumulators map[DatasetKey]*Accumulator
	keys         []DatasetKey
	outcomes     []Outcome
}

// Keys returns, in name order, the datasets with at least one new file.
func (d *Discovery) Keys() []DatasetKey {
	return append([]DatasetKey(nil), d.keys...)
}

// Names returns the catalog names of Keys.
func (d *Discovery) Names() []string {
	names := make([]string, 0, len(d.keys))
	for _, k := range d.keys {
		names = append(names, k.Name())
	}
	return names
}

// Accumulator returns the state gathered for key.
func (d *Discovery) Accumulator(key DatasetKey) (*Accumulator, bool) {
	acc, ok := d.accumulators[key]
	return acc, ok
}

// Outcomes returns every discovery step in processing order.
func (d *Discovery) Outcomes() []Outcome {
	return append([]Outcome(nil), d.outcomes...)
}

// Skipped returns the steps that failed.
func (d *Discovery) Skipped() []Outcome {
	var skipped []Outcome
	for _, o := range d.outcomes {
		if o.Skipped() {
			skipped = append(skipped, o)
		}
	}
	return skipped
}

// Engine discovers new raster files for every (kind, year) pair.
type Engine struct {
	settings Settings
	fetcher  Fetcher
}

// NewEngine creates an Engine.
func NewEngine(settings Settings, fetcher Fetcher) *Engine {
	return &Engine{settings: settings, fetcher: fetcher}
}

// ListingURL returns the listing location of a pair, ending with a slash.
func ListingURL(template string, year int) string {
	u := strings.ReplaceAll(template, "{year}", strconv.Itoa(year))
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

// Discover walks kinds in the given order and, for each, years in the given
// order. Files known to snap are never fetched again. A failed listing skips
// its pair and a failed file skips only that file. The context is checked
// between pairs; on cancellation the pairs finished so far are returned along
// with the context error. Every kind must be configured; this is checked
// before any listing is fetched.
func (e *Engine) Discover(ctx context.Context, kinds []PeriodKind, years []int, snap *Snapshot) (*Discovery, error) {
	if snap == nil {
		snap = NewSnapshot()
	}

	periods := make([]Period, 0, len(kinds))
	for _, kind := range kinds {
		period, ok := e.settings.Period(kind)
		if !ok {
			return nil, fmt.Errorf("period kind %q is not configured", kind)
		}
		periods = append(periods, period)
	}

	d := &Discovery{accumulators: make(map[DatasetKey]*Accumulator)}
	for key, bounds := range snap.Dates {
		acc := &Accumulator{}
		acc.Bounds.Merge(bounds)
		d.accumulators[key] = acc
	}

	var ctxErr error
pairs:
	for _, period := range periods {
		for _, year := range years {
			if err := ctx.Err(); err != nil {
				ctxErr = err
				break pairs
			}

			key := DatasetKey{Kind: period.Kind, Year: year}
			files, outcomes := e.discoverPair(ctx, period, key, snap.Known)
			d.outcomes = append(d.outcomes, outcomes...)

			if len(files) == 0 {
				continue
			}
			acc, ok := d.accumulators[key]
			if !ok {
				acc = &Accumulator{}
				d.accumulators[key] = acc
			}
			for _, f := range files {
				acc.add(f)
			}
		}
	}

	for key, acc := range d.accumulators {
		if len(acc.Files) > 0 {
			d.keys = append(d.keys, key)
		}
	}
	SortKeys(d.keys)

	return d, ctxErr
}

// discoverPair processes one listing. Its files are merged by the caller only
// once the whole pair is done.
func (e *Engine) discoverPair(ctx context.Context, period Period, key DatasetKey, known *KnownResourceIndex) ([]DiscoveredFile, []Outcome) {
	log := klog.FromContext(ctx).WithValues("dataset", key.Name())
	log.Info("downloading listing", "kind", key.Kind, "year", key.Year)

	baseURL := ListingURL(period.URL, key.Year)
	text, err := e.fetcher.FetchText(ctx, baseURL, fmt.Sprintf("%s_%d", key.Kind, key.Year))
	if err != nil {
		lerr := &ListingFetchError{Key: key, URL: baseURL, Err: err}
		log.Error(lerr, "could not get listing", "url", baseURL)
		return nil, []Outcome{{Key: key, Err: lerr}}
	}

	var (
		files    []DiscoveredFile
		outcomes []Outcome
		seen     = make(map[string]struct{})
	)
	for _, filename := range ScanListing(text) {
		if known.Contains(key, filename) {
			continue
		}
		if _, dup := seen[filename]; dup {
			continue
		}
		seen[filename] = struct{}{}

		f, err := e.discoverFile(ctx, baseURL, key, filename)
		if err != nil {
			log.Error(err, "skipping file", "file", filename)
			outcomes = append(outcomes, Outcome{Key: key, Filename: filename, Err: err})
			continue
		}
		files = append(files, f)
		outcomes = append(outcomes, Outcome{Key: key, Filename: filename, File: &f})
	}

	return files, outcomes
}

func (e *Engine) discoverFile(ctx context.Context, baseURL string, key DatasetKey, filename string) (DiscoveredFile, error) {
	// Names that cannot be dated are never downloaded.
	start, end, err := ParseDates(filename, key.Kind, key.Year)
	if err != nil {
		return DiscoveredFile{}, err
	}

	path, err := e.fetcher.FetchFile(ctx, baseURL+filename, filename)
	if err != nil {
		return DiscoveredFile{}, &FileDownloadError{Key: key, Filename: filename, Err: err}
	}

	return DiscoveredFile{
		Filename:  filename,
		LocalPath: path,
		Start:     start,
		End:       end,
	}, nil
}
