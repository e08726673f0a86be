package cdi

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
)

const (
	dekadalURL = "https://example.org/cdi/dekadal/{year}/"
	monthlyURL = "https://example.org/cdi/monthly/{year}/"
)

func testSettings() Settings {
	return Settings{
		Periods: []Period{
			{Kind: Dekadal, PeriodConfig: PeriodConfig{
				URL:             dekadalURL,
				Title:           "IGAD Region - Dekadal Combined Drought Indicator (CDI)",
				Notes:           "Dekadal (10 days) Combined Drought Indicator (CDI).",
				UpdateFrequency: "7",
				Description:     "Dekadal (10 days) Combined Drought Indicator (CDI) for [date]",
			}},
			{Kind: Monthly, PeriodConfig: PeriodConfig{
				URL:             monthlyURL,
				Title:           "IGAD Region - Monthly Combined Drought Indicator (CDI)",
				Notes:           "Monthly Combined Drought Indicator (CDI).",
				UpdateFrequency: "30",
				Description:     "Monthly Combined Drought Indicator (CDI) for [date]",
			}},
		},
		Tags:      []string{"climate hazards", "drought"},
		Countries: []string{"ETH", "KEN"},
	}
}

// fakeFetcher serves listings and files from maps keyed by URL.
type fakeFetcher struct {
	mu        sync.Mutex
	listings  map[string]string
	failFiles map[string]bool
	dir       string
	fetched   []string
}

func newFakeFetcher(dir string) *fakeFetcher {
	return &fakeFetcher{
		listings:  make(map[string]string),
		failFiles: make(map[string]bool),
		dir:       dir,
	}
}

func (f *fakeFetcher) FetchText(_ context.Context, url, _ string) (string, error) {
	body, ok := f.listings[url]
	if !ok {
		return "", errors.New("404 not found")
	}
	return body, nil
}

func (f *fakeFetcher) FetchFile(_ context.Context, url, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFiles[name] {
		return "", errors.New("connection reset")
	}
	f.fetched = append(f.fetched, url)
	return filepath.Join(f.dir, name), nil
}

type fakeCatalog struct {
	datasets map[string]PublishedDataset
	err      error
}

func (c *fakeCatalog) ReadDataset(_ context.Context, name string) (PublishedDataset, error) {
	if c.err != nil {
		return PublishedDataset{}, c.err
	}
	ds, ok := c.datasets[name]
	if !ok {
		return PublishedDataset{}, ErrDatasetNotFound
	}
	return ds, nil
}

func listing(files ...string) string {
	body := "<html><body><pre>\n<a href=\"../\">../</a>\n"
	for _, f := range files {
		body += "<a href=\"" + f + "\">" + f + "</a>\n"
	}
	return body + "</pre></body></html>"
}
