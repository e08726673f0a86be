package cdi

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/klog/v2"
)

// KnownResourceIndex maps each dataset to the resource names already in the
// catalog, in catalog order. It is built once per run and only read afterwards.
type KnownResourceIndex struct {
	entries map[DatasetKey]*knownEntry
}

type knownEntry struct {
	published bool
	names     []string
	set       map[string]struct{}
}

// NewKnownResourceIndex returns an empty index.
func NewKnownResourceIndex() *KnownResourceIndex {
	return &KnownResourceIndex{entries: make(map[DatasetKey]*knownEntry)}
}

// Record stores the resource names of key. published is false when the catalog
// has no dataset for key yet.
func (ix *KnownResourceIndex) Record(key DatasetKey, published bool, names []string) {
	e := &knownEntry{
		published: published,
		names:     append([]string(nil), names...),
		set:       make(map[string]struct{}, len(names)),
	}
	for _, n := range names {
		e.set[n] = struct{}{}
	}
	ix.entries[key] = e
}

// Contains reports whether filename is already published for key.
func (ix *KnownResourceIndex) Contains(key DatasetKey, filename string) bool {
	if ix == nil {
		return false
	}
	e, ok := ix.entries[key]
	if !ok {
		return false
	}
	_, ok = e.set[filename]
	return ok
}

// Names returns the known resource names of key in catalog order.
func (ix *KnownResourceIndex) Names(key DatasetKey) []string {
	if ix == nil {
		return nil
	}
	if e, ok := ix.entries[key]; ok {
		return append([]string(nil), e.names...)
	}
	return nil
}

// Published reports whether the catalog had a dataset for key.
func (ix *KnownResourceIndex) Published(key DatasetKey) bool {
	if ix == nil {
		return false
	}
	e, ok := ix.entries[key]
	return ok && e.published
}

// Snapshot is the catalog state read at the start of a run.
type Snapshot struct {
	Known *KnownResourceIndex
	// Dates holds the bounds of every known resource, per dataset.
	Dates map[DatasetKey]DateBounds
}

// NewSnapshot returns an empty snapshot, as for a catalog with nothing published.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Known: NewKnownResourceIndex(),
		Dates: make(map[DatasetKey]DateBounds),
	}
}

// SnapshotReader reads what the catalog already holds for each dataset of a run.
type SnapshotReader struct {
	catalog CatalogReader
}

// NewSnapshotReader creates a SnapshotReader.
func NewSnapshotReader(catalog CatalogReader) *SnapshotReader {
	return &SnapshotReader{catalog: catalog}
}

// Read queries the catalog for every (kind, year) dataset. A failing catalog
// read is returned; a missing dataset is recorded as unpublished.
func (r *SnapshotReader) Read(ctx context.Context, kinds []PeriodKind, years []int) (*Snapshot, error) {
	log := klog.FromContext(ctx)
	snap := NewSnapshot()

	for _, kind := range kinds {
		for _, year := range years {
			key := DatasetKey{Kind: kind, Year: year}

			ds, err := r.catalog.ReadDataset(ctx, key.Name())
			if errors.Is(err, ErrDatasetNotFound) {
				snap.Known.Record(key, false, nil)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read catalog dataset %s: %w", key.Name(), err)
			}

			names := make([]string, 0, len(ds.Resources))
			var bounds DateBounds
			for _, res := range ds.Resources {
				names = append(names, res.Name)

				start, end, err := ParseDates(res.Name, kind, year)
				if err != nil {
					log.V(1).Info("known resource has no date", "dataset", key.Name(), "resource", res.Name, "reason", err)
					continue
				}
				bounds.Add(start, end)
			}

			snap.Known.Record(key, true, names)
			if !bounds.Empty() {
				snap.Dates[key] = bounds
			}
			log.Info("read published dataset", "dataset", key.Name(), "resources", len(names))
		}
	}

	return snap, nil
}
