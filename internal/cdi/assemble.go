package cdi

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// dateMarker is the placeholder substituted in resource descriptions.
const dateMarker = "[date]"

// Assembler turns discovery state into dataset descriptions.
type Assembler struct {
	settings Settings
}

// NewAssembler creates an Assembler.
func NewAssembler(settings Settings) *Assembler {
	return &Assembler{settings: settings}
}

// Assemble builds the dataset of key. key must be one of d.Keys().
// Resources keep discovery order; the time period spans every known and new file.
func (a *Assembler) Assemble(d *Discovery, key DatasetKey) (Dataset, error) {
	acc, ok := d.Accumulator(key)
	if !ok || len(acc.Files) == 0 {
		return Dataset{}, fmt.Errorf("%w: %s", ErrUnknownDatasetKey, key.Name())
	}
	period, ok := a.settings.Period(key.Kind)
	if !ok {
		return Dataset{}, fmt.Errorf("%w: period kind %q is not configured", ErrUnknownDatasetKey, key.Kind)
	}

	start := acc.Bounds.Start()
	end := acc.Bounds.End()

	ds := Dataset{
		Key:   key,
		Name:  key.Name(),
		Title: fmt.Sprintf("%s %d", period.Title, key.Year),
		TimePeriod: TimePeriod{
			Start: time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
			End:   time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC),
		},
		Notes:           period.Notes,
		Tags:            append([]string(nil), a.settings.Tags...),
		UpdateFrequency: period.UpdateFrequency,
		Subnational:     true,
		Countries:       append([]string(nil), a.settings.Countries...),
		Resources:       make([]Resource, 0, len(acc.Files)),
	}

	for _, f := range acc.Files {
		name := filepath.Base(f.LocalPath)
		date := fmt.Sprintf("%d-%s", key.Year, DateToken(name))
		ds.Resources = append(ds.Resources, Resource{
			Name:        name,
			Format:      ResourceFormat,
			Description: strings.ReplaceAll(period.Description, dateMarker, date),
			FilePath:    f.LocalPath,
		})
	}

	return ds, nil
}
