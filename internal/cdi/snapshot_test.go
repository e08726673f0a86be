package cdi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotReaderRead(t *testing.T) {
	dekadal := DatasetKey{Kind: Dekadal, Year: 2024}
	monthly := DatasetKey{Kind: Monthly, Year: 2024}

	catalog := &fakeCatalog{datasets: map[string]PublishedDataset{
		dekadal.Name(): {
			Name: dekadal.Name(),
			Resources: []PublishedResource{
				{Name: "eadw-cdi-data-2024-01-11.tif"},
				{Name: "eadw-cdi-data-2024-01-01.tif"},
				{Name: "EADW-CDI-Factsheet.pdf"},
			},
		},
	}}

	snap, err := NewSnapshotReader(catalog).Read(context.Background(), []PeriodKind{Dekadal, Monthly}, []int{2024})
	require.NoError(t, err)

	assert.True(t, snap.Known.Published(dekadal))
	assert.Equal(t, []string{
		"eadw-cdi-data-2024-01-11.tif",
		"eadw-cdi-data-2024-01-01.tif",
		"EADW-CDI-Factsheet.pdf",
	}, snap.Known.Names(dekadal))
	assert.True(t, snap.Known.Contains(dekadal, "eadw-cdi-data-2024-01-01.tif"))

	bounds, ok := snap.Dates[dekadal]
	require.True(t, ok)
	assert.Equal(t, day(2024, time.January, 1), bounds.Start())
	assert.Equal(t, day(2024, time.January, 20), bounds.End())

	assert.False(t, snap.Known.Published(monthly))
	assert.Empty(t, snap.Known.Names(monthly))
	_, ok = snap.Dates[monthly]
	assert.False(t, ok)
}

func TestSnapshotReaderSurfacesCatalogErrors(t *testing.T) {
	boom := errors.New("catalog unavailable")
	_, err := NewSnapshotReader(&fakeCatalog{err: boom}).Read(context.Background(), []PeriodKind{Dekadal}, []int{2024})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestKnownResourceIndexNil(t *testing.T) {
	var ix *KnownResourceIndex
	key := DatasetKey{Kind: Dekadal, Year: 2024}
	assert.False(t, ix.Contains(key, "a.tif"))
	assert.False(t, ix.Published(key))
	assert.Nil(t, ix.Names(key))
}
