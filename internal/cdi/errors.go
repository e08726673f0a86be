package cdi

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDatasetKey is returned when assembling a key discovery did not produce.
	ErrUnknownDatasetKey = errors.New("unknown dataset key")

	// ErrDatasetNotFound is returned by a CatalogReader when no dataset has the requested name.
	ErrDatasetNotFound = errors.New("dataset not found in catalog")
)

// ListingFetchError means the directory listing of a (kind, year) pair could not be retrieved.
type ListingFetchError struct {
	Key DatasetKey
	URL string
	Err error
}

func (e *ListingFetchError) Error() string {
	return fmt.Sprintf("fetch listing %s for %s: %v", e.URL, e.Key, e.Err)
}

func (e *ListingFetchError) Unwrap() error { return e.Err }

// FileDownloadError means a single candidate raster could not be downloaded.
type FileDownloadError struct {
	Key      DatasetKey
	Filename string
	Err      error
}

func (e *FileDownloadError) Error() string {
	return fmt.Sprintf("download %s for %s: %v", e.Filename, e.Key, e.Err)
}

func (e *FileDownloadError) Unwrap() error { return e.Err }

// MalformedFilenameError means the date token of a filename could not be parsed.
type MalformedFilenameError struct {
	Filename string
	Kind     PeriodKind
	Reason   string
}

func (e *MalformedFilenameError) Error() string {
	return fmt.Sprintf("malformed %s filename %q: %s", e.Kind, e.Filename, e.Reason)
}
