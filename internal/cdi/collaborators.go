package cdi

import "context"

// Fetcher abstracts the download collaborator. name identifies the artifact
// for saved-data lookups; it is not part of the request.
type Fetcher interface {
	FetchText(ctx context.Context, url, name string) (string, error)
	FetchFile(ctx context.Context, url, name string) (string, error)
}

// PublishedResource is a resource already present in the catalog.
type PublishedResource struct {
	ID   string
	Name string
}

// PublishedDataset is a dataset already present in the catalog.
type PublishedDataset struct {
	ID        string
	Name      string
	Resources []PublishedResource
}

// CatalogReader is the contract of the catalog read collaborator.
// ReadDataset returns ErrDatasetNotFound when name is not published.
type CatalogReader interface {
	ReadDataset(ctx context.Context, name string) (PublishedDataset, error)
}
