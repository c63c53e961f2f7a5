package factory

import (
	"fmt"

	"go-media-identifier/internal/config"
	"go-media-identifier/internal/storage"
)

// StorageType represents different types of image source backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
)

// FetcherFactory creates image fetcher implementations
type FetcherFactory interface {
	CreateFetcher(storageType StorageType) (storage.ImageFetcher, error)
}

type fetcherFactory struct {
	cfg *config.Config
}

// NewFetcherFactory creates a new fetcher factory
func NewFetcherFactory(cfg *config.Config) FetcherFactory {
	return &fetcherFactory{cfg: cfg}
}

// CreateFetcher creates an image fetcher based on the specified type
func (f *fetcherFactory) CreateFetcher(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(f.cfg.ImageFetchTimeout), nil
	case AzureStorage:
		if f.cfg.AzureAccountName == "" || f.cfg.AzureAccountKey == "" {
			return nil, fmt.Errorf("azure storage requires AZURE_ACCOUNT_NAME and AZURE_ACCOUNT_KEY")
		}
		return storage.NewAzureStorage(f.cfg.AzureAccountName, f.cfg.AzureAccountKey)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
