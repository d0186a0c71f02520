package stepgate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stepgate/stepgate/internal/catalog"
	"github.com/stepgate/stepgate/internal/config"
)

// NewCatalogFromFile loads a static catalog definition from a YAML file.
func NewCatalogFromFile(path string) (CatalogService, error) {
	return catalog.LoadStaticService(path)
}

// NewWizardFromConfig builds a Wizard from a YAML configuration file.
//
// The catalog comes from the config's catalog.path unless cat is non-nil.
// When the config selects the sqlite storage backend, the caller must have
// imported a SQLite driver registered under the name "sqlite" (for example,
// modernc.org/sqlite).
func NewWizardFromConfig(ctx context.Context, path string, cat CatalogService) (Wizard, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cat == nil {
		if cfg.Catalog.Path == "" {
			return nil, fmt.Errorf("stepgate: no catalog given and no catalog.path configured")
		}
		cat, err = NewCatalogFromFile(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
	}

	opts := Options{
		Catalog:        cat,
		SourceCurrency: cfg.Currency.Source,
		SyncDebounce:   cfg.Sync.Debounce,
	}

	if cfg.S3.Endpoint != "" {
		blobs, err := NewMinioDocumentStore(ctx, MinioConfig{
			Endpoint:      cfg.S3.Endpoint,
			AccessKey:     cfg.S3.AccessKey,
			SecretKey:     cfg.S3.SecretKey,
			Bucket:        cfg.S3.Bucket,
			UseSSL:        cfg.S3.UseSSL,
			PublicBaseURL: cfg.S3.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		opts.Documents = blobs
	}
	if cfg.Geocode.Endpoint != "" {
		opts.Addresses = NewHTTPAddressLookup(cfg.Geocode.Endpoint, nil)
	}
	switch {
	case cfg.Currency.Endpoint != "":
		opts.Converter = NewHTTPConverter(cfg.Currency.Endpoint, nil)
	case len(cfg.Currency.StaticRates) > 0:
		opts.Converter = NewStaticConverter(cfg.Currency.StaticRates)
	}

	if cfg.Storage.Backend == "sqlite" {
		db, err := sql.Open("sqlite", "file:"+cfg.Storage.Path+"?_journal=WAL")
		if err != nil {
			return nil, fmt.Errorf("open draft database: %w", err)
		}
		bundle, err := NewSQLiteBundle(db, opts)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return bundle.Wizard, nil
	}

	opts.Store = NewMemoryKeyStore(int(cfg.Storage.QuotaBytes))
	return NewWizard(opts)
}
