// Package connect turns a config.Config into live backends and the
// reporter that runs over them.
package connect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/HendryAvila/farmcheck/internal/backend"
	"github.com/HendryAvila/farmcheck/internal/backend/fsbucket"
	"github.com/HendryAvila/farmcheck/internal/backend/postgres"
	"github.com/HendryAvila/farmcheck/internal/backend/rest"
	"github.com/HendryAvila/farmcheck/internal/backend/sqlite"
	"github.com/HendryAvila/farmcheck/internal/config"
	"github.com/HendryAvila/farmcheck/internal/diagnostic"
	"github.com/HendryAvila/farmcheck/internal/logging"
	"go.uber.org/zap"
)

// UserAgent is sent by the REST driver. The CLI sets it to include the
// build version.
var UserAgent = "farmcheck"

// Backend bundles the table store and the bucket lister built from one
// configuration. Buckets is nil when storage is disabled.
type Backend struct {
	Tables  backend.TableStore
	Buckets backend.BucketLister

	closers []io.Closer
	once    sync.Once
	err     error
}

// Close releases every connection the Backend opened. It is safe to call
// more than once.
func (b *Backend) Close() error {
	b.once.Do(func() {
		var errs []error
		for i := len(b.closers) - 1; i >= 0; i-- {
			if err := b.closers[i].Close(); err != nil {
				errs = append(errs, err)
			}
		}
		b.err = errors.Join(errs...)
	})
	return b.err
}

// Open builds the backends named by cfg. When storage and database use
// the same network driver against the same endpoint, one connection
// serves both.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Backend, error) {
	logger = logging.OrNop(logger)
	b := &Backend{}

	tables, err := openTables(ctx, cfg, b)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Tables = tables
	logger.Debug("table backend ready", zap.String("driver", cfg.Database.Driver))

	buckets, err := openBuckets(ctx, cfg, b)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Buckets = buckets
	logger.Debug("storage backend ready", zap.String("driver", storageDriver(cfg)))

	return b, nil
}

func openTables(ctx context.Context, cfg config.Config, b *Backend) (backend.TableStore, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, postgres.Config{
			URL:      cfg.Database.URL,
			Schema:   cfg.Database.Schema,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		b.closers = append(b.closers, s)
		return s, nil

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		b.closers = append(b.closers, s)
		return s, nil

	case config.DriverREST:
		c, err := restClient(cfg.API.URL, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("connect: unknown database driver %q", cfg.Database.Driver)
	}
}

func openBuckets(ctx context.Context, cfg config.Config, b *Backend) (backend.BucketLister, error) {
	switch storageDriver(cfg) {
	case config.DriverREST:
		base := cfg.Storage.URL
		if base == "" {
			base = cfg.API.URL
		}
		if c, ok := b.Tables.(*rest.Client); ok && base == cfg.API.URL {
			return c, nil
		}
		c, err := restClient(base, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect: storage: %w", err)
		}
		return c, nil

	case config.DriverPostgres:
		if s, ok := b.Tables.(*postgres.Store); ok && (cfg.Storage.URL == "" || cfg.Storage.URL == cfg.Database.URL) {
			return s, nil
		}
		s, err := postgres.Open(ctx, postgres.Config{URL: cfg.Storage.URL, MaxConns: 1})
		if err != nil {
			return nil, fmt.Errorf("connect: storage: %w", err)
		}
		b.closers = append(b.closers, s)
		return s, nil

	case config.StorageFS:
		return fsbucket.New(cfg.Storage.Dir), nil

	case config.StorageNone:
		return nil, nil

	default:
		return nil, fmt.Errorf("connect: unknown storage driver %q", cfg.Storage.Driver)
	}
}

func storageDriver(cfg config.Config) string {
	if cfg.Storage.Driver == "" {
		return config.StorageNone
	}
	return cfg.Storage.Driver
}

func restClient(base string, cfg config.Config) (*rest.Client, error) {
	schema := cfg.Database.Schema
	if schema == postgres.DefaultSchema {
		schema = ""
	}
	return rest.New(rest.Config{
		BaseURL:   base,
		APIKey:    cfg.API.Key,
		Schema:    schema,
		UserAgent: UserAgent,
	})
}

// NewReporter wires a diagnostic.Reporter for cfg over b.
func NewReporter(cfg config.Config, b *Backend, logger *zap.Logger) *diagnostic.Reporter {
	logger = logging.OrNop(logger)
	checker := diagnostic.NewChecker(b.Tables, diagnostic.CheckerConfig{
		Tables:       cfg.Tables,
		ProbeColumns: cfg.Probe.Columns,
		ProbeLimit:   cfg.Probe.Limit,
		QueryTimeout: cfg.QueryTimeout,
	}, logger.Named("checker"))
	return diagnostic.NewReporter(checker, b.Buckets, logger.Named("reporter"))
}
