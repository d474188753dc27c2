// Package storageutils builds archive drivers by provider name.
package storageutils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/brainstream/pkg/logger"
	"github.com/papercomputeco/brainstream/pkg/storage"
	"github.com/papercomputeco/brainstream/pkg/storage/inmemory"
	"github.com/papercomputeco/brainstream/pkg/storage/postgres"
	"github.com/papercomputeco/brainstream/pkg/storage/sqlite"
)

// Supported provider names.
const (
	ProviderMemory   = "memory"
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
)

// ErrMissingTarget is returned when a provider needs a path or DSN and none
// was given.
var ErrMissingTarget = errors.New("archive target is required")

type NewDriverOpts struct {
	ProviderType string

	// Target is the sqlite file path or the postgres DSN.
	Target string

	// Capacity bounds the in-memory archive. Zero uses the driver default.
	Capacity int

	Logger *slog.Logger
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, error) {
	log := o.Logger
	if log == nil {
		log = logger.Nop()
	}

	switch o.ProviderType {
	case "", ProviderMemory:
		log.Info("using in-memory archive")
		return inmemory.NewDriver(o.Capacity), nil

	case ProviderSQLite:
		if o.Target == "" {
			return nil, fmt.Errorf("sqlite: %w", ErrMissingTarget)
		}
		driver, err := sqlite.NewSQLiteDriver(o.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite archive: %w", err)
		}
		log.Info("using SQLite archive", "path", o.Target)
		return driver, nil

	case ProviderPostgres:
		if o.Target == "" {
			return nil, fmt.Errorf("postgres: %w", ErrMissingTarget)
		}
		driver, err := postgres.NewDriver(ctx, o.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres archive: %w", err)
		}
		log.Info("using Postgres archive")
		return driver, nil

	default:
		return nil, fmt.Errorf("unsupported archive provider: %s", o.ProviderType)
	}
}
