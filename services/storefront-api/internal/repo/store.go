package repo

import (
	"context"
	"fmt"

	"storefront-api/shared/pkg/config"
)

// Store bundles the four collections behind one storage connection that
// is opened once at startup and released by Close.
type Store struct {
	Products Collection
	Orders   Collection
	Reviews  Collection
	Users    Collection

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open connects the configured driver.
func Open(ctx context.Context, cfg config.Config) (*Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		return OpenMongo(ctx, cfg.Mongo.ConnectionURI(), cfg.Mongo.Database)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.Postgres.DSN)
	case config.DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
