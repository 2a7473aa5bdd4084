package bootstrap

import (
	"context"
	"fmt"

	apihttp "github.com/artpar/clubdues/adapters/http"
	"github.com/artpar/clubdues/adapters/memory"
	"github.com/artpar/clubdues/adapters/mongo"
	"github.com/artpar/clubdues/adapters/sqlite"
	"github.com/artpar/clubdues/config"
	"github.com/artpar/clubdues/ports"
	"github.com/rs/zerolog"
)

// Stores holds the persistence adapters selected by database.driver.
type Stores struct {
	Invoices ports.InvoiceStore
	Players  ports.PlayerStore
	Health   apihttp.HealthChecker // nil for the memory driver
	close    func() error
}

// Close releases the underlying connection.
func (s *Stores) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores connects to the configured database and applies its schema.
func OpenStores(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Stores, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.MigrateContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Str("driver", cfg.Driver).Str("dsn", cfg.DSN).Msg("database initialized")
		return &Stores{
			Invoices: sqlite.NewInvoiceStore(db),
			Players:  sqlite.NewPlayerStore(db),
			Health:   db,
			close:    db.Close,
		}, nil

	case "mongo":
		db, err := mongo.Open(ctx, cfg.DSN, cfg.Name)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Str("driver", cfg.Driver).Str("database", cfg.Name).Msg("database initialized")
		return &Stores{
			Invoices: mongo.NewInvoiceStore(db),
			Players:  mongo.NewPlayerStore(db),
			Health:   db,
			close:    db.Close,
		}, nil

	case "memory":
		logger.Warn().Msg("using in-memory store, data is lost on exit")
		return &Stores{
			Invoices: memory.NewInvoiceStore(),
			Players:  memory.NewPlayerStore(),
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
