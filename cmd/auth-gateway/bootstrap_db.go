package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	config "github.com/NordCoder/bazaar/internal/config/auth-gateway"
	"github.com/NordCoder/bazaar/internal/domain/cart"
	"github.com/NordCoder/bazaar/internal/domain/customer"
	"github.com/NordCoder/bazaar/internal/repository/memory"
	pg "github.com/NordCoder/bazaar/internal/repository/postgres"
)

// store bundles the repositories of the configured driver.
type store struct {
	customers customer.Repo
	carts     cart.Repo
	db        *pg.DB
}

func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	switch cfg.DB.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage, state is lost on restart")
		return &store{customers: memory.NewCustomerRepo(), carts: memory.NewCartRepo()}, nil
	case config.DriverPostgres:
		db, err := pg.New(ctx, cfg.DB.Config)
		if err != nil {
			return nil, err
		}
		tx := pg.NewTransactor(db, logger)
		return &store{
			customers: pg.NewCustomerRepo(db),
			carts:     pg.NewCartRepo(db, tx),
			db:        db,
		}, nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
}

func (s *store) Health(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Ping(ctx)
}

func (s *store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}
