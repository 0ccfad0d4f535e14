package engine

import (
	"context"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/database"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/herd"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/settings"
)

// Repos bundles the repositories a poster works against. Inside a
// transaction every repository is bound to the same pgx.Tx.
type Repos struct {
	Cows     herd.Repository
	Journal  ledger.Repository
	Settings settings.Repository
}

// Store gives the engine transactional access to the repositories.
// Postgres is the production implementation; tests substitute an in-memory
// store.
type Store interface {
	// Repos returns repositories for non-transactional reads.
	Repos() Repos

	// InTenantTx runs fn inside one transaction serialised on the
	// tenant's lock. Either everything fn wrote commits, or nothing does.
	InTenantTx(ctx context.Context, tenantID string, fn func(ctx context.Context, r Repos) error) error
}

type pgStore struct {
	db *database.Store
}

// NewPostgresStore wraps a database store for the engine.
func NewPostgresStore(db *database.Store) Store {
	return &pgStore{db: db}
}

func reposFor(q database.Querier) Repos {
	return Repos{
		Cows:     herd.NewPostgresRepository(q),
		Journal:  ledger.NewPostgresRepository(q),
		Settings: settings.NewPostgresRepository(q),
	}
}

func (s *pgStore) Repos() Repos {
	return reposFor(s.db.Querier())
}

func (s *pgStore) InTenantTx(ctx context.Context, tenantID string, fn func(ctx context.Context, r Repos) error) error {
	return s.db.InTenantTx(ctx, tenantID, func(ctx context.Context, q database.Querier) error {
		return fn(ctx, reposFor(q))
	})
}
