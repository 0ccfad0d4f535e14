// Package engine posts acquisition, depreciation and disposition journal
// entries. Every poster runs inside the tenant's transaction lock and is
// safe to re-run: posting the same event twice leaves the ledger unchanged.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/herd"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/settings"
)

// Engine is the posting engine. It owns no state beyond its store; all
// amounts are derived from the schedule math so replays are deterministic.
type Engine struct {
	store        Store
	log          zerolog.Logger
	now          func() time.Time
	missingLimit int
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock overrides the engine's clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMissingJournalLimit caps how many periods one gap-repair run posts.
func WithMissingJournalLimit(n int) Option {
	return func(e *Engine) { e.missingLimit = n }
}

// New creates a posting engine.
func New(store Store, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		log:          log,
		now:          time.Now,
		missingLimit: 60,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newID() string {
	return uuid.New().String()
}

// today returns the engine clock's current date at midnight UTC. Journal
// dates are day-granular.
func (e *Engine) today() time.Time {
	t := e.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// settingsFor loads a tenant's settings, falling back to defaults when the
// tenant has never saved any.
func settingsFor(ctx context.Context, r Repos, tenantID string) (*settings.DepreciationSettings, error) {
	s, err := r.Settings.Get(ctx, tenantID)
	if errors.Is(err, settings.ErrSettingsNotFound) {
		return settings.Default(tenantID), nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// chartFor resolves a tenant's chart of accounts with overrides applied.
func chartFor(ctx context.Context, r Repos, tenantID string) (ledger.Chart, error) {
	overrides, err := r.Settings.AccountOverrides(ctx, tenantID)
	if err != nil {
		return ledger.Chart{}, err
	}
	return ledger.NewChart(overrides), nil
}

// terms are the schedule parameters for one cow.
type terms struct {
	price         decimal.Decimal
	salvage       decimal.Decimal
	years         int
	roundToDollar bool
}

func termsFor(c *herd.Cow, s *settings.DepreciationSettings) terms {
	return terms{
		price:         c.PurchasePrice,
		salvage:       c.SalvageValue,
		years:         s.Years,
		roundToDollar: s.RoundToDollar,
	}
}

// RegisterCow upserts a cow, applying the tenant's default salvage
// percentage when none is given, and returns the stored row.
func (e *Engine) RegisterCow(ctx context.Context, c *herd.Cow) (*herd.Cow, error) {
	var stored *herd.Cow
	err := e.store.InTenantTx(ctx, c.TenantID, func(ctx context.Context, r Repos) error {
		set, err := settingsFor(ctx, r, c.TenantID)
		if err != nil {
			return err
		}
		if c.SalvageValue.IsZero() && set.SalvagePercent.GreaterThan(decimal.Zero) {
			c.SalvageValue = c.PurchasePrice.Mul(set.SalvagePercent).Div(decimal.NewFromInt(100)).Round(2)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		now := e.now().UTC()
		if c.ID == "" {
			c.ID = newID()
		}
		if c.Status == "" {
			c.Status = herd.CowActive
		}
		if c.CurrentValue.IsZero() {
			c.CurrentValue = c.PurchasePrice
		}
		c.CreatedAt, c.UpdatedAt = now, now
		if err := r.Cows.UpsertCow(ctx, c); err != nil {
			return err
		}
		// The upsert may have matched an existing tag; return the row as stored.
		stored, err = r.Cows.GetCowByTag(ctx, c.TenantID, c.TagNumber)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}
