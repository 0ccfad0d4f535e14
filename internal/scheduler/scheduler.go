// Package scheduler drives the daily per-tenant depreciation posting. A
// single cron fires at 06:00 UTC; each tenant posts on its configured
// journal-processing day.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/engine"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/settings"
)

const dailySpec = "0 6 * * *"

// Poster is the slice of the posting engine the scheduler drives.
type Poster interface {
	PostMonthlyDepreciation(ctx context.Context, tenantID string, period ledger.Period, mode settings.ProcessingMode, force bool) (*engine.MonthlyResult, error)
	ProcessMissingJournals(ctx context.Context, tenantID string) (*engine.MissingJournalsResult, error)
}

// TenantDirectory lists the tenants with cows on the books. Enumerating from
// the herd rather than from saved settings keeps tenants that run on default
// settings on the schedule.
type TenantDirectory interface {
	DistinctTenantIDs(ctx context.Context) ([]string, error)
}

// SettingsSource resolves a tenant's depreciation settings.
type SettingsSource interface {
	Get(ctx context.Context, tenantID string) (*settings.DepreciationSettings, error)
}

// Scheduler runs the daily posting pass.
type Scheduler struct {
	engine   Poster
	tenants  TenantDirectory
	settings SettingsSource
	log      zerolog.Logger
	cron     *cron.Cron
	now      func() time.Time
	timeout  time.Duration

	mu      sync.Mutex
	running map[string]bool
}

// New creates a scheduler. It does not start until Start is called.
func New(eng Poster, tenants TenantDirectory, settingsRepo SettingsSource, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		engine:   eng,
		tenants:  tenants,
		settings: settingsRepo,
		log:      log,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		now:      time.Now,
		timeout:  30 * time.Minute,
		running:  make(map[string]bool),
	}
}

// WithClock overrides the scheduler's clock, for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start registers the daily job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(dailySpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunDaily(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("spec", dailySpec).Msg("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunDaily posts the previous calendar month for every tenant whose
// journal-processing day is today, then repairs any older gaps. A tenant
// without saved settings runs on defaults. Tenants run sequentially; a
// tenant still busy from an earlier pass is skipped.
func (s *Scheduler) RunDaily(ctx context.Context) {
	today := s.now().UTC()
	tenantIDs, err := s.tenants.DistinctTenantIDs(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("list tenants")
		return
	}

	prev := previousPeriod(today)
	for _, tenantID := range tenantIDs {
		set, err := s.settings.Get(ctx, tenantID)
		if errors.Is(err, settings.ErrSettingsNotFound) {
			set = settings.Default(tenantID)
		} else if err != nil {
			s.log.Error().Err(err).Str("tenant_id", tenantID).Msg("load tenant settings")
			continue
		}
		if set.JournalProcessingDay != today.Day() {
			continue
		}
		if !s.tryAcquire(tenantID) {
			s.log.Warn().Str("tenant_id", tenantID).Msg("tenant still processing, skipped")
			continue
		}
		s.runTenant(ctx, tenantID, prev)
		s.release(tenantID)

		if err := ctx.Err(); err != nil {
			s.log.Warn().Err(err).Msg("daily pass cancelled")
			return
		}
	}
}

func (s *Scheduler) runTenant(ctx context.Context, tenantID string, period ledger.Period) {
	res, err := s.engine.PostMonthlyDepreciation(ctx, tenantID, period, "", false)
	if err != nil {
		s.log.Error().Err(err).
			Str("tenant_id", tenantID).
			Int("year", period.Year).Int("month", int(period.Month)).
			Msg("scheduled monthly depreciation failed")
		return
	}
	s.log.Info().
		Str("tenant_id", tenantID).
		Int("year", period.Year).Int("month", int(period.Month)).
		Bool("journal_created", res.JournalCreated).
		Int("cows", res.CowsProcessed).
		Msg("scheduled monthly depreciation")

	missing, err := s.engine.ProcessMissingJournals(ctx, tenantID)
	if err != nil {
		s.log.Error().Err(err).Str("tenant_id", tenantID).Msg("missing-journal repair failed")
		return
	}
	if missing.Processed > 0 || len(missing.Errors) > 0 {
		s.log.Info().
			Str("tenant_id", tenantID).
			Int("processed", missing.Processed).
			Int("errors", len(missing.Errors)).
			Bool("truncated", missing.Truncated).
			Msg("missing-journal repair")
	}
}

func (s *Scheduler) tryAcquire(tenantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[tenantID] {
		return false
	}
	s.running[tenantID] = true
	return true
}

func (s *Scheduler) release(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, tenantID)
}

func previousPeriod(t time.Time) ledger.Period {
	p := ledger.PeriodOf(t)
	if p.Month == time.January {
		return ledger.Period{Year: p.Year - 1, Month: time.December}
	}
	return ledger.Period{Year: p.Year, Month: p.Month - 1}
}
