package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/engine"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/settings"
)

type fakePoster struct {
	mu      sync.Mutex
	monthly map[string]ledger.Period
	missing []string
}

func newFakePoster() *fakePoster {
	return &fakePoster{monthly: make(map[string]ledger.Period)}
}

func (p *fakePoster) PostMonthlyDepreciation(_ context.Context, tenantID string, period ledger.Period, _ settings.ProcessingMode, _ bool) (*engine.MonthlyResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.monthly[tenantID] = period
	return &engine.MonthlyResult{Period: period, Year: period.Year, Month: int(period.Month), JournalCreated: true}, nil
}

func (p *fakePoster) ProcessMissingJournals(_ context.Context, tenantID string) (*engine.MissingJournalsResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.missing = append(p.missing, tenantID)
	return &engine.MissingJournalsResult{TenantID: tenantID}, nil
}

type fakeTenants []string

func (f fakeTenants) DistinctTenantIDs(_ context.Context) ([]string, error) {
	return f, nil
}

type fakeSettings map[string]*settings.DepreciationSettings

func (f fakeSettings) Get(_ context.Context, tenantID string) (*settings.DepreciationSettings, error) {
	s, ok := f[tenantID]
	if !ok {
		return nil, settings.ErrSettingsNotFound
	}
	return s, nil
}

func withDay(tenantID string, day int) *settings.DepreciationSettings {
	s := settings.Default(tenantID)
	s.JournalProcessingDay = day
	return s
}

func newTestScheduler(poster Poster, tenants fakeTenants, set fakeSettings, now time.Time) *Scheduler {
	return New(poster, tenants, set, zerolog.Nop()).WithClock(func() time.Time { return now })
}

func TestRunDailyPostsOnProcessingDay(t *testing.T) {
	poster := newFakePoster()
	s := newTestScheduler(poster,
		fakeTenants{"farm-a", "farm-b", "farm-c"},
		fakeSettings{
			"farm-a": withDay("farm-a", 5),
			"farm-b": withDay("farm-b", 6),
			// farm-c never saved settings and runs on defaults (day 5).
		},
		time.Date(2024, time.February, 5, 6, 0, 0, 0, time.UTC))

	s.RunDaily(context.Background())

	jan := ledger.Period{Year: 2024, Month: time.January}
	assert.Equal(t, jan, poster.monthly["farm-a"])
	assert.Equal(t, jan, poster.monthly["farm-c"])
	assert.NotContains(t, poster.monthly, "farm-b")
	assert.ElementsMatch(t, []string{"farm-a", "farm-c"}, poster.missing)
}

func TestRunDailyCrossesYearBoundary(t *testing.T) {
	poster := newFakePoster()
	s := newTestScheduler(poster,
		fakeTenants{"farm-a"},
		fakeSettings{"farm-a": withDay("farm-a", 5)},
		time.Date(2025, time.January, 5, 6, 0, 0, 0, time.UTC))

	s.RunDaily(context.Background())

	require.Contains(t, poster.monthly, "farm-a")
	assert.Equal(t, ledger.Period{Year: 2024, Month: time.December}, poster.monthly["farm-a"])
}

func TestRunDailySkipsBusyTenant(t *testing.T) {
	poster := newFakePoster()
	s := newTestScheduler(poster,
		fakeTenants{"farm-a"},
		fakeSettings{"farm-a": withDay("farm-a", 5)},
		time.Date(2024, time.February, 5, 6, 0, 0, 0, time.UTC))

	require.True(t, s.tryAcquire("farm-a"))
	s.RunDaily(context.Background())
	assert.Empty(t, poster.monthly)

	s.release("farm-a")
	s.RunDaily(context.Background())
	assert.Contains(t, poster.monthly, "farm-a")
}
