package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/depreciation"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/settings"
)

// Service answers dashboard and reconciliation queries.
type Service struct {
	repo     Repository
	settings settings.Repository
	now      func() time.Time
}

// NewService creates a reports service.
func NewService(repo Repository, settingsRepo settings.Repository) *Service {
	return &Service{repo: repo, settings: settingsRepo, now: time.Now}
}

// NewServiceWithClock creates a reports service with a fixed clock, for tests.
func NewServiceWithClock(repo Repository, settingsRepo settings.Repository, now func() time.Time) *Service {
	s := NewService(repo, settingsRepo)
	s.now = now
	return s
}

func (s *Service) chartFor(ctx context.Context, tenantID string) (ledger.Chart, error) {
	overrides, err := s.settings.AccountOverrides(ctx, tenantID)
	if err != nil {
		return ledger.Chart{}, err
	}
	return ledger.NewChart(overrides), nil
}

// DashboardStats assembles the tenant overview. Asset value and accumulated
// depreciation come from the posted ledger so they always agree with the
// journal an auditor would sum.
func (s *Service) DashboardStats(ctx context.Context, tenantID string) (*DashboardStats, error) {
	chart, err := s.chartFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	count, value, err := s.repo.ActiveStats(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	assetDr, assetCr, err := s.repo.LedgerBalance(ctx, tenantID, chart.Resolve(ledger.RoleAsset).Code)
	if err != nil {
		return nil, err
	}
	accumDr, accumCr, err := s.repo.LedgerBalance(ctx, tenantID, chart.Resolve(ledger.RoleAccumDepr).Code)
	if err != nil {
		return nil, err
	}

	yearStart := depreciation.FirstOfMonth(s.now().UTC().Year(), time.January)
	expenseDr, expenseCr, err := s.repo.LedgerBalanceSince(ctx, tenantID, chart.Resolve(ledger.RoleDeprExpense).Code, yearStart)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		ActiveCount:  count,
		ActiveValue:  value,
		AssetValue:   assetDr.Sub(assetCr),
		AccumDepr:    accumCr.Sub(accumDr),
		DeprThisYear: expenseDr.Sub(expenseCr),
	}
	stats.NetBookValue = stats.AssetValue.Sub(stats.AccumDepr)
	return stats, nil
}

// MonthlyReconciliation builds the twelve-month headcount flow for a year.
// January's starting balance is the live count at the prior December 31;
// applyAdjustment folds any residual data gap into it so December's
// computed ending matches the live count.
func (s *Service) MonthlyReconciliation(ctx context.Context, tenantID string, year int, applyAdjustment bool) (*Reconciliation, error) {
	if year < 1900 || year > 2200 {
		return nil, fmt.Errorf("implausible reconciliation year %d", year)
	}

	janStart, err := s.repo.ActiveCountAt(ctx, tenantID, depreciation.EndOfMonth(year-1, time.December))
	if err != nil {
		return nil, err
	}
	additions, err := s.repo.MonthlyAdditions(ctx, tenantID, year)
	if err != nil {
		return nil, err
	}
	disposals, err := s.repo.MonthlyDisposals(ctx, tenantID, year)
	if err != nil {
		return nil, err
	}
	actual, err := s.repo.ActiveCountsByMonthEnd(ctx, tenantID, year)
	if err != nil {
		return nil, err
	}

	rows, adjustment := BuildReconciliation(janStart, additions, disposals, actual, applyAdjustment)
	return &Reconciliation{
		TenantID:       tenantID,
		Year:           year,
		YearAdjustment: adjustment,
		Rows:           rows,
	}, nil
}
