package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/database"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
)

// ErrSettingsNotFound is returned when a tenant has no settings row.
var ErrSettingsNotFound = errors.New("depreciation settings not found")

// Repository defines the contract for settings data access.
type Repository interface {
	Get(ctx context.Context, tenantID string) (*DepreciationSettings, error)
	Upsert(ctx context.Context, s *DepreciationSettings) error
	List(ctx context.Context) ([]DepreciationSettings, error)
	MarkHistoricalCompleted(ctx context.Context, tenantID string) error

	AccountOverrides(ctx context.Context, tenantID string) (map[ledger.AccountRole]ledger.Account, error)
	UpsertAccountOverride(ctx context.Context, tenantID string, role ledger.AccountRole, acct ledger.Account) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db database.Querier
}

// NewPostgresRepository creates a new PostgreSQL settings repository.
func NewPostgresRepository(db database.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const settingsColumns = `
	tenant_id, method, years, salvage_percent, round_to_dollar, include_partial_months,
	fiscal_year_start_month, journal_processing_day, processing_mode,
	historical_processing_completed, created_at, updated_at`

func scanSettings(row pgx.Row) (*DepreciationSettings, error) {
	var s DepreciationSettings
	err := row.Scan(
		&s.TenantID, &s.Method, &s.Years, &s.SalvagePercent, &s.RoundToDollar, &s.IncludePartialMonths,
		&s.FiscalYearStartMonth, &s.JournalProcessingDay, &s.ProcessingMode,
		&s.HistoricalCompleted, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get retrieves a tenant's settings.
func (r *PostgresRepository) Get(ctx context.Context, tenantID string) (*DepreciationSettings, error) {
	s, err := scanSettings(r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM depreciation_settings WHERE tenant_id = $1
	`, settingsColumns), tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

// Upsert saves a tenant's settings.
func (r *PostgresRepository) Upsert(ctx context.Context, s *DepreciationSettings) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO depreciation_settings (
			tenant_id, method, years, salvage_percent, round_to_dollar, include_partial_months,
			fiscal_year_start_month, journal_processing_day, processing_mode,
			historical_processing_completed, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (tenant_id) DO UPDATE
		SET method = $2, years = $3, salvage_percent = $4, round_to_dollar = $5,
		    include_partial_months = $6, fiscal_year_start_month = $7,
		    journal_processing_day = $8, processing_mode = $9,
		    historical_processing_completed = $10, updated_at = now()
	`,
		s.TenantID, s.Method, s.Years, s.SalvagePercent, s.RoundToDollar, s.IncludePartialMonths,
		s.FiscalYearStartMonth, s.JournalProcessingDay, s.ProcessingMode, s.HistoricalCompleted,
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// List retrieves every tenant's settings (scheduler fan-out).
func (r *PostgresRepository) List(ctx context.Context) ([]DepreciationSettings, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM depreciation_settings ORDER BY tenant_id
	`, settingsColumns))
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var all []DepreciationSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settings: %w", err)
		}
		all = append(all, *s)
	}
	return all, nil
}

// MarkHistoricalCompleted latches the historical-processing flag.
func (r *PostgresRepository) MarkHistoricalCompleted(ctx context.Context, tenantID string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE depreciation_settings
		SET historical_processing_completed = true, updated_at = $1
		WHERE tenant_id = $2
	`, time.Now(), tenantID)
	if err != nil {
		return fmt.Errorf("mark historical completed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSettingsNotFound
	}
	return nil
}

// AccountOverrides retrieves a tenant's chart-of-accounts overrides.
func (r *PostgresRepository) AccountOverrides(ctx context.Context, tenantID string) (map[ledger.AccountRole]ledger.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT role, code, name FROM account_overrides WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list account overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[ledger.AccountRole]ledger.Account)
	for rows.Next() {
		var role string
		var acct ledger.Account
		if err := rows.Scan(&role, &acct.Code, &acct.Name); err != nil {
			return nil, fmt.Errorf("scan account override: %w", err)
		}
		overrides[ledger.AccountRole(role)] = acct
	}
	return overrides, nil
}

// UpsertAccountOverride saves one role mapping.
func (r *PostgresRepository) UpsertAccountOverride(ctx context.Context, tenantID string, role ledger.AccountRole, acct ledger.Account) error {
	if !ledger.ValidRole(role) {
		return fmt.Errorf("unknown account role %q", role)
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO account_overrides (tenant_id, role, code, name, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (tenant_id, role) DO UPDATE SET code = $3, name = $4, updated_at = now()
	`, tenantID, role, acct.Code, acct.Name)
	if err != nil {
		return fmt.Errorf("upsert account override: %w", err)
	}
	return nil
}
