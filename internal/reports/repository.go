package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/database"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/herd"
)

// Repository defines the contract for report queries.
type Repository interface {
	// ActiveStats returns the live count and summed current value of
	// active cows.
	ActiveStats(ctx context.Context, tenantID string) (int, decimal.Decimal, error)

	// LedgerBalance sums a tenant's debits and credits against one
	// account code across all journal entries.
	LedgerBalance(ctx context.Context, tenantID, accountCode string) (debits, credits decimal.Decimal, err error)

	// LedgerBalanceSince is LedgerBalance restricted to entries dated on
	// or after from.
	LedgerBalanceSince(ctx context.Context, tenantID, accountCode string, from time.Time) (debits, credits decimal.Decimal, err error)

	// ActiveCountAt counts cows in service as of a date: freshened on or
	// before it and not yet disposed.
	ActiveCountAt(ctx context.Context, tenantID string, asOf time.Time) (int, error)

	// MonthlyAdditions counts cows by freshen month within a year.
	MonthlyAdditions(ctx context.Context, tenantID string, year int) (map[time.Month]int, error)

	// MonthlyDisposals counts dispositions by month and type within a year.
	MonthlyDisposals(ctx context.Context, tenantID string, year int) (map[time.Month]map[herd.DispositionType]int, error)

	// ActiveCountsByMonthEnd returns the live active count at each month
	// end of a year.
	ActiveCountsByMonthEnd(ctx context.Context, tenantID string, year int) (map[time.Month]int, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db database.Querier
}

// NewPostgresRepository creates a new PostgreSQL reports repository.
func NewPostgresRepository(db database.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ActiveStats returns the live active-cow count and value.
func (r *PostgresRepository) ActiveStats(ctx context.Context, tenantID string) (int, decimal.Decimal, error) {
	var count int
	var value decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(current_value), 0)
		FROM cows
		WHERE tenant_id = $1 AND status = 'active'
	`, tenantID).Scan(&count, &value)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("active stats: %w", err)
	}
	return count, value, nil
}

// LedgerBalance sums all-time debits and credits for one account.
func (r *PostgresRepository) LedgerBalance(ctx context.Context, tenantID, accountCode string) (decimal.Decimal, decimal.Decimal, error) {
	var debits, credits decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(jl.debit_amount), 0), COALESCE(SUM(jl.credit_amount), 0)
		FROM journal_lines jl
		JOIN journal_entries je ON jl.journal_entry_id = je.id
		WHERE je.tenant_id = $1 AND jl.account_code = $2
	`, tenantID, accountCode).Scan(&debits, &credits)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("ledger balance: %w", err)
	}
	return debits, credits, nil
}

// LedgerBalanceSince sums debits and credits for one account from a date.
func (r *PostgresRepository) LedgerBalanceSince(ctx context.Context, tenantID, accountCode string, from time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var debits, credits decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(jl.debit_amount), 0), COALESCE(SUM(jl.credit_amount), 0)
		FROM journal_lines jl
		JOIN journal_entries je ON jl.journal_entry_id = je.id
		WHERE je.tenant_id = $1 AND jl.account_code = $2 AND je.entry_date >= $3
	`, tenantID, accountCode, from).Scan(&debits, &credits)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("ledger balance since: %w", err)
	}
	return debits, credits, nil
}

// ActiveCountAt counts cows in service as of a date.
func (r *PostgresRepository) ActiveCountAt(ctx context.Context, tenantID string, asOf time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM cows c
		WHERE c.tenant_id = $1 AND c.freshen_date <= $2
		  AND NOT EXISTS (
			SELECT 1 FROM dispositions d
			WHERE d.cow_id = c.id AND d.disposition_date <= $2
		  )
	`, tenantID, asOf).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("active count at: %w", err)
	}
	return count, nil
}

// MonthlyAdditions counts freshenings per month of a year.
func (r *PostgresRepository) MonthlyAdditions(ctx context.Context, tenantID string, year int) (map[time.Month]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT EXTRACT(MONTH FROM freshen_date)::int, COUNT(*)
		FROM cows
		WHERE tenant_id = $1 AND EXTRACT(YEAR FROM freshen_date) = $2
		GROUP BY 1
	`, tenantID, year)
	if err != nil {
		return nil, fmt.Errorf("monthly additions: %w", err)
	}
	defer rows.Close()

	out := make(map[time.Month]int)
	for rows.Next() {
		var month, count int
		if err := rows.Scan(&month, &count); err != nil {
			return nil, fmt.Errorf("scan monthly additions: %w", err)
		}
		out[time.Month(month)] = count
	}
	return out, nil
}

// MonthlyDisposals counts dispositions per month and type of a year.
func (r *PostgresRepository) MonthlyDisposals(ctx context.Context, tenantID string, year int) (map[time.Month]map[herd.DispositionType]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT EXTRACT(MONTH FROM disposition_date)::int, disposition_type, COUNT(*)
		FROM dispositions
		WHERE tenant_id = $1 AND EXTRACT(YEAR FROM disposition_date) = $2
		GROUP BY 1, 2
	`, tenantID, year)
	if err != nil {
		return nil, fmt.Errorf("monthly disposals: %w", err)
	}
	defer rows.Close()

	out := make(map[time.Month]map[herd.DispositionType]int)
	for rows.Next() {
		var month, count int
		var dtype herd.DispositionType
		if err := rows.Scan(&month, &dtype, &count); err != nil {
			return nil, fmt.Errorf("scan monthly disposals: %w", err)
		}
		m := time.Month(month)
		if out[m] == nil {
			out[m] = make(map[herd.DispositionType]int)
		}
		out[m][dtype] = count
	}
	return out, nil
}

// ActiveCountsByMonthEnd returns the live count at each month end of a year.
func (r *PostgresRepository) ActiveCountsByMonthEnd(ctx context.Context, tenantID string, year int) (map[time.Month]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT gs.m, COUNT(c.id) FILTER (WHERE c.id IS NOT NULL AND d.id IS NULL)
		FROM generate_series(1, 12) AS gs(m)
		CROSS JOIN LATERAL (
			SELECT (make_date($2::int, gs.m::int, 1) + interval '1 month' - interval '1 day')::date AS month_end
		) me
		LEFT JOIN cows c ON c.tenant_id = $1 AND c.freshen_date <= me.month_end
		LEFT JOIN dispositions d ON d.cow_id = c.id AND d.disposition_date <= me.month_end
		GROUP BY gs.m
		ORDER BY gs.m
	`, tenantID, year)
	if err != nil {
		return nil, fmt.Errorf("active counts by month end: %w", err)
	}
	defer rows.Close()

	out := make(map[time.Month]int)
	for rows.Next() {
		var month, count int
		if err := rows.Scan(&month, &count); err != nil {
			return nil, fmt.Errorf("scan month-end count: %w", err)
		}
		out[time.Month(month)] = count
	}
	return out, nil
}
