package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/database"
)

// ErrEntryNotFound is returned when a journal entry is not found.
var ErrEntryNotFound = errors.New("journal entry not found")

// Repository defines the contract for journal data access.
type Repository interface {
	CreateEntry(ctx context.Context, e *JournalEntry) error
	GetEntry(ctx context.Context, entryID string) (*JournalEntry, error)
	DeleteEntry(ctx context.Context, entryID string) error

	// FindDepreciationEntry locates the depreciation entry for a source
	// period dated entryDate (end of month for the regular monthly entry,
	// a disposition date for a partial entry).
	FindDepreciationEntry(ctx context.Context, tenantID string, source Period, entryDate time.Time) (*JournalEntry, error)

	// LatestDepreciationEntryForSource returns the newest depreciation
	// entry recorded for a source period, regardless of the date it was
	// posted under.
	LatestDepreciationEntryForSource(ctx context.Context, tenantID string, source Period) (*JournalEntry, error)

	// DeleteDepreciationEntries removes depreciation entries for a source
	// period dated notBefore or later. Partial entries dated inside the
	// month survive a monthly re-post.
	DeleteDepreciationEntries(ctx context.Context, tenantID string, source Period, notBefore time.Time) (int, error)

	AcquisitionEntryID(ctx context.Context, cowID string) (string, error)

	AddLines(ctx context.Context, lines []JournalLine) error
	DeleteCowLines(ctx context.Context, entryID, cowID string) (int, error)
	HasCowLines(ctx context.Context, entryID, cowID string) (bool, error)
	SetEntryTotal(ctx context.Context, entryID string, total decimal.Decimal) error

	// AccumulatedDepreciation sums accumulated-depreciation credits minus
	// debits for a cow over depreciation entries (and their reversals)
	// dated through or earlier.
	AccumulatedDepreciation(ctx context.Context, cowID, accumCode string, through time.Time) (decimal.Decimal, error)
	LastDepreciationDate(ctx context.Context, cowID, accumCode string) (*time.Time, error)

	// SweepDepreciationAfter deletes depreciation lines for a cow dated
	// after the given date, fixes parent totals, and removes entries left
	// empty. This is the post-disposition invariant cleanup.
	SweepDepreciationAfter(ctx context.Context, cowID string, after time.Time) (SweepResult, error)

	DepreciationSourcePeriods(ctx context.Context, tenantID string) (map[Period]bool, error)

	StartProcessingLog(ctx context.Context, tenantID string, p Period, entryType EntryType) error
	FinishProcessingLog(ctx context.Context, log *ProcessingLog) error
	ListProcessingLogs(ctx context.Context, tenantID string) ([]ProcessingLog, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db database.Querier
}

// NewPostgresRepository creates a new PostgreSQL journal repository.
func NewPostgresRepository(db database.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateEntry inserts an entry header and its lines in one batch.
func (r *PostgresRepository) CreateEntry(ctx context.Context, e *JournalEntry) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO journal_entries (
			id, tenant_id, entry_date, month, year, source_month, source_year,
			entry_type, description, total_amount, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		e.ID, e.TenantID, e.EntryDate, int(e.Month), e.Year, int(e.SourceMonth), e.SourceYear,
		e.EntryType, e.Description, e.TotalAmount, e.Status, e.CreatedAt, e.UpdatedAt,
	)
	for _, l := range e.Lines {
		batch.Queue(`
			INSERT INTO journal_lines (
				id, journal_entry_id, cow_id, account_code, account_name,
				description, debit_amount, credit_amount, line_type
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			l.ID, e.ID, l.CowID, l.AccountCode, l.AccountName,
			l.Description, l.Debit, l.Credit, l.LineType,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert entry batch step %d: %w", i, err)
		}
	}
	return nil
}

const entryColumns = `
	id, tenant_id, entry_date, month, year, source_month, source_year,
	entry_type, description, total_amount, status, created_at, updated_at`

func scanEntry(row pgx.Row) (*JournalEntry, error) {
	var e JournalEntry
	var month, sourceMonth int
	err := row.Scan(
		&e.ID, &e.TenantID, &e.EntryDate, &month, &e.Year, &sourceMonth, &e.SourceYear,
		&e.EntryType, &e.Description, &e.TotalAmount, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Month = time.Month(month)
	e.SourceMonth = time.Month(sourceMonth)
	return &e, nil
}

// GetEntry retrieves an entry with its lines.
func (r *PostgresRepository) GetEntry(ctx context.Context, entryID string) (*JournalEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM journal_entries WHERE id = $1
	`, entryColumns), entryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, journal_entry_id, cow_id, account_code, account_name,
		       COALESCE(description, ''), debit_amount, credit_amount, line_type
		FROM journal_lines
		WHERE journal_entry_id = $1
		ORDER BY line_type, account_code
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("get entry lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(
			&l.ID, &l.EntryID, &l.CowID, &l.AccountCode, &l.AccountName,
			&l.Description, &l.Debit, &l.Credit, &l.LineType,
		); err != nil {
			return nil, fmt.Errorf("scan entry line: %w", err)
		}
		e.Lines = append(e.Lines, l)
	}
	return e, nil
}

// DeleteEntry removes an entry; lines cascade.
func (r *PostgresRepository) DeleteEntry(ctx context.Context, entryID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM journal_entries WHERE id = $1`, entryID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// FindDepreciationEntry locates a depreciation entry by source period and date.
func (r *PostgresRepository) FindDepreciationEntry(ctx context.Context, tenantID string, source Period, entryDate time.Time) (*JournalEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM journal_entries
		WHERE tenant_id = $1 AND entry_type = 'depreciation'
		  AND source_year = $2 AND source_month = $3 AND entry_date = $4
	`, entryColumns), tenantID, source.Year, int(source.Month), entryDate))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find depreciation entry: %w", err)
	}
	return e, nil
}

// LatestDepreciationEntryForSource returns the newest depreciation entry
// for a source period.
func (r *PostgresRepository) LatestDepreciationEntryForSource(ctx context.Context, tenantID string, source Period) (*JournalEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM journal_entries
		WHERE tenant_id = $1 AND entry_type = 'depreciation'
		  AND source_year = $2 AND source_month = $3
		ORDER BY entry_date DESC
		LIMIT 1
	`, entryColumns), tenantID, source.Year, int(source.Month)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest depreciation entry: %w", err)
	}
	return e, nil
}

// DeleteDepreciationEntries removes a source period's depreciation entries
// dated notBefore or later.
func (r *PostgresRepository) DeleteDepreciationEntries(ctx context.Context, tenantID string, source Period, notBefore time.Time) (int, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM journal_entries
		WHERE tenant_id = $1 AND entry_type = 'depreciation'
		  AND source_year = $2 AND source_month = $3 AND entry_date >= $4
	`, tenantID, source.Year, int(source.Month), notBefore)
	if err != nil {
		return 0, fmt.Errorf("delete depreciation entries: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// AcquisitionEntryID finds the acquisition entry posted for a cow.
func (r *PostgresRepository) AcquisitionEntryID(ctx context.Context, cowID string) (string, error) {
	var id string
	err := r.db.QueryRow(ctx, `
		SELECT je.id
		FROM journal_entries je
		JOIN journal_lines jl ON jl.journal_entry_id = je.id
		WHERE jl.cow_id = $1 AND je.entry_type = 'acquisition'
		LIMIT 1
	`, cowID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrEntryNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find acquisition entry: %w", err)
	}
	return id, nil
}

// AddLines appends lines to their entries.
func (r *PostgresRepository) AddLines(ctx context.Context, lines []JournalLine) error {
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`
			INSERT INTO journal_lines (
				id, journal_entry_id, cow_id, account_code, account_name,
				description, debit_amount, credit_amount, line_type
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			l.ID, l.EntryID, l.CowID, l.AccountCode, l.AccountName,
			l.Description, l.Debit, l.Credit, l.LineType,
		)
	}
	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert line %d: %w", i, err)
		}
	}
	return nil
}

// DeleteCowLines removes a cow's lines from one entry.
func (r *PostgresRepository) DeleteCowLines(ctx context.Context, entryID, cowID string) (int, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM journal_lines WHERE journal_entry_id = $1 AND cow_id = $2
	`, entryID, cowID)
	if err != nil {
		return 0, fmt.Errorf("delete cow lines: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// HasCowLines reports whether an entry already carries lines for a cow.
func (r *PostgresRepository) HasCowLines(ctx context.Context, entryID, cowID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM journal_lines WHERE journal_entry_id = $1 AND cow_id = $2
		)
	`, entryID, cowID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check cow lines: %w", err)
	}
	return exists, nil
}

// SetEntryTotal updates an entry's total amount.
func (r *PostgresRepository) SetEntryTotal(ctx context.Context, entryID string, total decimal.Decimal) error {
	result, err := r.db.Exec(ctx, `
		UPDATE journal_entries SET total_amount = $1, updated_at = $2 WHERE id = $3
	`, total, time.Now(), entryID)
	if err != nil {
		return fmt.Errorf("set entry total: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// AccumulatedDepreciation sums a cow's accumulated-depreciation balance
// through a date.
func (r *PostgresRepository) AccumulatedDepreciation(ctx context.Context, cowID, accumCode string, through time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(jl.credit_amount - jl.debit_amount), 0)
		FROM journal_lines jl
		JOIN journal_entries je ON jl.journal_entry_id = je.id
		WHERE jl.cow_id = $1 AND jl.account_code = $2
		  AND je.entry_type IN ('depreciation', 'depreciation_reversal')
		  AND je.entry_date <= $3
	`, cowID, accumCode, through).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum accumulated depreciation: %w", err)
	}
	return total, nil
}

// LastDepreciationDate returns the date of the cow's latest depreciation credit.
func (r *PostgresRepository) LastDepreciationDate(ctx context.Context, cowID, accumCode string) (*time.Time, error) {
	var last *time.Time
	err := r.db.QueryRow(ctx, `
		SELECT MAX(je.entry_date)
		FROM journal_lines jl
		JOIN journal_entries je ON jl.journal_entry_id = je.id
		WHERE jl.cow_id = $1 AND jl.account_code = $2
		  AND jl.credit_amount > 0 AND je.entry_type = 'depreciation'
	`, cowID, accumCode).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("last depreciation date: %w", err)
	}
	return last, nil
}

// SweepDepreciationAfter enforces the no-post-disposition-depreciation rule.
func (r *PostgresRepository) SweepDepreciationAfter(ctx context.Context, cowID string, after time.Time) (SweepResult, error) {
	var res SweepResult

	rows, err := r.db.Query(ctx, `
		DELETE FROM journal_lines jl
		USING journal_entries je
		WHERE jl.journal_entry_id = je.id
		  AND jl.cow_id = $1
		  AND je.entry_type = 'depreciation'
		  AND je.entry_date > $2
		RETURNING je.id
	`, cowID, after)
	if err != nil {
		return res, fmt.Errorf("sweep depreciation lines: %w", err)
	}
	touched := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return res, fmt.Errorf("scan swept entry id: %w", err)
		}
		touched[id] = true
		res.LinesDeleted++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("sweep depreciation lines: %w", err)
	}
	if len(touched) == 0 {
		return res, nil
	}

	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}

	result, err := r.db.Exec(ctx, `
		DELETE FROM journal_entries je
		WHERE je.id = ANY($1)
		  AND NOT EXISTS (SELECT 1 FROM journal_lines WHERE journal_entry_id = je.id)
	`, ids)
	if err != nil {
		return res, fmt.Errorf("delete emptied entries: %w", err)
	}
	res.EntriesDeleted = int(result.RowsAffected())

	result, err = r.db.Exec(ctx, `
		UPDATE journal_entries je
		SET total_amount = (
			SELECT COALESCE(SUM(debit_amount), 0) FROM journal_lines WHERE journal_entry_id = je.id
		), updated_at = now()
		WHERE je.id = ANY($1)
	`, ids)
	if err != nil {
		return res, fmt.Errorf("adjust entry totals: %w", err)
	}
	res.EntriesAdjusted = int(result.RowsAffected())
	return res, nil
}

// DepreciationSourcePeriods lists the source periods a tenant has
// depreciation entries for.
func (r *PostgresRepository) DepreciationSourcePeriods(ctx context.Context, tenantID string) (map[Period]bool, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT source_year, source_month
		FROM journal_entries
		WHERE tenant_id = $1 AND entry_type = 'depreciation'
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list depreciation periods: %w", err)
	}
	defer rows.Close()

	periods := make(map[Period]bool)
	for rows.Next() {
		var year, month int
		if err := rows.Scan(&year, &month); err != nil {
			return nil, fmt.Errorf("scan depreciation period: %w", err)
		}
		periods[Period{Year: year, Month: time.Month(month)}] = true
	}
	return periods, nil
}

// StartProcessingLog upserts a processing-log row into the processing state.
func (r *PostgresRepository) StartProcessingLog(ctx context.Context, tenantID string, p Period, entryType EntryType) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO monthly_processing_log (tenant_id, year, month, entry_type, status, started_at)
		VALUES ($1, $2, $3, $4, 'processing', now())
		ON CONFLICT (tenant_id, year, month, entry_type) DO UPDATE
		SET status = 'processing', started_at = now(), error_message = NULL, completed_at = NULL
	`, tenantID, p.Year, int(p.Month), entryType)
	if err != nil {
		return fmt.Errorf("start processing log: %w", err)
	}
	return nil
}

// FinishProcessingLog records a poster's outcome.
func (r *PostgresRepository) FinishProcessingLog(ctx context.Context, log *ProcessingLog) error {
	var errMsg *string
	if log.ErrorMessage != "" {
		errMsg = &log.ErrorMessage
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO monthly_processing_log (tenant_id, year, month, entry_type, status,
			cows_processed, total_amount, error_message, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (tenant_id, year, month, entry_type) DO UPDATE
		SET status = $5, cows_processed = $6, total_amount = $7,
		    error_message = $8, completed_at = now()
	`, log.TenantID, log.Year, int(log.Month), log.EntryType, log.Status,
		log.CowsProcessed, log.TotalAmount, errMsg)
	if err != nil {
		return fmt.Errorf("finish processing log: %w", err)
	}
	return nil
}

// ListProcessingLogs retrieves a tenant's processing history, newest first.
func (r *PostgresRepository) ListProcessingLogs(ctx context.Context, tenantID string) ([]ProcessingLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT tenant_id, year, month, entry_type, status, cows_processed,
		       total_amount, COALESCE(error_message, ''), started_at, completed_at
		FROM monthly_processing_log
		WHERE tenant_id = $1
		ORDER BY year DESC, month DESC, entry_type
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list processing logs: %w", err)
	}
	defer rows.Close()

	var logs []ProcessingLog
	for rows.Next() {
		var l ProcessingLog
		var month int
		if err := rows.Scan(
			&l.TenantID, &l.Year, &month, &l.EntryType, &l.Status, &l.CowsProcessed,
			&l.TotalAmount, &l.ErrorMessage, &l.StartedAt, &l.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan processing log: %w", err)
		}
		l.Month = time.Month(month)
		logs = append(logs, l)
	}
	return logs, nil
}
