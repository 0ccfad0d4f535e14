package herd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/database"
)

// ErrCowNotFound is returned when a cow is not found.
var ErrCowNotFound = errors.New("cow not found")

// ErrDispositionNotFound is returned when a disposition is not found.
var ErrDispositionNotFound = errors.New("disposition not found")

// Repository defines the contract for herd data access.
type Repository interface {
	UpsertCow(ctx context.Context, c *Cow) error
	GetCow(ctx context.Context, cowID string) (*Cow, error)
	GetCowByTag(ctx context.Context, tenantID, tagNumber string) (*Cow, error)
	ListCows(ctx context.Context, tenantID string, status CowStatus) ([]Cow, error)

	// ListDepreciableCows returns cows freshened on or before asOf, with
	// DispositionDate populated from any disposition row.
	ListDepreciableCows(ctx context.Context, tenantID string, asOf time.Time) ([]Cow, error)

	UpdateCowStatus(ctx context.Context, cowID string, status CowStatus, currentValue decimal.Decimal, dispositionID *string) error
	EarliestFreshenDate(ctx context.Context, tenantID string) (*time.Time, error)
	CowIDsMissingAcquisition(ctx context.Context, tenantID string) ([]string, error)

	// DistinctTenantIDs lists every tenant with cows on the books, whether
	// or not the tenant ever saved settings.
	DistinctTenantIDs(ctx context.Context) ([]string, error)

	CreateDisposition(ctx context.Context, d *Disposition) error
	GetDisposition(ctx context.Context, id string) (*Disposition, error)
	DispositionForCow(ctx context.Context, cowID string) (*Disposition, error)
	SetDispositionResult(ctx context.Context, id, journalEntryID string, bookValue, gainLoss decimal.Decimal) error
	DeleteDisposition(ctx context.Context, id string) error
	DispositionsMissingEntry(ctx context.Context, tenantID string) ([]Disposition, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db database.Querier
}

// NewPostgresRepository creates a new PostgreSQL herd repository.
func NewPostgresRepository(db database.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertCow inserts a cow or updates it by (tenant, tag_number).
func (r *PostgresRepository) UpsertCow(ctx context.Context, c *Cow) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO cows (
			id, tenant_id, tag_number, freshen_date, purchase_price, salvage_value,
			acquisition_type, status, current_value, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tenant_id, tag_number) DO UPDATE
		SET freshen_date = $4, purchase_price = $5, salvage_value = $6,
		    acquisition_type = $7, updated_at = $11
	`,
		c.ID, c.TenantID, c.TagNumber, c.FreshenDate, c.PurchasePrice, c.SalvageValue,
		c.AcquisitionType, c.Status, c.CurrentValue, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert cow: %w", err)
	}
	return nil
}

const cowColumns = `
	c.id, c.tenant_id, c.tag_number, c.freshen_date, c.purchase_price, c.salvage_value,
	c.acquisition_type, c.status, c.current_value, c.disposition_id,
	d.disposition_date, c.created_at, c.updated_at`

const cowFrom = `
	FROM cows c
	LEFT JOIN dispositions d ON d.cow_id = c.id`

func scanCow(row pgx.Row) (*Cow, error) {
	var c Cow
	err := row.Scan(
		&c.ID, &c.TenantID, &c.TagNumber, &c.FreshenDate, &c.PurchasePrice, &c.SalvageValue,
		&c.AcquisitionType, &c.Status, &c.CurrentValue, &c.DispositionID,
		&c.DispositionDate, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCow retrieves a cow by ID.
func (r *PostgresRepository) GetCow(ctx context.Context, cowID string) (*Cow, error) {
	c, err := scanCow(r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s %s WHERE c.id = $1
	`, cowColumns, cowFrom), cowID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cow: %w", err)
	}
	return c, nil
}

// GetCowByTag retrieves a cow by its tenant-unique tag number.
func (r *PostgresRepository) GetCowByTag(ctx context.Context, tenantID, tagNumber string) (*Cow, error) {
	c, err := scanCow(r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s %s WHERE c.tenant_id = $1 AND c.tag_number = $2
	`, cowColumns, cowFrom), tenantID, tagNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cow by tag: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) listCows(ctx context.Context, query string, args ...any) ([]Cow, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cows: %w", err)
	}
	defer rows.Close()

	var cows []Cow
	for rows.Next() {
		c, err := scanCow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cow: %w", err)
		}
		cows = append(cows, *c)
	}
	return cows, nil
}

// ListCows retrieves a tenant's cows, optionally filtered by status.
func (r *PostgresRepository) ListCows(ctx context.Context, tenantID string, status CowStatus) ([]Cow, error) {
	if status != "" {
		return r.listCows(ctx, fmt.Sprintf(`
			SELECT %s %s WHERE c.tenant_id = $1 AND c.status = $2 ORDER BY c.tag_number
		`, cowColumns, cowFrom), tenantID, status)
	}
	return r.listCows(ctx, fmt.Sprintf(`
		SELECT %s %s WHERE c.tenant_id = $1 ORDER BY c.tag_number
	`, cowColumns, cowFrom), tenantID)
}

// ListDepreciableCows returns cows freshened on or before asOf.
func (r *PostgresRepository) ListDepreciableCows(ctx context.Context, tenantID string, asOf time.Time) ([]Cow, error) {
	return r.listCows(ctx, fmt.Sprintf(`
		SELECT %s %s WHERE c.tenant_id = $1 AND c.freshen_date <= $2 ORDER BY c.tag_number
	`, cowColumns, cowFrom), tenantID, asOf)
}

// UpdateCowStatus sets a cow's status, current value and disposition link.
func (r *PostgresRepository) UpdateCowStatus(ctx context.Context, cowID string, status CowStatus, currentValue decimal.Decimal, dispositionID *string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE cows SET status = $1, current_value = $2, disposition_id = $3, updated_at = $4
		WHERE id = $5
	`, status, currentValue, dispositionID, time.Now(), cowID)
	if err != nil {
		return fmt.Errorf("update cow status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCowNotFound
	}
	return nil
}

// EarliestFreshenDate returns the tenant's first service-entry date, or nil
// when the tenant has no cows.
func (r *PostgresRepository) EarliestFreshenDate(ctx context.Context, tenantID string) (*time.Time, error) {
	var earliest *time.Time
	err := r.db.QueryRow(ctx, `
		SELECT MIN(freshen_date) FROM cows WHERE tenant_id = $1
	`, tenantID).Scan(&earliest)
	if err != nil {
		return nil, fmt.Errorf("earliest freshen date: %w", err)
	}
	return earliest, nil
}

// CowIDsMissingAcquisition lists cows that have no acquisition entry yet.
func (r *PostgresRepository) CowIDsMissingAcquisition(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id FROM cows c
		WHERE c.tenant_id = $1 AND c.purchase_price > 0
		  AND NOT EXISTS (
			SELECT 1 FROM journal_lines jl
			JOIN journal_entries je ON jl.journal_entry_id = je.id
			WHERE jl.cow_id = c.id AND je.entry_type = 'acquisition'
		  )
		ORDER BY c.freshen_date
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("cows missing acquisition: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cow id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DistinctTenantIDs lists every tenant that owns at least one cow.
func (r *PostgresRepository) DistinctTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT tenant_id FROM cows ORDER BY tenant_id`)
	if err != nil {
		return nil, fmt.Errorf("distinct tenant ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CreateDisposition inserts a disposition. The unique constraint on cow_id
// enforces at most one per cow.
func (r *PostgresRepository) CreateDisposition(ctx context.Context, d *Disposition) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO dispositions (
			id, tenant_id, cow_id, disposition_date, disposition_type, sale_amount,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		d.ID, d.TenantID, d.CowID, d.DispositionDate, d.DispositionType, d.SaleAmount,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert disposition: %w", err)
	}
	return nil
}

const dispositionColumns = `
	id, tenant_id, cow_id, disposition_date, disposition_type, sale_amount,
	final_book_value, gain_loss, journal_entry_id, created_at, updated_at`

func scanDisposition(row pgx.Row) (*Disposition, error) {
	var d Disposition
	err := row.Scan(
		&d.ID, &d.TenantID, &d.CowID, &d.DispositionDate, &d.DispositionType, &d.SaleAmount,
		&d.FinalBookValue, &d.GainLoss, &d.JournalEntryID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDisposition retrieves a disposition by ID.
func (r *PostgresRepository) GetDisposition(ctx context.Context, id string) (*Disposition, error) {
	d, err := scanDisposition(r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM dispositions WHERE id = $1
	`, dispositionColumns), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDispositionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get disposition: %w", err)
	}
	return d, nil
}

// DispositionForCow retrieves the cow's disposition, if any.
func (r *PostgresRepository) DispositionForCow(ctx context.Context, cowID string) (*Disposition, error) {
	d, err := scanDisposition(r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM dispositions WHERE cow_id = $1
	`, dispositionColumns), cowID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDispositionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get disposition for cow: %w", err)
	}
	return d, nil
}

// SetDispositionResult writes back the derived fields after posting.
func (r *PostgresRepository) SetDispositionResult(ctx context.Context, id, journalEntryID string, bookValue, gainLoss decimal.Decimal) error {
	result, err := r.db.Exec(ctx, `
		UPDATE dispositions
		SET journal_entry_id = NULLIF($1, ''), final_book_value = $2, gain_loss = $3, updated_at = $4
		WHERE id = $5
	`, journalEntryID, bookValue, gainLoss, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set disposition result: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrDispositionNotFound
	}
	return nil
}

// DeleteDisposition removes a disposition row (reinstatement path).
func (r *PostgresRepository) DeleteDisposition(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM dispositions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete disposition: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrDispositionNotFound
	}
	return nil
}

// DispositionsMissingEntry lists dispositions that have not been posted yet.
func (r *PostgresRepository) DispositionsMissingEntry(ctx context.Context, tenantID string) ([]Disposition, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM dispositions
		WHERE tenant_id = $1 AND journal_entry_id IS NULL
		ORDER BY disposition_date
	`, dispositionColumns), tenantID)
	if err != nil {
		return nil, fmt.Errorf("dispositions missing entry: %w", err)
	}
	defer rows.Close()

	var ds []Disposition
	for rows.Next() {
		d, err := scanDisposition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan disposition: %w", err)
		}
		ds = append(ds, *d)
	}
	return ds, nil
}
