package database

import (
	"context"
	"fmt"
)

const createSettingsTable = `
	CREATE TABLE IF NOT EXISTS depreciation_settings (
		tenant_id TEXT PRIMARY KEY,
		method TEXT NOT NULL DEFAULT 'straight-line',
		years INT NOT NULL DEFAULT 5 CHECK (years BETWEEN 1 AND 20),
		salvage_percent NUMERIC(5,2) NOT NULL DEFAULT 0 CHECK (salvage_percent BETWEEN 0 AND 50),
		round_to_dollar BOOLEAN NOT NULL DEFAULT false,
		include_partial_months BOOLEAN NOT NULL DEFAULT true,
		fiscal_year_start_month INT NOT NULL DEFAULT 1 CHECK (fiscal_year_start_month BETWEEN 1 AND 12),
		journal_processing_day INT NOT NULL DEFAULT 5 CHECK (journal_processing_day BETWEEN 1 AND 28),
		processing_mode TEXT NOT NULL DEFAULT 'historical' CHECK (processing_mode IN ('historical', 'production')),
		historical_processing_completed BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`

const createAccountOverridesTable = `
	CREATE TABLE IF NOT EXISTS account_overrides (
		tenant_id TEXT NOT NULL,
		role TEXT NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (tenant_id, role)
	);`

const createCowsTable = `
	CREATE TABLE IF NOT EXISTS cows (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		tag_number TEXT NOT NULL,
		freshen_date DATE NOT NULL,
		purchase_price NUMERIC(14,2) NOT NULL CHECK (purchase_price >= 0),
		salvage_value NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (salvage_value >= 0),
		acquisition_type TEXT NOT NULL CHECK (acquisition_type IN ('purchased', 'raised')),
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'sold', 'deceased')),
		current_value NUMERIC(14,2) NOT NULL DEFAULT 0,
		disposition_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (tenant_id, tag_number)
	);

	CREATE INDEX IF NOT EXISTS idx_cows_tenant_status ON cows (tenant_id, status);
	CREATE INDEX IF NOT EXISTS idx_cows_tenant_freshen ON cows (tenant_id, freshen_date);`

const createDispositionsTable = `
	CREATE TABLE IF NOT EXISTS dispositions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		cow_id TEXT NOT NULL UNIQUE REFERENCES cows(id),
		disposition_date DATE NOT NULL,
		disposition_type TEXT NOT NULL CHECK (disposition_type IN ('sale', 'death', 'culled')),
		sale_amount NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (sale_amount >= 0),
		final_book_value NUMERIC(14,2),
		gain_loss NUMERIC(14,2),
		journal_entry_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_dispositions_tenant_date ON dispositions (tenant_id, disposition_date);`

const createJournalEntriesTable = `
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		entry_date DATE NOT NULL,
		month INT NOT NULL CHECK (month BETWEEN 1 AND 12),
		year INT NOT NULL,
		source_month INT NOT NULL CHECK (source_month BETWEEN 1 AND 12),
		source_year INT NOT NULL,
		entry_type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		total_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'posted' CHECK (status IN ('draft', 'posted')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_journal_entries_tenant_period ON journal_entries (tenant_id, year, month);
	CREATE INDEX IF NOT EXISTS idx_journal_entries_tenant_type ON journal_entries (tenant_id, entry_type, year DESC, month DESC);
	CREATE UNIQUE INDEX IF NOT EXISTS uq_journal_entries_depreciation
		ON journal_entries (tenant_id, source_year, source_month, entry_date)
		WHERE entry_type = 'depreciation';`

const createJournalLinesTable = `
	CREATE TABLE IF NOT EXISTS journal_lines (
		id TEXT PRIMARY KEY,
		journal_entry_id TEXT NOT NULL REFERENCES journal_entries(id) ON DELETE CASCADE,
		cow_id TEXT,
		account_code TEXT NOT NULL,
		account_name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		debit_amount NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (debit_amount >= 0),
		credit_amount NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (credit_amount >= 0),
		line_type TEXT NOT NULL CHECK (line_type IN ('debit', 'credit')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK ((debit_amount > 0) <> (credit_amount > 0))
	);

	CREATE INDEX IF NOT EXISTS idx_journal_lines_entry ON journal_lines (journal_entry_id);
	CREATE INDEX IF NOT EXISTS idx_journal_lines_cow ON journal_lines (cow_id);`

const createProcessingLogTable = `
	CREATE TABLE IF NOT EXISTS monthly_processing_log (
		tenant_id TEXT NOT NULL,
		year INT NOT NULL,
		month INT NOT NULL CHECK (month BETWEEN 1 AND 12),
		entry_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
		cows_processed INT NOT NULL DEFAULT 0,
		total_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		error_message TEXT,
		started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ,
		PRIMARY KEY (tenant_id, year, month, entry_type)
	);`

var migrations = []string{
	createSettingsTable,
	createAccountOverridesTable,
	createCowsTable,
	createDispositionsTable,
	createJournalEntriesTable,
	createJournalLinesTable,
	createProcessingLogTable,
}

// Migrate applies the schema. Statements are idempotent so this is safe to
// run on every startup.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range migrations {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
