package engine

import (
	"github.com/shopspring/decimal"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
)

// AcquisitionResult reports an acquisition posting.
type AcquisitionResult struct {
	CowID          string          `json:"cow_id"`
	EntryID        string          `json:"journal_entry_id,omitempty"`
	JournalCreated bool            `json:"journal_created"`
	Amount         decimal.Decimal `json:"amount"`
}

// MonthlyResult reports one monthly depreciation posting.
type MonthlyResult struct {
	Period         ledger.Period   `json:"-"`
	Year           int             `json:"year"`
	Month          int             `json:"month"`
	EntryID        string          `json:"journal_entry_id,omitempty"`
	JournalCreated bool            `json:"journal_created"`
	CowsProcessed  int             `json:"cows_processed"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	EntriesDeleted int             `json:"entries_deleted"`
}

// CatchUpResult reports a per-cow catch-up run.
type CatchUpResult struct {
	CowID        string          `json:"cow_id"`
	MonthsPosted int             `json:"months_posted"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// DispositionResult reports a disposition posting.
type DispositionResult struct {
	DispositionID   string             `json:"disposition_id"`
	EntryID         string             `json:"journal_entry_id,omitempty"`
	JournalCreated  bool               `json:"journal_created"`
	AccumulatedDepr decimal.Decimal    `json:"accumulated_depreciation"`
	PartialAmount   decimal.Decimal    `json:"partial_month_depreciation"`
	BookValue       decimal.Decimal    `json:"final_book_value"`
	GainLoss        decimal.Decimal    `json:"gain_loss"`
	CatchUpMonths   int                `json:"catch_up_months"`
	Swept           ledger.SweepResult `json:"swept"`
}

// ReversalResult reports a manual entry reversal.
type ReversalResult struct {
	OriginalEntryID string `json:"original_entry_id"`
	ReversalEntryID string `json:"reversal_entry_id"`
}

// ReinstateResult reports a disposition reinstatement.
type ReinstateResult struct {
	CowID           string `json:"cow_id"`
	ReversalEntryID string `json:"reversal_entry_id,omitempty"`
	MonthsPosted    int    `json:"months_posted"`
}

// YearSummary aggregates one calendar year of a historical run.
type YearSummary struct {
	Year            int             `json:"year"`
	MonthsProcessed int             `json:"months_processed"`
	MonthsSkipped   int             `json:"months_skipped"`
	CowsProcessed   int             `json:"cows_processed"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Errors          []string        `json:"errors,omitempty"`
}

// HistoricalResult reports a full historical-processing run.
type HistoricalResult struct {
	TenantID           string        `json:"tenant_id"`
	AcquisitionsPosted int           `json:"acquisitions_posted"`
	DispositionsPosted int           `json:"dispositions_posted"`
	Years              []YearSummary `json:"years"`
	Errors             []string      `json:"errors,omitempty"`
}

// MissingJournalsResult reports a gap-repair run.
type MissingJournalsResult struct {
	TenantID  string   `json:"tenant_id"`
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Truncated bool     `json:"truncated"`
	Errors    []string `json:"errors,omitempty"`
}
