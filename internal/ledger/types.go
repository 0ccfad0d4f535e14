package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType classifies a journal entry.
type EntryType string

const (
	EntryAcquisition  EntryType = "acquisition"
	EntryDepreciation EntryType = "depreciation"
	EntryDisposition  EntryType = "disposition"
)

// Reversal returns the reversal variant of t.
func (t EntryType) Reversal() EntryType {
	return t + "_reversal"
}

// IsReversal reports whether t is a reversal variant.
func (t EntryType) IsReversal() bool {
	const suffix = "_reversal"
	s := string(t)
	return len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix
}

// EntryStatus is the posting status of an entry.
type EntryStatus string

const (
	StatusDraft  EntryStatus = "draft"
	StatusPosted EntryStatus = "posted"
)

// LineType marks which side of the entry a line sits on.
type LineType string

const (
	LineDebit  LineType = "debit"
	LineCredit LineType = "credit"
)

// JournalEntry is a double-entry journal header. Month/Year is the
// accounting period the entry reports under; SourceMonth/SourceYear is the
// period the entry economically belongs to. The two differ only for
// production-mode posting of past periods.
type JournalEntry struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	EntryDate   time.Time       `json:"entry_date"`
	Month       time.Month      `json:"month"`
	Year        int             `json:"year"`
	SourceMonth time.Month      `json:"source_month"`
	SourceYear  int             `json:"source_year"`
	EntryType   EntryType       `json:"entry_type"`
	Description string          `json:"description"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      EntryStatus     `json:"status"`
	Lines       []JournalLine   `json:"lines,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// JournalLine is one side of a double entry. Exactly one of Debit and
// Credit is non-zero.
type JournalLine struct {
	ID          string          `json:"id"`
	EntryID     string          `json:"journal_entry_id"`
	CowID       *string         `json:"cow_id,omitempty"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit_amount"`
	Credit      decimal.Decimal `json:"credit_amount"`
	LineType    LineType        `json:"line_type"`
}

// DebitLine builds a debit line against acct.
func DebitLine(entryID string, cowID *string, acct Account, desc string, amount decimal.Decimal) JournalLine {
	return JournalLine{
		ID:          uuid.New().String(),
		EntryID:     entryID,
		CowID:       cowID,
		AccountCode: acct.Code,
		AccountName: acct.Name,
		Description: desc,
		Debit:       amount,
		Credit:      decimal.Zero,
		LineType:    LineDebit,
	}
}

// CreditLine builds a credit line against acct.
func CreditLine(entryID string, cowID *string, acct Account, desc string, amount decimal.Decimal) JournalLine {
	return JournalLine{
		ID:          uuid.New().String(),
		EntryID:     entryID,
		CowID:       cowID,
		AccountCode: acct.Code,
		AccountName: acct.Name,
		Description: desc,
		Debit:       decimal.Zero,
		Credit:      amount,
		LineType:    LineCredit,
	}
}

// SumDebits returns the entry's total debits.
func (e *JournalEntry) SumDebits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

// SumCredits returns the entry's total credits.
func (e *JournalEntry) SumCredits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Credit)
	}
	return total
}

// Balanced reports whether debits equal credits.
func (e *JournalEntry) Balanced() bool {
	return e.SumDebits().Equal(e.SumCredits())
}

// Period is a (year, month) accounting period.
type Period struct {
	Year  int
	Month time.Month
}

// Before reports whether p precedes q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// Next returns the following period.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ProcessingStatus tracks a processing-log row's lifecycle.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingProcessing ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// ProcessingLog is the per-(tenant, period, type) poster audit row.
type ProcessingLog struct {
	TenantID      string           `json:"tenant_id"`
	Year          int              `json:"year"`
	Month         time.Month       `json:"month"`
	EntryType     EntryType        `json:"entry_type"`
	Status        ProcessingStatus `json:"status"`
	CowsProcessed int              `json:"cows_processed"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	StartedAt     time.Time        `json:"started_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// SweepResult reports what an invariant sweep removed.
type SweepResult struct {
	LinesDeleted    int `json:"lines_deleted"`
	EntriesDeleted  int `json:"entries_deleted"`
	EntriesAdjusted int `json:"entries_adjusted"`
}
