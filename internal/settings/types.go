package settings

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ProcessingMode controls which accounting period a poster dates its
// entries into. Historical mode dates an entry into the period it covers;
// production mode dates it into the current posting period and records the
// originating period on the entry.
type ProcessingMode string

const (
	ModeHistorical ProcessingMode = "historical"
	ModeProduction ProcessingMode = "production"
)

// Valid reports whether m is a known processing mode.
func (m ProcessingMode) Valid() bool {
	return m == ModeHistorical || m == ModeProduction
}

// DepreciationSettings is the per-tenant engine configuration. One row per
// tenant; a tenant without a row runs on Default values.
type DepreciationSettings struct {
	TenantID             string          `json:"tenant_id"`
	Method               string          `json:"method"`
	Years                int             `json:"years"`
	SalvagePercent       decimal.Decimal `json:"salvage_percent"`
	RoundToDollar        bool            `json:"round_to_dollar"`
	IncludePartialMonths bool            `json:"include_partial_months"`
	FiscalYearStartMonth int             `json:"fiscal_year_start_month"`
	JournalProcessingDay int             `json:"journal_processing_day"`
	ProcessingMode       ProcessingMode  `json:"processing_mode"`
	HistoricalCompleted  bool            `json:"historical_processing_completed"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Default returns the settings a tenant runs on before any row is saved.
func Default(tenantID string) *DepreciationSettings {
	return &DepreciationSettings{
		TenantID:             tenantID,
		Method:               "straight-line",
		Years:                5,
		SalvagePercent:       decimal.Zero,
		RoundToDollar:        false,
		IncludePartialMonths: true,
		FiscalYearStartMonth: 1,
		JournalProcessingDay: 5,
		ProcessingMode:       ModeHistorical,
	}
}

// Validate checks the settings ranges.
func (s *DepreciationSettings) Validate() error {
	if s.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if s.Method != "straight-line" {
		return errors.New("only straight-line depreciation is supported")
	}
	if s.Years < 1 || s.Years > 20 {
		return errors.New("years must be between 1 and 20")
	}
	if s.SalvagePercent.LessThan(decimal.Zero) || s.SalvagePercent.GreaterThan(decimal.NewFromInt(50)) {
		return errors.New("salvage percentage must be between 0 and 50")
	}
	if s.FiscalYearStartMonth < 1 || s.FiscalYearStartMonth > 12 {
		return errors.New("fiscal year start month must be between 1 and 12")
	}
	if s.JournalProcessingDay < 1 || s.JournalProcessingDay > 28 {
		return errors.New("journal processing day must be between 1 and 28")
	}
	if !s.ProcessingMode.Valid() {
		return errors.New("processing mode must be historical or production")
	}
	return nil
}
