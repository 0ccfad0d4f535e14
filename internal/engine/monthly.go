package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/depreciation"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/settings"
)

// PostMonthlyDepreciation posts one combined depreciation entry for every
// eligible cow in a period. Re-running deletes the period's monthly entries
// (partial-month entries dated inside the month survive) and rebuilds from
// the schedule, so the result is identical no matter how many times it runs.
//
// mode "" uses the tenant's configured processing mode. force re-posts a
// period that already has an entry.
func (e *Engine) PostMonthlyDepreciation(ctx context.Context, tenantID string, period ledger.Period, mode settings.ProcessingMode, force bool) (*MonthlyResult, error) {
	res := &MonthlyResult{
		Period:      period,
		Year:        period.Year,
		Month:       int(period.Month),
		TotalAmount: decimal.Zero,
	}
	eom := depreciation.EndOfMonth(period.Year, period.Month)

	err := e.store.InTenantTx(ctx, tenantID, func(ctx context.Context, r Repos) error {
		set, err := settingsFor(ctx, r, tenantID)
		if err != nil {
			return err
		}
		if mode == "" {
			mode = set.ProcessingMode
		}

		if !force {
			existing, err := r.Journal.LatestDepreciationEntryForSource(ctx, tenantID, period)
			if err == nil && !existing.EntryDate.Before(eom) {
				res.EntryID = existing.ID
				res.TotalAmount = existing.TotalAmount
				return nil
			}
			if err != nil && !errors.Is(err, ledger.ErrEntryNotFound) {
				return err
			}
		}

		if err := r.Journal.StartProcessingLog(ctx, tenantID, period, ledger.EntryDepreciation); err != nil {
			return err
		}

		deleted, err := r.Journal.DeleteDepreciationEntries(ctx, tenantID, period, eom)
		if err != nil {
			return err
		}
		res.EntriesDeleted = deleted

		chart, err := chartFor(ctx, r, tenantID)
		if err != nil {
			return err
		}
		cows, err := r.Cows.ListDepreciableCows(ctx, tenantID, eom)
		if err != nil {
			return err
		}

		expense := chart.Resolve(ledger.RoleDeprExpense)
		accum := chart.Resolve(ledger.RoleAccumDepr)
		entryID := newID()
		var lines []ledger.JournalLine
		total := decimal.Zero
		count := 0
		for _, c := range cows {
			// A cow disposed before month end earned its share through the
			// partial-month entry; one disposed on the last day keeps the
			// full month.
			if c.DispositionDate != nil && c.DispositionDate.Before(eom) {
				continue
			}
			amount := depreciation.MonthlyAmount(
				c.PurchasePrice, c.SalvageValue, c.FreshenDate, eom, set.Years, set.RoundToDollar,
			)
			if amount.LessThanOrEqual(decimal.Zero) {
				continue
			}
			cid := c.ID
			desc := fmt.Sprintf("Depreciation - cow #%s", c.TagNumber)
			lines = append(lines,
				ledger.DebitLine(entryID, &cid, expense, desc, amount),
				ledger.CreditLine(entryID, &cid, accum, desc, amount),
			)
			total = total.Add(amount)
			count++
		}
		res.CowsProcessed = count
		res.TotalAmount = total

		if count == 0 {
			return r.Journal.FinishProcessingLog(ctx, &ledger.ProcessingLog{
				TenantID: tenantID, Year: period.Year, Month: period.Month,
				EntryType: ledger.EntryDepreciation, Status: ledger.ProcessingCompleted,
				TotalAmount: decimal.Zero,
			})
		}

		now := e.now().UTC()
		entryDate := eom
		entryPeriod := period
		desc := fmt.Sprintf("Monthly depreciation - %s %d", period.Month, period.Year)
		if mode == settings.ModeProduction {
			entryDate = e.today()
			entryPeriod = ledger.PeriodOf(entryDate)
			if entryPeriod != period {
				desc = fmt.Sprintf("Monthly depreciation - %s %d (posted %s %d)",
					period.Month, period.Year, entryPeriod.Month, entryPeriod.Year)
			}
		}

		entry := &ledger.JournalEntry{
			ID:          entryID,
			TenantID:    tenantID,
			EntryDate:   entryDate,
			Month:       entryPeriod.Month,
			Year:        entryPeriod.Year,
			SourceMonth: period.Month,
			SourceYear:  period.Year,
			EntryType:   ledger.EntryDepreciation,
			Description: desc,
			TotalAmount: total,
			Status:      ledger.StatusPosted,
			Lines:       lines,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if !entry.Balanced() {
			e.log.Error().
				Str("tenant_id", tenantID).
				Int("year", period.Year).Int("month", int(period.Month)).
				Msg("monthly depreciation entry unbalanced")
			return ErrUnbalancedEntry
		}
		if err := r.Journal.CreateEntry(ctx, entry); err != nil {
			return err
		}
		res.EntryID = entryID
		res.JournalCreated = true

		return r.Journal.FinishProcessingLog(ctx, &ledger.ProcessingLog{
			TenantID: tenantID, Year: period.Year, Month: period.Month,
			EntryType: ledger.EntryDepreciation, Status: ledger.ProcessingCompleted,
			CowsProcessed: count, TotalAmount: total,
		})
	})
	if err != nil {
		e.failProcessingLog(ctx, tenantID, period, err)
		return nil, err
	}
	if res.JournalCreated {
		e.log.Info().
			Str("tenant_id", tenantID).
			Int("year", period.Year).Int("month", int(period.Month)).
			Int("cows", res.CowsProcessed).
			Str("amount", res.TotalAmount.String()).
			Msg("posted monthly depreciation")
	}
	return res, nil
}

// failProcessingLog records a poster failure outside the rolled-back
// transaction so the audit row survives.
func (e *Engine) failProcessingLog(ctx context.Context, tenantID string, period ledger.Period, cause error) {
	err := e.store.Repos().Journal.FinishProcessingLog(ctx, &ledger.ProcessingLog{
		TenantID: tenantID, Year: period.Year, Month: period.Month,
		EntryType: ledger.EntryDepreciation, Status: ledger.ProcessingFailed,
		TotalAmount: decimal.Zero, ErrorMessage: cause.Error(),
	})
	if err != nil {
		e.log.Error().Err(err).
			Str("tenant_id", tenantID).
			Msg("record processing failure")
	}
}
