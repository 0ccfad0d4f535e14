package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/settings"
)

// ProcessHistorical backfills a tenant's whole ledger: acquisition entries
// for cows missing one, a monthly depreciation entry for every period from
// the first cow's first depreciation month through the last completed month,
// and entries for unposted dispositions. Each month commits in its own
// transaction, so an interrupted run resumes where it stopped.
func (e *Engine) ProcessHistorical(ctx context.Context, tenantID string, startYear, endYear int) (*HistoricalResult, error) {
	res := &HistoricalResult{TenantID: tenantID}
	repos := e.store.Repos()

	earliest, err := repos.Cows.EarliestFreshenDate(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if earliest == nil {
		return res, nil
	}

	ids, err := repos.Cows.CowIDsMissingAcquisition(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ar, err := e.PostAcquisition(ctx, id)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("acquisition cow %s: %v", id, err))
			continue
		}
		if ar.JournalCreated {
			res.AcquisitionsPosted++
		}
	}

	first := ledger.Period{Year: earliest.Year(), Month: earliest.Month()}.Next()
	if startYear > 0 && first.Year < startYear {
		first = ledger.Period{Year: startYear, Month: 1}
	}
	last := previousPeriod(ledger.PeriodOf(e.today()))
	if endYear > 0 && endYear < last.Year {
		last = ledger.Period{Year: endYear, Month: 12}
	}

	var current *YearSummary
	for p := first; !last.Before(p); p = p.Next() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if current == nil || current.Year != p.Year {
			res.Years = append(res.Years, YearSummary{Year: p.Year, TotalAmount: decimal.Zero})
			current = &res.Years[len(res.Years)-1]
		}
		mr, err := e.PostMonthlyDepreciation(ctx, tenantID, p, settings.ModeHistorical, false)
		if err != nil {
			current.Errors = append(current.Errors, fmt.Sprintf("%s %d: %v", p.Month, p.Year, err))
			continue
		}
		if mr.JournalCreated {
			current.MonthsProcessed++
			current.CowsProcessed += mr.CowsProcessed
			current.TotalAmount = current.TotalAmount.Add(mr.TotalAmount)
		} else {
			current.MonthsSkipped++
		}
	}

	unposted, err := repos.Cows.DispositionsMissingEntry(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, d := range unposted {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		dr, err := e.PostDisposition(ctx, d.ID)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("disposition %s: %v", d.ID, err))
			continue
		}
		if dr.JournalCreated {
			res.DispositionsPosted++
		}
	}

	if err := repos.Settings.MarkHistoricalCompleted(ctx, tenantID); err != nil && !errors.Is(err, settings.ErrSettingsNotFound) {
		return nil, err
	}

	e.log.Info().
		Str("tenant_id", tenantID).
		Int("acquisitions", res.AcquisitionsPosted).
		Int("dispositions", res.DispositionsPosted).
		Int("years", len(res.Years)).
		Msg("historical processing complete")
	return res, nil
}

// ProcessMissingJournals finds completed months with no depreciation entry
// and posts them, at most missingLimit per run so one tenant cannot
// monopolise a scheduler pass.
func (e *Engine) ProcessMissingJournals(ctx context.Context, tenantID string) (*MissingJournalsResult, error) {
	res := &MissingJournalsResult{TenantID: tenantID}
	repos := e.store.Repos()

	earliest, err := repos.Cows.EarliestFreshenDate(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if earliest == nil {
		return res, nil
	}
	posted, err := repos.Journal.DepreciationSourcePeriods(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	first := ledger.Period{Year: earliest.Year(), Month: earliest.Month()}.Next()
	last := previousPeriod(ledger.PeriodOf(e.today()))
	for p := first; !last.Before(p); p = p.Next() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if posted[p] {
			res.Skipped++
			continue
		}
		if _, err := e.PostMonthlyDepreciation(ctx, tenantID, p, "", false); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s %d: %v", p.Month, p.Year, err))
			continue
		}
		res.Processed++
		if res.Processed >= e.missingLimit {
			res.Truncated = !last.Before(p.Next())
			break
		}
	}

	if res.Processed > 0 {
		e.log.Info().
			Str("tenant_id", tenantID).
			Int("processed", res.Processed).
			Int("skipped", res.Skipped).
			Bool("truncated", res.Truncated).
			Msg("filled missing depreciation journals")
	}
	return res, nil
}

func previousPeriod(p ledger.Period) ledger.Period {
	if p.Month == 1 {
		return ledger.Period{Year: p.Year - 1, Month: 12}
	}
	return ledger.Period{Year: p.Year, Month: p.Month - 1}
}
