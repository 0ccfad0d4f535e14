package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/depreciation"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/herd"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
)

// CatchUpCow posts any full months of depreciation a cow is owed between its
// last posted month and through (clamped to the disposition date when the
// cow has one). Months already carrying lines for the cow are left alone, so
// the operation converges no matter how often it runs.
func (e *Engine) CatchUpCow(ctx context.Context, cowID string, through time.Time) (*CatchUpResult, error) {
	cow, err := e.store.Repos().Cows.GetCow(ctx, cowID)
	if err != nil {
		return nil, err
	}

	res := &CatchUpResult{CowID: cowID, TotalAmount: decimal.Zero}
	err = e.store.InTenantTx(ctx, cow.TenantID, func(ctx context.Context, r Repos) error {
		cow, err := r.Cows.GetCow(ctx, cowID)
		if err != nil {
			return err
		}
		set, err := settingsFor(ctx, r, cow.TenantID)
		if err != nil {
			return err
		}
		chart, err := chartFor(ctx, r, cow.TenantID)
		if err != nil {
			return err
		}
		months, total, err := e.catchUpLocked(ctx, r, chart, cow, termsFor(cow, set), through)
		if err != nil {
			return err
		}
		res.MonthsPosted = months
		res.TotalAmount = total
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.MonthsPosted > 0 {
		e.log.Info().
			Str("cow_id", cowID).
			Int("months", res.MonthsPosted).
			Str("amount", res.TotalAmount.String()).
			Msg("caught up depreciation")
	}
	return res, nil
}

// catchUpLocked is the shared catch-up loop; the caller holds the tenant
// transaction. Each owed month lands in the find-or-create monthly entry
// dated that month's end, keyed to the month as its source period.
func (e *Engine) catchUpLocked(ctx context.Context, r Repos, chart ledger.Chart, cow *herd.Cow, t terms, through time.Time) (int, decimal.Decimal, error) {
	total := decimal.Zero
	rate := depreciation.MonthlyRate(t.price, t.salvage, t.years, t.roundToDollar)
	if rate.LessThanOrEqual(decimal.Zero) {
		return 0, total, nil
	}
	if cow.DispositionDate != nil && through.After(*cow.DispositionDate) {
		through = *cow.DispositionDate
	}

	startYear, startMonth := depreciation.NextMonth(cow.FreshenDate.Year(), cow.FreshenDate.Month())
	if last, err := r.Journal.LastDepreciationDate(ctx, cow.ID, chart.Resolve(ledger.RoleAccumDepr).Code); err != nil {
		return 0, total, err
	} else if last != nil {
		y, m := depreciation.NextMonth(last.Year(), last.Month())
		if (ledger.Period{Year: startYear, Month: startMonth}).Before(ledger.Period{Year: y, Month: m}) {
			startYear, startMonth = y, m
		}
	}

	expense := chart.Resolve(ledger.RoleDeprExpense)
	accum := chart.Resolve(ledger.RoleAccumDepr)
	months := 0
	for y, m := startYear, startMonth; ; y, m = depreciation.NextMonth(y, m) {
		eom := depreciation.EndOfMonth(y, m)
		if eom.After(through) {
			break
		}
		k := depreciation.MonthsElapsed(cow.FreshenDate, eom)
		amount := depreciation.AmountForMonth(t.price, t.salvage, t.years, k, t.roundToDollar)
		if amount.LessThanOrEqual(decimal.Zero) {
			break // schedule exhausted
		}

		entry, err := e.monthlyEntryFor(ctx, r, cow.TenantID, ledger.Period{Year: y, Month: m}, eom)
		if err != nil {
			return months, total, err
		}
		has, err := r.Journal.HasCowLines(ctx, entry.ID, cow.ID)
		if err != nil {
			return months, total, err
		}
		if has {
			continue
		}

		cid := cow.ID
		desc := fmt.Sprintf("Depreciation - cow #%s", cow.TagNumber)
		lines := []ledger.JournalLine{
			ledger.DebitLine(entry.ID, &cid, expense, desc, amount),
			ledger.CreditLine(entry.ID, &cid, accum, desc, amount),
		}
		if err := r.Journal.AddLines(ctx, lines); err != nil {
			return months, total, err
		}
		if err := r.Journal.SetEntryTotal(ctx, entry.ID, entry.TotalAmount.Add(amount)); err != nil {
			return months, total, err
		}
		entry.TotalAmount = entry.TotalAmount.Add(amount)
		months++
		total = total.Add(amount)
	}
	return months, total, nil
}

// monthlyEntryFor finds or creates the depreciation entry for a source
// period dated entryDate.
func (e *Engine) monthlyEntryFor(ctx context.Context, r Repos, tenantID string, source ledger.Period, entryDate time.Time) (*ledger.JournalEntry, error) {
	entry, err := r.Journal.FindDepreciationEntry(ctx, tenantID, source, entryDate)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, ledger.ErrEntryNotFound) {
		return nil, err
	}

	now := e.now().UTC()
	entry = &ledger.JournalEntry{
		ID:          newID(),
		TenantID:    tenantID,
		EntryDate:   entryDate,
		Month:       entryDate.Month(),
		Year:        entryDate.Year(),
		SourceMonth: source.Month,
		SourceYear:  source.Year,
		EntryType:   ledger.EntryDepreciation,
		Description: fmt.Sprintf("Monthly depreciation - %s %d", source.Month, source.Year),
		TotalAmount: decimal.Zero,
		Status:      ledger.StatusPosted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.Journal.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
