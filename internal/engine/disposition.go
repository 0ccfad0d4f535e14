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

// RecordDisposition stores a cow's terminal event, sweeps any depreciation
// already posted past the disposition date, and marks the cow sold or
// deceased. Posting the journal entry is a separate step so the event can
// be ingested even when posting later fails.
func (e *Engine) RecordDisposition(ctx context.Context, d *herd.Disposition) (*herd.Disposition, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var swept ledger.SweepResult
	err := e.store.InTenantTx(ctx, d.TenantID, func(ctx context.Context, r Repos) error {
		cow, err := r.Cows.GetCow(ctx, d.CowID)
		if err != nil {
			return err
		}
		if cow.TenantID != d.TenantID {
			return herd.ErrCowNotFound
		}
		if d.DispositionDate.Before(cow.FreshenDate) {
			return &InvariantError{
				Rule:   RuleDispositionSequence,
				Detail: fmt.Sprintf("disposition date %s precedes freshen date %s for cow #%s",
					d.DispositionDate.Format("2006-01-02"), cow.FreshenDate.Format("2006-01-02"), cow.TagNumber),
			}
		}
		if existing, err := r.Cows.DispositionForCow(ctx, cow.ID); err == nil {
			return &InvariantError{
				Rule:   RuleSingleDisposition,
				Detail: fmt.Sprintf("cow #%s already has disposition %s", cow.TagNumber, existing.ID),
			}
		} else if !errors.Is(err, herd.ErrDispositionNotFound) {
			return err
		}

		now := e.now().UTC()
		if d.ID == "" {
			d.ID = newID()
		}
		d.CreatedAt, d.UpdatedAt = now, now
		if err := r.Cows.CreateDisposition(ctx, d); err != nil {
			return err
		}

		// The event may arrive after later months were already posted.
		swept, err = r.Journal.SweepDepreciationAfter(ctx, cow.ID, d.DispositionDate)
		if err != nil {
			return err
		}

		return r.Cows.UpdateCowStatus(ctx, cow.ID, d.DispositionType.TerminalStatus(), decimal.Zero, &d.ID)
	})
	if err != nil {
		return nil, err
	}
	if swept.LinesDeleted > 0 {
		e.log.Warn().
			Str("cow_id", d.CowID).
			Int("lines_deleted", swept.LinesDeleted).
			Int("entries_deleted", swept.EntriesDeleted).
			Msg("swept depreciation posted past disposition date")
	}
	return d, nil
}

// PostDisposition derives and posts the disposition journal entry: catch up
// full months through the disposition date, add the partial month when
// enabled, then remove the asset at cost against its accumulated
// depreciation, cash received, and the gain or loss. Safe to re-run; a
// previously posted entry is replaced.
func (e *Engine) PostDisposition(ctx context.Context, dispositionID string) (*DispositionResult, error) {
	d, err := e.store.Repos().Cows.GetDisposition(ctx, dispositionID)
	if err != nil {
		return nil, err
	}

	res := &DispositionResult{
		DispositionID:   dispositionID,
		AccumulatedDepr: decimal.Zero,
		PartialAmount:   decimal.Zero,
		BookValue:       decimal.Zero,
		GainLoss:        decimal.Zero,
	}
	err = e.store.InTenantTx(ctx, d.TenantID, func(ctx context.Context, r Repos) error {
		d, err := r.Cows.GetDisposition(ctx, dispositionID)
		if err != nil {
			return err
		}
		cow, err := r.Cows.GetCow(ctx, d.CowID)
		if err != nil {
			return err
		}
		set, err := settingsFor(ctx, r, d.TenantID)
		if err != nil {
			return err
		}
		chart, err := chartFor(ctx, r, d.TenantID)
		if err != nil {
			return err
		}
		t := termsFor(cow, set)
		day := d.DispositionDate

		// Depreciation never accrues past the disposition date.
		res.Swept, err = r.Journal.SweepDepreciationAfter(ctx, cow.ID, day)
		if err != nil {
			return err
		}

		// Full months owed up to the disposition, in case the event arrived
		// before the monthly poster covered them.
		res.CatchUpMonths, _, err = e.catchUpLocked(ctx, r, chart, cow, t, day)
		if err != nil {
			return err
		}

		accumAcct := chart.Resolve(ledger.RoleAccumDepr)
		if set.IncludePartialMonths && day.Day() > 1 && !depreciation.IsEndOfMonth(day) {
			res.PartialAmount, err = e.postPartialMonth(ctx, r, chart, cow, t, day)
			if err != nil {
				return err
			}
		}

		accum, err := r.Journal.AccumulatedDepreciation(ctx, cow.ID, accumAcct.Code, day)
		if err != nil {
			return err
		}
		res.AccumulatedDepr = accum

		book := cow.PurchasePrice.Sub(accum)
		if book.LessThan(cow.SalvageValue) {
			book = cow.SalvageValue
		}
		sale := decimal.Zero
		if d.DispositionType == herd.DispositionSale {
			sale = d.SaleAmount
		}
		gainLoss := sale.Sub(book)
		res.BookValue = book
		res.GainLoss = gainLoss

		// Replace any earlier posting of this disposition.
		if d.JournalEntryID != nil {
			if err := r.Journal.DeleteEntry(ctx, *d.JournalEntryID); err != nil && !errors.Is(err, ledger.ErrEntryNotFound) {
				return err
			}
		}

		entryID := newID()
		cid := cow.ID
		desc := fmt.Sprintf("Disposition (%s) - cow #%s", d.DispositionType, cow.TagNumber)
		var lines []ledger.JournalLine
		if accum.GreaterThan(decimal.Zero) {
			lines = append(lines, ledger.DebitLine(entryID, &cid, accumAcct, desc, accum))
		}
		if sale.GreaterThan(decimal.Zero) {
			lines = append(lines, ledger.DebitLine(entryID, &cid, chart.Resolve(ledger.RoleCash), desc, sale))
		}
		if gainLoss.Abs().GreaterThan(decimal.NewFromFloat(0.01)) {
			if gainLoss.GreaterThan(decimal.Zero) {
				lines = append(lines, ledger.CreditLine(entryID, &cid, chart.Resolve(ledger.RoleGainOnSale), desc, gainLoss))
			} else {
				lossAcct := chart.Resolve(ledger.LossRole(string(d.DispositionType)))
				lines = append(lines, ledger.DebitLine(entryID, &cid, lossAcct, desc, gainLoss.Neg()))
			}
		}
		if cow.PurchasePrice.GreaterThan(decimal.Zero) {
			lines = append(lines, ledger.CreditLine(entryID, &cid, chart.Resolve(ledger.RoleAsset), desc, cow.PurchasePrice))
		}

		if len(lines) == 0 {
			// Nothing on the books and nothing received; record the derived
			// values without an entry.
			if err := r.Cows.UpdateCowStatus(ctx, cow.ID, d.DispositionType.TerminalStatus(), decimal.Zero, &d.ID); err != nil {
				return err
			}
			return r.Cows.SetDispositionResult(ctx, d.ID, "", book, gainLoss)
		}

		now := e.now().UTC()
		entry := &ledger.JournalEntry{
			ID:          entryID,
			TenantID:    d.TenantID,
			EntryDate:   day,
			Month:       day.Month(),
			Year:        day.Year(),
			SourceMonth: day.Month(),
			SourceYear:  day.Year(),
			EntryType:   ledger.EntryDisposition,
			Description: desc,
			TotalAmount: cow.PurchasePrice,
			Status:      ledger.StatusPosted,
			Lines:       lines,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if !entry.Balanced() {
			e.log.Error().
				Str("disposition_id", d.ID).
				Str("debits", entry.SumDebits().String()).
				Str("credits", entry.SumCredits().String()).
				Msg("disposition entry unbalanced")
			return ErrUnbalancedEntry
		}
		if err := r.Journal.CreateEntry(ctx, entry); err != nil {
			return err
		}
		res.EntryID = entryID
		res.JournalCreated = true

		if err := r.Cows.UpdateCowStatus(ctx, cow.ID, d.DispositionType.TerminalStatus(), decimal.Zero, &d.ID); err != nil {
			return err
		}
		return r.Cows.SetDispositionResult(ctx, d.ID, entryID, book, gainLoss)
	})
	if err != nil {
		return nil, err
	}
	if res.JournalCreated {
		e.log.Info().
			Str("disposition_id", dispositionID).
			Str("book_value", res.BookValue.String()).
			Str("gain_loss", res.GainLoss.String()).
			Msg("posted disposition")
	}
	return res, nil
}

// postPartialMonth posts the prorated final-month depreciation into its own
// entry dated the disposition day, clamped so the cow never depreciates
// below salvage.
func (e *Engine) postPartialMonth(ctx context.Context, r Repos, chart ledger.Chart, cow *herd.Cow, t terms, day time.Time) (decimal.Decimal, error) {
	accumAcct := chart.Resolve(ledger.RoleAccumDepr)
	before, err := r.Journal.AccumulatedDepreciation(ctx, cow.ID, accumAcct.Code, day)
	if err != nil {
		return decimal.Zero, err
	}
	remaining := t.price.Sub(t.salvage).Sub(before)
	if remaining.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil
	}
	amount := depreciation.PartialMonth(t.price, t.salvage, t.years, day, t.roundToDollar)
	if amount.GreaterThan(remaining) {
		amount = remaining
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil
	}

	source := ledger.PeriodOf(day)
	entry, err := r.Journal.FindDepreciationEntry(ctx, cow.TenantID, source, day)
	if errors.Is(err, ledger.ErrEntryNotFound) {
		now := e.now().UTC()
		entry = &ledger.JournalEntry{
			ID:          newID(),
			TenantID:    cow.TenantID,
			EntryDate:   day,
			Month:       source.Month,
			Year:        source.Year,
			SourceMonth: source.Month,
			SourceYear:  source.Year,
			EntryType:   ledger.EntryDepreciation,
			Description: fmt.Sprintf("Partial month depreciation - %s %d", source.Month, source.Year),
			TotalAmount: decimal.Zero,
			Status:      ledger.StatusPosted,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := r.Journal.CreateEntry(ctx, entry); err != nil {
			return decimal.Zero, err
		}
	} else if err != nil {
		return decimal.Zero, err
	}

	has, err := r.Journal.HasCowLines(ctx, entry.ID, cow.ID)
	if err != nil {
		return decimal.Zero, err
	}
	if has {
		return decimal.Zero, nil
	}

	cid := cow.ID
	desc := fmt.Sprintf("Partial month depreciation - cow #%s", cow.TagNumber)
	lines := []ledger.JournalLine{
		ledger.DebitLine(entry.ID, &cid, chart.Resolve(ledger.RoleDeprExpense), desc, amount),
		ledger.CreditLine(entry.ID, &cid, accumAcct, desc, amount),
	}
	if err := r.Journal.AddLines(ctx, lines); err != nil {
		return decimal.Zero, err
	}
	if err := r.Journal.SetEntryTotal(ctx, entry.ID, entry.TotalAmount.Add(amount)); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}
