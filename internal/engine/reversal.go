package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/depreciation"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/herd"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
)

// reversalID derives a stable ID for an entry's reversal, so a replayed
// reverse call finds the mirror entry it already posted instead of posting
// a second one.
func reversalID(entryID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("reversal:"+entryID)).String()
}

// buildReversal mirrors an entry with debits and credits swapped, dated
// asOf. The original stays on the books; the pair nets to zero.
func buildReversal(original *ledger.JournalEntry, reason string, asOf time.Time) *ledger.JournalEntry {
	rev := &ledger.JournalEntry{
		ID:          reversalID(original.ID),
		TenantID:    original.TenantID,
		EntryDate:   asOf,
		Month:       asOf.Month(),
		Year:        asOf.Year(),
		SourceMonth: original.SourceMonth,
		SourceYear:  original.SourceYear,
		EntryType:   original.EntryType.Reversal(),
		Description: fmt.Sprintf("Reversal of %s: %s", original.Description, reason),
		TotalAmount: original.TotalAmount,
		Status:      ledger.StatusPosted,
		CreatedAt:   asOf,
		UpdatedAt:   asOf,
	}
	for _, l := range original.Lines {
		acct := ledger.Account{Code: l.AccountCode, Name: l.AccountName}
		if l.Debit.GreaterThan(decimal.Zero) {
			rev.Lines = append(rev.Lines, ledger.CreditLine(rev.ID, l.CowID, acct, l.Description, l.Debit))
		} else {
			rev.Lines = append(rev.Lines, ledger.DebitLine(rev.ID, l.CowID, acct, l.Description, l.Credit))
		}
	}
	return rev
}

// ReverseEntry posts a mirror-image entry that backs out a posted entry
// without deleting it. Reversals themselves cannot be reversed.
func (e *Engine) ReverseEntry(ctx context.Context, entryID, reason string) (*ReversalResult, error) {
	original, err := e.store.Repos().Journal.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	res := &ReversalResult{OriginalEntryID: entryID}
	err = e.store.InTenantTx(ctx, original.TenantID, func(ctx context.Context, r Repos) error {
		original, err := r.Journal.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if original.EntryType.IsReversal() {
			return fmt.Errorf("entry %s is already a reversal", entryID)
		}
		if len(original.Lines) == 0 {
			return fmt.Errorf("entry %s has no lines to reverse", entryID)
		}
		if existing, err := r.Journal.GetEntry(ctx, reversalID(entryID)); err == nil {
			res.ReversalEntryID = existing.ID
			return nil
		} else if !errors.Is(err, ledger.ErrEntryNotFound) {
			return err
		}
		rev := buildReversal(original, reason, e.now().UTC())
		if !rev.Balanced() {
			return ErrUnbalancedEntry
		}
		if err := r.Journal.CreateEntry(ctx, rev); err != nil {
			return err
		}
		res.ReversalEntryID = rev.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().
		Str("entry_id", entryID).
		Str("reversal_id", res.ReversalEntryID).
		Str("reason", reason).
		Msg("reversed journal entry")
	return res, nil
}

// ReinstateDisposition undoes a disposition recorded in error: the posted
// entry is reversed, the disposition row removed, the cow returned to
// active, and any depreciation owed since is caught back up.
func (e *Engine) ReinstateDisposition(ctx context.Context, dispositionID, reason string) (*ReinstateResult, error) {
	d, err := e.store.Repos().Cows.GetDisposition(ctx, dispositionID)
	if err != nil {
		return nil, err
	}

	res := &ReinstateResult{CowID: d.CowID}
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

		now := e.now().UTC()
		if d.JournalEntryID != nil {
			original, err := r.Journal.GetEntry(ctx, *d.JournalEntryID)
			if err != nil && !errors.Is(err, ledger.ErrEntryNotFound) {
				return err
			}
			if err == nil && len(original.Lines) > 0 {
				rev := buildReversal(original, reason, now)
				if !rev.Balanced() {
					return ErrUnbalancedEntry
				}
				if err := r.Journal.CreateEntry(ctx, rev); err != nil {
					return err
				}
				res.ReversalEntryID = rev.ID
			}
		}

		if err := r.Cows.DeleteDisposition(ctx, d.ID); err != nil {
			return err
		}
		cow.DispositionDate = nil
		cow.DispositionID = nil

		t := termsFor(cow, set)
		posted, err := e.postMonthRemainder(ctx, r, chart, cow, t, d.DispositionDate)
		if err != nil {
			return err
		}
		if posted {
			res.MonthsPosted++
		}

		months, _, err := e.catchUpLocked(ctx, r, chart, cow, t, e.today())
		if err != nil {
			return err
		}
		res.MonthsPosted += months

		accumCode := chart.Resolve(ledger.RoleAccumDepr).Code
		accum, err := r.Journal.AccumulatedDepreciation(ctx, cow.ID, accumCode, e.today())
		if err != nil {
			return err
		}
		value := cow.PurchasePrice.Sub(accum)
		if value.LessThan(cow.SalvageValue) {
			value = cow.SalvageValue
		}
		return r.Cows.UpdateCowStatus(ctx, cow.ID, herd.CowActive, value, nil)
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().
		Str("disposition_id", dispositionID).
		Str("cow_id", res.CowID).
		Msg("reinstated disposition")
	return res, nil
}

// postMonthRemainder tops the reinstated cow's disposition month back up to
// the full monthly amount. A mid-month disposition left only the prorated
// share on the books; once the cow is active again the whole month is owed.
func (e *Engine) postMonthRemainder(ctx context.Context, r Repos, chart ledger.Chart, cow *herd.Cow, t terms, dispositionDate time.Time) (bool, error) {
	eom := depreciation.MonthEnd(dispositionDate)
	if eom.After(e.today()) {
		return false, nil
	}
	k := depreciation.MonthsElapsed(cow.FreshenDate, eom)
	full := depreciation.AmountForMonth(t.price, t.salvage, t.years, k, t.roundToDollar)
	if full.LessThanOrEqual(decimal.Zero) {
		return false, nil
	}

	accumAcct := chart.Resolve(ledger.RoleAccumDepr)
	prevEnd := depreciation.EndOfMonth(depreciation.PrevMonth(eom.Year(), eom.Month()))
	accumBefore, err := r.Journal.AccumulatedDepreciation(ctx, cow.ID, accumAcct.Code, prevEnd)
	if err != nil {
		return false, err
	}
	accumThrough, err := r.Journal.AccumulatedDepreciation(ctx, cow.ID, accumAcct.Code, eom)
	if err != nil {
		return false, err
	}
	takenThisMonth := accumThrough.Sub(accumBefore)
	remainder := full.Sub(takenThisMonth)
	if remaining := t.price.Sub(t.salvage).Sub(accumThrough); remainder.GreaterThan(remaining) {
		remainder = remaining
	}
	if remainder.LessThanOrEqual(decimal.Zero) {
		return false, nil
	}

	source := ledger.Period{Year: eom.Year(), Month: eom.Month()}
	entry, err := e.monthlyEntryFor(ctx, r, cow.TenantID, source, eom)
	if err != nil {
		return false, err
	}
	cid := cow.ID
	desc := fmt.Sprintf("Depreciation - cow #%s (reinstated)", cow.TagNumber)
	lines := []ledger.JournalLine{
		ledger.DebitLine(entry.ID, &cid, chart.Resolve(ledger.RoleDeprExpense), desc, remainder),
		ledger.CreditLine(entry.ID, &cid, accumAcct, desc, remainder),
	}
	if err := r.Journal.AddLines(ctx, lines); err != nil {
		return false, err
	}
	if err := r.Journal.SetEntryTotal(ctx, entry.ID, entry.TotalAmount.Add(remainder)); err != nil {
		return false, err
	}
	return true, nil
}
