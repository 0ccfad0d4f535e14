package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/herd"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
)

// PostAcquisition records the journal entry that places a cow on the books:
// debit the dairy-cows asset, credit cash for a purchase or the heifers
// account for a raised animal. Re-posting a cow that already has an
// acquisition entry is a no-op.
func (e *Engine) PostAcquisition(ctx context.Context, cowID string) (*AcquisitionResult, error) {
	cow, err := e.store.Repos().Cows.GetCow(ctx, cowID)
	if err != nil {
		return nil, err
	}

	res := &AcquisitionResult{CowID: cowID, Amount: decimal.Zero}
	err = e.store.InTenantTx(ctx, cow.TenantID, func(ctx context.Context, r Repos) error {
		cow, err := r.Cows.GetCow(ctx, cowID)
		if err != nil {
			return err
		}

		existing, err := r.Journal.AcquisitionEntryID(ctx, cow.ID)
		if err == nil {
			res.EntryID = existing
			return nil
		}
		if !errors.Is(err, ledger.ErrEntryNotFound) {
			return err
		}
		if cow.PurchasePrice.LessThanOrEqual(decimal.Zero) {
			return nil
		}

		chart, err := chartFor(ctx, r, cow.TenantID)
		if err != nil {
			return err
		}
		creditRole := ledger.RoleCash
		if cow.AcquisitionType == herd.AcquisitionRaised {
			creditRole = ledger.RoleHeifers
		}

		now := e.now().UTC()
		entryID := newID()
		cid := cow.ID
		desc := fmt.Sprintf("Acquisition (%s) - cow #%s", cow.AcquisitionType, cow.TagNumber)
		entry := &ledger.JournalEntry{
			ID:          entryID,
			TenantID:    cow.TenantID,
			EntryDate:   cow.FreshenDate,
			Month:       cow.FreshenDate.Month(),
			Year:        cow.FreshenDate.Year(),
			SourceMonth: cow.FreshenDate.Month(),
			SourceYear:  cow.FreshenDate.Year(),
			EntryType:   ledger.EntryAcquisition,
			Description: desc,
			TotalAmount: cow.PurchasePrice,
			Status:      ledger.StatusPosted,
			Lines: []ledger.JournalLine{
				ledger.DebitLine(entryID, &cid, chart.Resolve(ledger.RoleAsset), desc, cow.PurchasePrice),
				ledger.CreditLine(entryID, &cid, chart.Resolve(creditRole), desc, cow.PurchasePrice),
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if !entry.Balanced() {
			e.log.Error().Str("cow_id", cow.ID).Msg("acquisition entry unbalanced")
			return ErrUnbalancedEntry
		}
		if err := r.Journal.CreateEntry(ctx, entry); err != nil {
			return err
		}
		res.EntryID = entryID
		res.JournalCreated = true
		res.Amount = cow.PurchasePrice
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.JournalCreated {
		e.log.Info().
			Str("tenant_id", cow.TenantID).
			Str("cow_id", cowID).
			Str("amount", res.Amount.String()).
			Msg("posted acquisition")
	}
	return res, nil
}
