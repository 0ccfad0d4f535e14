package herd

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// CowStatus is the lifecycle status of a cow.
type CowStatus string

const (
	CowActive   CowStatus = "active"
	CowSold     CowStatus = "sold"
	CowDeceased CowStatus = "deceased"
)

// AcquisitionType records how a cow entered the herd.
type AcquisitionType string

const (
	AcquisitionPurchased AcquisitionType = "purchased"
	AcquisitionRaised    AcquisitionType = "raised"
)

// DispositionType is the terminal event removing a cow from service.
type DispositionType string

const (
	DispositionSale   DispositionType = "sale"
	DispositionDeath  DispositionType = "death"
	DispositionCulled DispositionType = "culled"
)

// TerminalStatus maps a disposition type to the cow status it produces.
func (t DispositionType) TerminalStatus() CowStatus {
	if t == DispositionDeath {
		return CowDeceased
	}
	return CowSold
}

// Valid reports whether t is a known disposition type.
func (t DispositionType) Valid() bool {
	switch t {
	case DispositionSale, DispositionDeath, DispositionCulled:
		return true
	}
	return false
}

// Cow is a depreciable biological asset. The depreciation clock starts the
// month after FreshenDate.
type Cow struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	TagNumber       string          `json:"tag_number"`
	FreshenDate     time.Time       `json:"freshen_date"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
	SalvageValue    decimal.Decimal `json:"salvage_value"`
	AcquisitionType AcquisitionType `json:"acquisition_type"`
	Status          CowStatus       `json:"status"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	DispositionID   *string         `json:"disposition_id,omitempty"`

	// DispositionDate is populated on list queries that join dispositions;
	// it is not a stored column on the cow row.
	DispositionDate *time.Time `json:"disposition_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the cow's invariants before persisting.
func (c *Cow) Validate() error {
	if c.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if c.TagNumber == "" {
		return errors.New("tag number is required")
	}
	if c.FreshenDate.IsZero() {
		return errors.New("freshen date is required")
	}
	if c.PurchasePrice.LessThan(decimal.Zero) {
		return errors.New("purchase price cannot be negative")
	}
	if c.SalvageValue.LessThan(decimal.Zero) {
		return errors.New("salvage value cannot be negative")
	}
	if c.SalvageValue.GreaterThan(c.PurchasePrice) {
		return errors.New("salvage value cannot exceed purchase price")
	}
	if c.AcquisitionType != AcquisitionPurchased && c.AcquisitionType != AcquisitionRaised {
		return errors.New("acquisition type must be purchased or raised")
	}
	return nil
}

// Disposition is the terminal event for a cow. At most one exists per cow.
type Disposition struct {
	ID              string           `json:"id"`
	TenantID        string           `json:"tenant_id"`
	CowID           string           `json:"cow_id"`
	DispositionDate time.Time        `json:"disposition_date"`
	DispositionType DispositionType  `json:"disposition_type"`
	SaleAmount      decimal.Decimal  `json:"sale_amount"`
	FinalBookValue  *decimal.Decimal `json:"final_book_value,omitempty"`
	GainLoss        *decimal.Decimal `json:"gain_loss,omitempty"`
	JournalEntryID  *string          `json:"journal_entry_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Validate checks the disposition's invariants before persisting.
func (d *Disposition) Validate() error {
	if d.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if d.CowID == "" {
		return errors.New("cow id is required")
	}
	if d.DispositionDate.IsZero() {
		return errors.New("disposition date is required")
	}
	if !d.DispositionType.Valid() {
		return errors.New("disposition type must be sale, death or culled")
	}
	if d.SaleAmount.LessThan(decimal.Zero) {
		return errors.New("sale amount cannot be negative")
	}
	return nil
}
