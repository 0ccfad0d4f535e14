package herd

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validCow() *Cow {
	return &Cow{
		TenantID:        "farm-1",
		TagNumber:       "42",
		FreshenDate:     time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
		PurchasePrice:   decimal.NewFromInt(2000),
		SalvageValue:    decimal.NewFromInt(200),
		AcquisitionType: AcquisitionPurchased,
	}
}

func TestCowValidate(t *testing.T) {
	assert.NoError(t, validCow().Validate())

	c := validCow()
	c.SalvageValue = decimal.NewFromInt(2500)
	assert.Error(t, c.Validate(), "salvage above price")

	c = validCow()
	c.PurchasePrice = decimal.NewFromInt(-1)
	assert.Error(t, c.Validate())

	c = validCow()
	c.AcquisitionType = "leased"
	assert.Error(t, c.Validate())

	c = validCow()
	c.TagNumber = ""
	assert.Error(t, c.Validate())
}

func TestDispositionValidate(t *testing.T) {
	d := &Disposition{
		TenantID:        "farm-1",
		CowID:           "cow-1",
		DispositionDate: time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
		DispositionType: DispositionSale,
		SaleAmount:      decimal.NewFromInt(900),
	}
	assert.NoError(t, d.Validate())

	d.DispositionType = "donated"
	assert.Error(t, d.Validate())

	d.DispositionType = DispositionDeath
	d.SaleAmount = decimal.NewFromInt(-5)
	assert.Error(t, d.Validate())
}

func TestDispositionTerminalStatus(t *testing.T) {
	assert.Equal(t, CowSold, DispositionSale.TerminalStatus())
	assert.Equal(t, CowSold, DispositionCulled.TerminalStatus())
	assert.Equal(t, CowDeceased, DispositionDeath.TerminalStatus())
}
