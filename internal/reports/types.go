// Package reports builds the derived read-models: dashboard balances taken
// from the ledger itself and the monthly headcount reconciliation. Reads
// are snapshot-consistent but may trail in-flight posters.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/herd"
)

// DashboardStats is the tenant overview. AssetValue and AccumDepr come from
// the journal, not the cow rows, so they agree with what an auditor sums.
type DashboardStats struct {
	ActiveCount   int             `json:"active_count"`
	ActiveValue   decimal.Decimal `json:"active_value"`
	AssetValue    decimal.Decimal `json:"asset_value"`
	AccumDepr     decimal.Decimal `json:"accumulated_depreciation"`
	NetBookValue  decimal.Decimal `json:"net_book_value"`
	DeprThisYear  decimal.Decimal `json:"depreciation_this_year"`
}

// ReconciliationRow is one month of the headcount flow. Ending balance
// chains into the next month's starting balance; ActualActive is the live
// count at month end for side-by-side comparison.
type ReconciliationRow struct {
	Month           time.Month `json:"month"`
	StartingBalance int        `json:"starting_balance"`
	Additions       int        `json:"additions"`
	Sales           int        `json:"sales"`
	Deaths          int        `json:"deaths"`
	Culled          int        `json:"culled"`
	EndingBalance   int        `json:"ending_balance"`
	ActualActive    int        `json:"actual_active"`
	Variance        int        `json:"variance"`
}

// Reconciliation is a full year of headcount flow.
type Reconciliation struct {
	TenantID       string              `json:"tenant_id"`
	Year           int                 `json:"year"`
	YearAdjustment int                 `json:"year_adjustment"`
	Rows           []ReconciliationRow `json:"rows"`
}

// BuildReconciliation chains twelve months of headcount flow from a January
// starting balance, monthly additions, and disposals by type. When adjust is
// set, a one-time adjustment is folded into January's starting balance so
// the computed December ending matches the live December count; the
// adjustment applied is recorded on the result.
func BuildReconciliation(janStart int, additions map[time.Month]int, disposals map[time.Month]map[herd.DispositionType]int, actualActive map[time.Month]int, adjust bool) ([]ReconciliationRow, int) {
	adjustment := 0
	if adjust {
		computed := janStart
		for m := time.January; m <= time.December; m++ {
			computed += additions[m]
			for _, n := range disposals[m] {
				computed -= n
			}
		}
		adjustment = actualActive[time.December] - computed
	}

	rows := make([]ReconciliationRow, 0, 12)
	balance := janStart + adjustment
	for m := time.January; m <= time.December; m++ {
		row := ReconciliationRow{
			Month:           m,
			StartingBalance: balance,
			Additions:       additions[m],
			Sales:           disposals[m][herd.DispositionSale],
			Deaths:          disposals[m][herd.DispositionDeath],
			Culled:          disposals[m][herd.DispositionCulled],
			ActualActive:    actualActive[m],
		}
		row.EndingBalance = row.StartingBalance + row.Additions - row.Sales - row.Deaths - row.Culled
		row.Variance = row.ActualActive - row.EndingBalance
		rows = append(rows, row)
		balance = row.EndingBalance
	}
	return rows, adjustment
}
