// Package depreciation holds the pure straight-line schedule math. Every
// function is deterministic and depends only on its arguments, so all
// posters derive identical amounts for the same cow and month regardless of
// the order events arrived in.
package depreciation

import (
	"time"

	"github.com/shopspring/decimal"
)

func round(d decimal.Decimal, toDollar bool) decimal.Decimal {
	if toDollar {
		return d.Round(0)
	}
	return d.Round(2)
}

// MonthlyRate returns the straight-line monthly depreciation rate
// (price - salvage) / (years * 12), rounded to cents or whole dollars.
func MonthlyRate(price, salvage decimal.Decimal, years int, roundToDollar bool) decimal.Decimal {
	if years <= 0 {
		return decimal.Zero
	}
	base := price.Sub(salvage)
	if base.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return round(base.Div(decimal.NewFromInt(int64(years)*12)), roundToDollar)
}

// AmountForMonth returns the depreciation for the k-th month after
// freshening (k = 1 is the first month with depreciation). The final month
// is clamped so the cumulative total never exceeds price - salvage.
func AmountForMonth(price, salvage decimal.Decimal, years, k int, roundToDollar bool) decimal.Decimal {
	if k < 1 || k > years*12 {
		return decimal.Zero
	}
	rate := MonthlyRate(price, salvage, years, roundToDollar)
	if rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	remaining := price.Sub(salvage).Sub(rate.Mul(decimal.NewFromInt(int64(k - 1))))
	if remaining.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if rate.GreaterThan(remaining) {
		return remaining
	}
	return rate
}

// MonthlyAmount returns the depreciation owed for the month containing
// target, given the cow freshened on freshen. A cow freshening in month M
// starts depreciating in M+1.
func MonthlyAmount(price, salvage decimal.Decimal, freshen, target time.Time, years int, roundToDollar bool) decimal.Decimal {
	return AmountForMonth(price, salvage, years, MonthsElapsed(freshen, target), roundToDollar)
}

// PartialMonth prorates the monthly rate by day-of-month for a disposition
// on through: rate * day(through) / days_in_month(through).
func PartialMonth(price, salvage decimal.Decimal, years int, through time.Time, roundToDollar bool) decimal.Decimal {
	rate := MonthlyRate(price, salvage, years, roundToDollar)
	if rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	day := decimal.NewFromInt(int64(through.Day()))
	days := decimal.NewFromInt(int64(DaysInMonth(through)))
	return round(rate.Mul(day).Div(days), roundToDollar)
}

// FullyDepreciatedAfter returns the number of months from freshening until
// the schedule is exhausted, accounting for rounding of the monthly rate.
func FullyDepreciatedAfter(price, salvage decimal.Decimal, years int, roundToDollar bool) int {
	rate := MonthlyRate(price, salvage, years, roundToDollar)
	if rate.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	base := price.Sub(salvage)
	months := int(base.Div(rate).Ceil().IntPart())
	if max := years * 12; months > max {
		return max
	}
	return months
}
