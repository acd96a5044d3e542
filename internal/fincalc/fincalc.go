// Package fincalc implements the financial calculation primitives exposed by
// the CLI and used when post-processing query results: plain aggregates, ROMI,
// percentage deltas, and multi-currency revenue aggregation.
package fincalc

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Sum returns the total of values; an empty slice sums to zero.
func Sum(values []float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Float64()
	return f
}

// Avg returns the arithmetic mean of values; zero for an empty slice.
func Avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Div(decimal.NewFromInt(int64(len(values)))).Float64()
	return f
}

// ROMI computes return on marketing investment, num divided by den. A zero
// denominator makes the ratio undefined and ok is false.
func ROMI(num, den float64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	f, _ := decimal.NewFromFloat(num).Div(decimal.NewFromFloat(den)).Float64()
	return f, true
}

// DeltaPct computes the percentage change from old to num, rounded to 12
// decimal places. When old is zero the percentage change is undefined (use
// the absolute delta instead) and ok is false.
func DeltaPct(old, num float64) (float64, bool) {
	if old == 0 {
		return 0, false
	}
	oldD := decimal.NewFromFloat(old)
	pct := decimal.NewFromFloat(num).Sub(oldD).Div(oldD).Mul(decimal.NewFromInt(100))
	f, _ := pct.Round(12).Float64()
	return f, true
}

// FXRow is one revenue movement in an arbitrary currency.
type FXRow struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"` // defaults to USD
	FXToUSD  float64 `json:"fxToUSD,omitempty"`  // required for non-USD rows
	Kind     string  `json:"kind,omitempty"`     // payment (default), refund, chargeback
}

// RevenueBreakdown holds per-kind USD totals rounded to cents. Refunds and
// chargebacks are reported as positive magnitudes.
type RevenueBreakdown struct {
	Payments    float64 `json:"payments"`
	Refunds     float64 `json:"refunds"`
	Chargebacks float64 `json:"chargebacks"`
}

// RevenueSummary is the result of AggregateRevenue. Skipped counts non-USD
// rows that carried no usable conversion rate.
type RevenueSummary struct {
	Result    float64          `json:"result"` // payments - refunds - chargebacks
	Breakdown RevenueBreakdown `json:"breakdown"`
	Skipped   int              `json:"skipped,omitempty"`
}

// AggregateRevenue converts every row to USD and nets payments against
// refunds and chargebacks. Unknown kinds are ignored. Non-USD rows whose
// FXToUSD rate is zero or negative cannot be converted; they are skipped
// and counted rather than assumed to trade at parity.
func AggregateRevenue(rows []FXRow) RevenueSummary {
	payments := decimal.Zero
	refunds := decimal.Zero
	chargebacks := decimal.Zero
	skipped := 0

	for _, row := range rows {
		currency := strings.ToUpper(row.Currency)
		if currency == "" {
			currency = "USD"
		}
		rate := decimal.NewFromInt(1)
		if currency != "USD" {
			if row.FXToUSD <= 0 {
				skipped++
				continue
			}
			rate = decimal.NewFromFloat(row.FXToUSD)
		}
		usd := decimal.NewFromFloat(row.Amount).Mul(rate)

		switch row.Kind {
		case "", "payment":
			payments = payments.Add(usd)
		case "refund":
			refunds = refunds.Add(usd.Abs())
		case "chargeback":
			chargebacks = chargebacks.Add(usd.Abs())
		}
	}

	result, _ := payments.Sub(refunds).Sub(chargebacks).Round(15).Float64()
	p, _ := payments.Round(2).Float64()
	r, _ := refunds.Round(2).Float64()
	c, _ := chargebacks.Round(2).Float64()

	return RevenueSummary{
		Result: result,
		Breakdown: RevenueBreakdown{
			Payments:    p,
			Refunds:     r,
			Chargebacks: c,
		},
		Skipped: skipped,
	}
}

// MetricSum is the result of SumMetric.
type MetricSum struct {
	Result float64 `json:"result"` // total rounded to cents
	Metric string  `json:"metric"`
	Period string  `json:"period"`
	Count  int     `json:"count"`
}

// SumMetric totals already-extracted metric values over a period. An empty
// slice yields a zero result with Count 0; callers decide how to present it.
func SumMetric(values []float64, metric, from, to string) MetricSum {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	result, _ := total.Round(2).Float64()
	return MetricSum{
		Result: result,
		Metric: metric,
		Period: from + " to " + to,
		Count:  len(values),
	}
}
