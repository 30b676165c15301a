// Package pnl holds the rounding and cumulative-sum rules every other
// component shares. Cumulative values are always re-derived from the trade
// list rather than incrementally cached so rounding drift cannot accumulate.
package pnl

import "math"

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Realized sums the supplied per-trade PnLs and rounds the total.
func Realized(pnls []float64) float64 {
	var total float64
	for _, p := range pnls {
		total += p
	}
	return Round2(total)
}

// Breakdown is the realized/unrealized/total view exposed in snapshots.
type Breakdown struct {
	Realized   float64 `json:"realized"`
	Unrealized float64 `json:"unrealized"`
	Total      float64 `json:"total"`
}

// NewBreakdown rounds the unrealized leg and combines it with realized PnL.
func NewBreakdown(realized, unrealized float64) Breakdown {
	u := Round2(unrealized)
	return Breakdown{
		Realized:   realized,
		Unrealized: u,
		Total:      Round2(realized + u),
	}
}
