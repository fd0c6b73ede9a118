package core

import "math"

// LineTotal returns the derived total of a single record, rounded to two
// decimals. Totals are never stored; they are recomputed from quantity and
// unit price on every read.
func LineTotal(r Record) float64 {
	return round2(r.Quantity * r.UnitPrice)
}

// AggregateTotal sums the unrounded products of all records and rounds once
// at the end, so per-line rounding error does not compound.
func AggregateTotal(records []Record) float64 {
	var sum float64
	for _, r := range records {
		sum += r.Quantity * r.UnitPrice
	}
	return round2(sum)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
