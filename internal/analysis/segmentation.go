package analysis

import (
	"math"
	"time"

	"custdash/domain/purchase"
	"custdash/domain/segment"
)

// SegmentKeys selects the grouping of an RFM table.
type SegmentKeys int

const (
	// ByCustomer groups by userId, plus email when the table has one.
	ByCustomer SegmentKeys = iota
	// ByBrandCustomer groups by brand then the customer columns.
	ByBrandCustomer
)

func (k SegmentKeys) columns(t *purchase.Table) []purchase.Column {
	cols := t.CustomerColumns()
	if k == ByBrandCustomer {
		return append([]purchase.Column{purchase.ColBrand}, cols...)
	}
	return cols
}

// Segment builds one RFM summary per group of filtered. Recency is measured against globalMax,
// the last purchase date of the unfiltered table, so narrowing the filter never makes a
// customer look more recent.
func Segment(filtered *purchase.Table, keys SegmentKeys, globalMax time.Time) []purchase.CustomerSummary {
	if filtered.IsEmpty() {
		return []purchase.CustomerSummary{}
	}
	cols := keys.columns(filtered)
	groups := aggregate(filtered.Rows, cols)

	out := make([]purchase.CustomerSummary, 0, len(groups))
	for _, g := range groups {
		s := purchase.CustomerSummary{
			LastPurchaseDate: g.Acc.Last,
			Frequency:        g.Acc.Count,
			Monetary:         g.Acc.Sum,
			Recency:          RecencyDays(globalMax, g.Acc.Last),
		}
		for i, col := range cols {
			switch col {
			case purchase.ColBrand:
				s.Brand = g.Key[i]
			case purchase.ColUserID:
				s.UserID = g.Key[i]
			case purchase.ColEmail:
				s.Email = g.Key[i]
			}
		}
		s.Segment = segment.Classify(s.Recency)
		out = append(out, s)
	}
	return out
}

// RecencyDays is the number of whole days from last to globalMax, floored.
func RecencyDays(globalMax, last time.Time) int {
	return int(math.Floor(globalMax.Sub(last).Hours() / 24))
}

// BrandSegments rolls brand-keyed summaries up into one row per brand, brands in natural order.
// In percent mode each cell is divided by the row total; a zero total leaves the row at zero.
func BrandSegments(rows []purchase.CustomerSummary, mode purchase.SegmentMode) []purchase.BrandSegmentSummary {
	index := make(map[string]*purchase.BrandSegmentSummary)
	brands := make(map[string]struct{})
	for _, r := range rows {
		b, ok := index[r.Brand]
		if !ok {
			b = &purchase.BrandSegmentSummary{Brand: r.Brand}
			index[r.Brand] = b
			brands[r.Brand] = struct{}{}
		}
		b.Cells[r.Segment]++
		b.Total++
	}

	out := make([]purchase.BrandSegmentSummary, 0, len(index))
	for _, brand := range sortedNatural(brands) {
		b := *index[brand]
		if mode == purchase.ModePercent && b.Total > 0 {
			for i := range b.Cells {
				b.Cells[i] = b.Cells[i] / float64(b.Total) * 100
			}
		}
		out = append(out, b)
	}
	return out
}

// ParseSegmentMode maps a query value to a mode; empty means counts.
func ParseSegmentMode(value string) (purchase.SegmentMode, bool) {
	switch purchase.SegmentMode(value) {
	case "", purchase.ModeCount:
		return purchase.ModeCount, true
	case purchase.ModePercent:
		return purchase.ModePercent, true
	}
	return "", false
}
