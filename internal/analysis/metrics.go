package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"custdash/domain/purchase"
)

// BucketWidth is the quantity span of one purchase-pattern bucket.
const BucketWidth = 1000.0

// MaxPatternBuckets bounds the purchase-pattern histogram. Wider spreads multiply the bucket
// width by ten until the buckets fit.
const MaxPatternBuckets = 100

// maxPatternSum clamps customer totals so bucket edges stay finite.
const maxPatternSum = 1e306

// KeyMetrics summarises the filtered table and its customer summaries. Empty input yields zeros.
func KeyMetrics(filtered *purchase.Table, summaries []purchase.CustomerSummary) purchase.KeyMetrics {
	var m purchase.KeyMetrics
	if filtered.IsEmpty() {
		return m
	}

	quantities := make([]float64, len(filtered.Rows))
	customers := make(map[string]struct{})
	for i, tx := range filtered.Rows {
		quantities[i] = tx.Quantity
		customers[tx.UserID] = struct{}{}
	}
	m.TotalQuantity = floats.Sum(quantities)
	m.UniqueCustomers = len(customers)
	m.Transactions = len(filtered.Rows)
	if mean, err := stats.Mean(quantities); err == nil {
		m.MeanQuantity = mean
	}

	monetary := make([]float64, len(summaries))
	for i, s := range summaries {
		monetary[i] = s.Monetary
	}
	if median, err := stats.Median(monetary); err == nil {
		m.MedianMonetary = median
	}
	return m
}

// MonthlyTrend sums quantity per calendar month (UTC), oldest first.
func MonthlyTrend(filtered *purchase.Table) []purchase.MonthlyPoint {
	out := []purchase.MonthlyPoint{}
	if filtered.IsEmpty() {
		return out
	}
	sums := make(map[time.Time]float64)
	for _, tx := range filtered.Rows {
		d := tx.Date.UTC()
		month := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		sums[month] += tx.Quantity
	}
	for month, q := range sums {
		out = append(out, purchase.MonthlyPoint{Month: month, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// PurchasePattern compares the distribution of per-customer quantity in two periods of filtered.
// Both periods share the same buckets, each closed on the left. Buckets are BucketWidth wide unless
// that would need more than MaxPatternBuckets of them.
func PurchasePattern(filtered *purchase.Table, p1, p2 purchase.DateRange) purchase.PurchasePattern {
	sums1 := customerSums(filtered, p1)
	sums2 := customerSums(filtered, p2)

	dividers, width := patternDividers(append(append([]float64{}, sums1...), sums2...))
	buckets := make([]purchase.Bucket, len(dividers)-1)
	for i := range buckets {
		buckets[i] = purchase.Bucket{Low: dividers[i], High: dividers[i+1]}
	}

	return purchase.PurchasePattern{
		Period1: p1,
		Period2: p2,
		Width:   width,
		Buckets: buckets,
		Counts1: histogram(sums1, dividers),
		Counts2: histogram(sums2, dividers),
	}
}

// patternDividers spans floor(min/width)*width to floor(max/width)*width+width. No values give a
// single [0, BucketWidth) bucket.
func patternDividers(all []float64) ([]float64, float64) {
	width := BucketWidth
	if len(all) == 0 {
		return []float64{0, width}, width
	}
	min, max := floats.Min(all), floats.Max(all)
	for {
		lo := math.Floor(min/width) * width
		hi := math.Floor(max/width)*width + width
		if count := math.Round((hi - lo) / width); count <= MaxPatternBuckets {
			dividers := make([]float64, int(count)+1)
			floats.Span(dividers, lo, hi)
			return dividers, width
		}
		width *= 10
	}
}

// customerSums returns the sorted per-customer quantity totals within r.
func customerSums(filtered *purchase.Table, r purchase.DateRange) []float64 {
	if filtered.IsEmpty() {
		return nil
	}
	totals := make(map[string]float64)
	for _, tx := range filtered.Rows {
		if r.Contains(tx.Date) {
			totals[tx.UserID] += tx.Quantity
		}
	}
	out := make([]float64, 0, len(totals))
	for _, q := range totals {
		out = append(out, math.Max(-maxPatternSum, math.Min(q, maxPatternSum)))
	}
	sort.Float64s(out)
	return out
}

func histogram(sorted, dividers []float64) []float64 {
	counts := make([]float64, len(dividers)-1)
	if len(sorted) == 0 {
		return counts
	}
	return stat.Histogram(counts, dividers, sorted, nil)
}
