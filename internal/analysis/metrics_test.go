package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custdash/domain/purchase"
	"custdash/internal/testkit"
)

func TestKeyMetrics(t *testing.T) {
	table := testkit.ExampleTable()
	summaries := Segment(table, ByCustomer, table.MaxDate)
	m := KeyMetrics(table, summaries)

	assert.Equal(t, 18.0, m.TotalQuantity)
	assert.Equal(t, 2, m.UniqueCustomers)
	assert.Equal(t, 3, m.Transactions)
	assert.InDelta(t, 6.0, m.MeanQuantity, 1e-9)
	assert.InDelta(t, 9.0, m.MedianMonetary, 1e-9)
}

func TestKeyMetricsEmpty(t *testing.T) {
	assert.Equal(t, purchase.KeyMetrics{}, KeyMetrics(testkit.Table(), nil))
}

func TestMonthlyTrend(t *testing.T) {
	points := MonthlyTrend(testkit.ExampleTable())
	require.Len(t, points, 2)
	assert.Equal(t, testkit.Date("2024-01-01"), points[0].Month)
	assert.Equal(t, 5.0, points[0].Quantity)
	assert.Equal(t, testkit.Date("2024-03-01"), points[1].Month)
	assert.Equal(t, 13.0, points[1].Quantity)
}

func TestPurchasePattern(t *testing.T) {
	table := testkit.Table(
		testkit.Tx("1", "A", "A1", 400, "2024-01-05"),
		testkit.Tx("1", "A", "A1", 700, "2024-01-20"),
		testkit.Tx("2", "A", "A1", 999, "2024-01-07"),
		testkit.Tx("3", "A", "A1", 2500, "2024-02-03"),
		testkit.Tx("2", "A", "A1", 1000, "2024-02-10"),
	)
	jan, err := purchase.DayRange(testkit.Date("2024-01-01"), testkit.Date("2024-01-31"))
	require.NoError(t, err)
	feb, err := purchase.DayRange(testkit.Date("2024-02-01"), testkit.Date("2024-02-29"))
	require.NoError(t, err)

	p := PurchasePattern(table, jan, feb)

	// January: u1=1100, u2=999. February: u3=2500, u2=1000.
	require.Len(t, p.Buckets, 3)
	assert.Equal(t, purchase.Bucket{Low: 0, High: 1000}, p.Buckets[0])
	assert.Equal(t, purchase.Bucket{Low: 2000, High: 3000}, p.Buckets[2])
	assert.Equal(t, []float64{1, 1, 0}, p.Counts1)
	assert.Equal(t, []float64{0, 1, 1}, p.Counts2, "buckets are closed on the left")
}

func TestPurchasePatternEmptyPeriods(t *testing.T) {
	table := testkit.ExampleTable()
	r, err := purchase.DayRange(testkit.Date("2030-01-01"), testkit.Date("2030-01-31"))
	require.NoError(t, err)

	p := PurchasePattern(table, r, r)
	assert.Equal(t, []purchase.Bucket{{Low: 0, High: 1000}}, p.Buckets)
	assert.Equal(t, []float64{0}, p.Counts1)
	assert.Equal(t, []float64{0}, p.Counts2)

	all := purchase.DateRange{Start: table.MinDate, End: table.MaxDate}
	p = PurchasePattern(table, all, r)
	assert.Equal(t, []float64{2}, p.Counts1)
	assert.Equal(t, []float64{0}, p.Counts2)
}

func TestPurchasePatternWidensBuckets(t *testing.T) {
	table := testkit.Table(
		testkit.Tx("1", "A", "A1", 1, "2024-01-05"),
		testkit.Tx("2", "A", "A1", 1e18, "2024-01-07"),
	)
	all := purchase.DateRange{Start: table.MinDate, End: table.MaxDate}

	p := PurchasePattern(table, all, all)

	require.LessOrEqual(t, len(p.Buckets), MaxPatternBuckets)
	assert.Greater(t, p.Width, BucketWidth)
	assert.Equal(t, 0.0, p.Buckets[0].Low)
	assert.Greater(t, p.Buckets[len(p.Buckets)-1].High, 1e18)
	assert.Equal(t, 2.0, floatSum(p.Counts1))
	assert.Equal(t, p.Counts1, p.Counts2)
}

func TestPurchasePatternDefaultWidth(t *testing.T) {
	table := testkit.ExampleTable()
	all := purchase.DateRange{Start: table.MinDate, End: table.MaxDate}
	assert.Equal(t, BucketWidth, PurchasePattern(table, all, all).Width)
}

func floatSum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

func TestPurchasePatternExtremeTotalsStayFinite(t *testing.T) {
	table := testkit.Table(
		testkit.Tx("1", "A", "A1", -1e308, "2024-01-05"),
		testkit.Tx("2", "A", "A1", 1e308, "2024-01-07"),
		testkit.Tx("2", "A", "A1", 1e308, "2024-01-08"),
	)
	all := purchase.DateRange{Start: table.MinDate, End: table.MaxDate}

	p := PurchasePattern(table, all, all)

	require.NotEmpty(t, p.Buckets)
	require.LessOrEqual(t, len(p.Buckets), MaxPatternBuckets)
	assert.False(t, math.IsInf(p.Buckets[0].Low, 0))
	assert.False(t, math.IsInf(p.Buckets[len(p.Buckets)-1].High, 0))
	assert.Equal(t, 2.0, floatSum(p.Counts1))
}
