package purchase

import (
	"time"

	"custdash/domain/segment"
)

// CustomerSummary is one RFM row for a customer, or for a (brand, customer) pair.
type CustomerSummary struct {
	Brand            string          `json:"brand,omitempty"`
	UserID           string          `json:"userId"`
	Email            string          `json:"email,omitempty"`
	LastPurchaseDate time.Time       `json:"lastPurchaseDate"`
	Frequency        int             `json:"frequency"`
	Monetary         float64         `json:"monetary"`
	Recency          int             `json:"recency"`
	Segment          segment.Segment `json:"segment"`
}

// SegmentMode selects counts or row percentages in the brand roll-up.
type SegmentMode string

const (
	ModeCount   SegmentMode = "count"
	ModePercent SegmentMode = "percent"
)

// BrandSegmentSummary is one brand row of the brand × segment roll-up.
// Cells are indexed by segment.Segment.
type BrandSegmentSummary struct {
	Brand string     `json:"brand"`
	Cells [4]float64 `json:"cells"`
	Total int        `json:"total"`
}

// Cell returns the value for one segment.
func (b BrandSegmentSummary) Cell(s segment.Segment) float64 { return b.Cells[s] }

// RankingRow is one aggregated group of a ranking.
type RankingRow struct {
	Partition string   `json:"partition,omitempty"`
	Keys      []string `json:"keys"`
	Quantity  float64  `json:"quantity"`
	Rank      int      `json:"rank"`
}

// Ranking is a ranked table with its column names.
type Ranking struct {
	Columns []Column     `json:"columns"`
	Rows    []RankingRow `json:"rows"`
}

// KeyMetrics are the headline numbers of the customer view.
type KeyMetrics struct {
	TotalQuantity   float64 `json:"totalQuantity"`
	UniqueCustomers int     `json:"uniqueCustomers"`
	Transactions    int     `json:"transactions"`
	MeanQuantity    float64 `json:"meanQuantityPerTransaction"`
	MedianMonetary  float64 `json:"medianMonetary"`
}

// MonthlyPoint is the summed quantity of one calendar month.
type MonthlyPoint struct {
	Month    time.Time `json:"month"`
	Quantity float64   `json:"quantity"`
}

// Bucket is a half-open quantity interval [Low, High).
type Bucket struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// PurchasePattern compares how many customers fall in each quantity bucket in two periods.
type PurchasePattern struct {
	Period1 DateRange `json:"period1"`
	Period2 DateRange `json:"period2"`
	Width   float64   `json:"width"`
	Buckets []Bucket  `json:"buckets"`
	Counts1 []float64 `json:"counts1"`
	Counts2 []float64 `json:"counts2"`
}
