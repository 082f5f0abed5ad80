package analysis

import (
	"fmt"

	"custdash/domain/core"
	"custdash/domain/purchase"
)

// Kind selects one of the three dashboard pipelines.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindBrand    Kind = "brand"
	KindProduct  Kind = "product"
)

// Kinds lists the pipelines in menu order.
var Kinds = []Kind{KindCustomer, KindBrand, KindProduct}

// ParseKind maps a menu value to a Kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case KindCustomer, KindBrand, KindProduct:
		return Kind(value), nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownAnalysis, value)
}

// Params carries the per-view controls. Zero values select defaults.
type Params struct {
	Mode           purchase.SegmentMode
	KCustomers     int
	KProducts      int
	KBrandProducts int
	// ProductBrand restricts the top-products-by-brand table to one brand when set.
	ProductBrand string
	// Period1 and Period2 default to the bounds of the canonical table.
	Period1 *purchase.DateRange
	Period2 *purchase.DateRange
}

// Result is the output of one pipeline run. Exactly one of the per-kind sections is set.
type Result struct {
	Kind     Kind                `json:"kind"`
	Filter   purchase.FilterSpec `json:"filter"`
	Rows     int                 `json:"rows"`
	HasEmail bool                `json:"hasEmail"`
	Customer *CustomerResult     `json:"customer,omitempty"`
	Brand    *BrandResult        `json:"brand,omitempty"`
	Product  *ProductResult      `json:"product,omitempty"`
}

// CustomerResult holds the customer analysis tables.
type CustomerResult struct {
	Metrics   purchase.KeyMetrics        `json:"metrics"`
	Trend     []purchase.MonthlyPoint    `json:"trend"`
	Summaries []purchase.CustomerSummary `json:"summaries"`
	// BrandCustomers is the RFM table keyed by brand and customer.
	BrandCustomers []purchase.CustomerSummary     `json:"brandCustomers"`
	Mode           purchase.SegmentMode           `json:"mode"`
	Segments       []purchase.BrandSegmentSummary `json:"segments"`
	Pattern        purchase.PurchasePattern       `json:"pattern"`
}

// BrandResult holds the brand analysis tables.
type BrandResult struct {
	SalesByBrand purchase.Ranking `json:"salesByBrand"`
	TopCustomers purchase.Ranking `json:"topCustomers"`
}

// ProductResult holds the product analysis tables.
type ProductResult struct {
	TopProducts purchase.Ranking `json:"topProducts"`
	TopByBrand  purchase.Ranking `json:"topByBrand"`
	Breakdown   purchase.Ranking `json:"breakdown"`
}

// Run filters canonical once and runs the pipeline for kind on the result.
func Run(kind Kind, canonical *purchase.Table, spec purchase.FilterSpec, params Params) (*Result, error) {
	if canonical == nil {
		return nil, core.ErrNoDataset
	}
	filtered := Filter(canonical, spec)
	result := &Result{Kind: kind, Filter: spec, Rows: filtered.Len(), HasEmail: canonical.HasEmail}

	switch kind {
	case KindCustomer:
		result.Customer = CustomerAnalysis(filtered, canonical, params)
	case KindBrand:
		result.Brand = BrandAnalysis(filtered, params)
	case KindProduct:
		result.Product = ProductAnalysis(filtered, params)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownAnalysis, kind)
	}
	return result, nil
}

// CustomerAnalysis builds the RFM view. canonical supplies the recency baseline and the default periods.
func CustomerAnalysis(filtered, canonical *purchase.Table, params Params) *CustomerResult {
	mode := params.Mode
	if mode == "" {
		mode = purchase.ModeCount
	}
	summaries := Segment(filtered, ByCustomer, canonical.MaxDate)
	brandCustomers := Segment(filtered, ByBrandCustomer, canonical.MaxDate)

	global := purchase.DateRange{Start: canonical.MinDate, End: canonical.MaxDate}
	p1, p2 := global, global
	if params.Period1 != nil {
		p1 = *params.Period1
	}
	if params.Period2 != nil {
		p2 = *params.Period2
	}

	return &CustomerResult{
		Metrics:        KeyMetrics(filtered, summaries),
		Trend:          MonthlyTrend(filtered),
		Summaries:      summaries,
		BrandCustomers: brandCustomers,
		Mode:           mode,
		Segments:       BrandSegments(brandCustomers, mode),
		Pattern:        PurchasePattern(filtered, p1, p2),
	}
}

// BrandAnalysis builds sales by brand and the top customers of each brand.
func BrandAnalysis(filtered *purchase.Table, params Params) *BrandResult {
	customerKeys := append([]purchase.Column{purchase.ColBrand}, filtered.CustomerColumns()...)
	return &BrandResult{
		SalesByBrand: purchase.Ranking{
			Columns: []purchase.Column{purchase.ColBrand},
			Rows:    Totals(filtered, purchase.ColBrand),
		},
		TopCustomers: purchase.Ranking{
			Columns: customerKeys,
			Rows: TopK(filtered, RankSpec{
				GroupBy:     customerKeys,
				PartitionBy: purchase.ColBrand,
				K:           params.KCustomers,
				Bounds:      CustomerTopK,
			}),
		},
	}
}

// ProductAnalysis builds the product rankings and the brand × product × customer breakdown.
func ProductAnalysis(filtered *purchase.Table, params Params) *ProductResult {
	brandRef := []purchase.Column{purchase.ColBrand, purchase.ColRef}

	byBrand := RankSpec{
		GroupBy:     brandRef,
		PartitionBy: purchase.ColBrand,
		K:           params.KBrandProducts,
		Bounds:      BrandProductTopK,
	}
	scope := filtered
	if params.ProductBrand != "" && params.ProductBrand != purchase.AllBrands {
		scope = filtered.Subset(func(tx purchase.Transaction) bool { return tx.Brand == params.ProductBrand })
		byBrand.PartitionBy = ""
	}

	breakdownKeys := append(append([]purchase.Column{}, brandRef...), filtered.CustomerColumns()...)
	return &ProductResult{
		TopProducts: purchase.Ranking{
			Columns: []purchase.Column{purchase.ColRef},
			Rows: TopK(filtered, RankSpec{
				GroupBy: []purchase.Column{purchase.ColRef},
				K:       params.KProducts,
				Bounds:  ProductTopK,
			}),
		},
		TopByBrand: purchase.Ranking{Columns: brandRef, Rows: TopK(scope, byBrand)},
		Breakdown:  purchase.Ranking{Columns: breakdownKeys, Rows: Breakdown(filtered, breakdownKeys, len(brandRef))},
	}
}
