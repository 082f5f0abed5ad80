// Package analysis implements the dashboard pipelines: filtering, RFM segmentation and rankings.
// Every function here is pure; inputs are never mutated.
package analysis

import (
	"sort"
	"time"

	"custdash/domain/purchase"
)

// Filter keeps the rows of table that satisfy the date, customer and brand predicates.
func Filter(table *purchase.Table, spec purchase.FilterSpec) *purchase.Table {
	if table == nil {
		return purchase.NewTable(nil, false, "", nil)
	}
	brandOK := spec.Brands.Matcher()
	return table.Subset(func(tx purchase.Transaction) bool {
		return spec.Dates.Contains(tx.Date) &&
			spec.Customer.Matches(tx.UserID) &&
			brandOK(tx.Brand)
	})
}

// FilterOptions populates the filter widgets.
type FilterOptions struct {
	Customers []string  `json:"customers"`
	Brands    []string  `json:"brands"`
	MinDate   time.Time `json:"minDate"`
	MaxDate   time.Time `json:"maxDate"`
	HasEmail  bool      `json:"hasEmail"`
}

// Options lists the unique customers and brands of table in natural order with its date bounds.
func Options(table *purchase.Table) FilterOptions {
	opts := FilterOptions{Customers: []string{}, Brands: []string{}}
	if table == nil {
		return opts
	}
	customers := make(map[string]struct{})
	brands := make(map[string]struct{})
	for _, tx := range table.Rows {
		customers[tx.UserID] = struct{}{}
		brands[tx.Brand] = struct{}{}
	}
	opts.Customers = sortedNatural(customers)
	opts.Brands = sortedNatural(brands)
	opts.MinDate = table.MinDate
	opts.MaxDate = table.MaxDate
	opts.HasEmail = table.HasEmail
	return opts
}

func sortedNatural(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return compareNatural(out[i], out[j]) < 0 })
	return out
}
