package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"custdash/domain/core"
	"custdash/domain/purchase"
	"custdash/internal/analysis"
	"custdash/internal/errors"
)

// viewRequest is the parsed query of a dashboard or API request.
type viewRequest struct {
	Kind   analysis.Kind
	Spec   purchase.FilterSpec
	Params analysis.Params

	// raw values echoed back into the filter form
	From, To     string
	Customer     string
	Brands       []string
	P1From, P1To string
	P2From, P2To string
}

// parseViewRequest reads the filters and view controls. Dates are whole days (YYYY-MM-DD); the
// end day is included up to its last instant. Omitted dates default to the bounds of table.
// An absent brand parameter selects every brand; brand= with no value selects none.
func parseViewRequest(c *gin.Context, table *purchase.Table, kind analysis.Kind) (viewRequest, error) {
	req := viewRequest{
		Kind:     kind,
		From:     strings.TrimSpace(c.Query("from")),
		To:       strings.TrimSpace(c.Query("to")),
		Customer: strings.TrimSpace(c.Query("customer")),
		P1From:   strings.TrimSpace(c.Query("p1_from")),
		P1To:     strings.TrimSpace(c.Query("p1_to")),
		P2From:   strings.TrimSpace(c.Query("p2_from")),
		P2To:     strings.TrimSpace(c.Query("p2_to")),
	}

	dates, err := dayRange(req.From, req.To, table)
	if err != nil {
		return req, err
	}
	req.Spec = purchase.FilterSpec{
		Dates:    dates,
		Customer: purchase.ParseCustomerSelection(req.Customer),
		Brands:   purchase.AnyBrand(),
	}

	if values, present := c.GetQueryArray("brand"); present {
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				req.Brands = append(req.Brands, v)
			}
		}
		req.Spec.Brands = purchase.ParseBrandSelection(req.Brands)
	}

	mode, ok := analysis.ParseSegmentMode(c.Query("mode"))
	if !ok {
		return req, errors.InvalidInput(fmt.Sprintf("mode must be %q or %q", purchase.ModeCount, purchase.ModePercent))
	}
	req.Params.Mode = mode
	req.Params.ProductBrand = strings.TrimSpace(c.Query("product_brand"))

	for name, dst := range map[string]*int{
		"k_customers":      &req.Params.KCustomers,
		"k_products":       &req.Params.KProducts,
		"k_brand_products": &req.Params.KBrandProducts,
	} {
		if *dst, err = optionalInt(c.Query(name), name); err != nil {
			return req, err
		}
	}

	if req.P1From != "" || req.P1To != "" {
		r, err := dayRange(req.P1From, req.P1To, table)
		if err != nil {
			return req, err
		}
		req.Params.Period1 = &r
	}
	if req.P2From != "" || req.P2To != "" {
		r, err := dayRange(req.P2From, req.P2To, table)
		if err != nil {
			return req, err
		}
		req.Params.Period2 = &r
	}
	return req, nil
}

// dayRange builds an inclusive range from two optional days, defaulting to the bounds of table.
func dayRange(from, to string, table *purchase.Table) (purchase.DateRange, error) {
	start, end := table.MinDate, table.MaxDate
	if from != "" {
		d, err := parseDay(from, "from")
		if err != nil {
			return purchase.DateRange{}, err
		}
		start = purchase.StartOfDay(d)
	}
	if to != "" {
		d, err := parseDay(to, "to")
		if err != nil {
			return purchase.DateRange{}, err
		}
		end = purchase.EndOfDay(d)
	}
	r, err := purchase.NewDateRange(start, end)
	if err != nil {
		return r, errors.InvalidInputf(fmt.Errorf("%w: %v", core.ErrInvalidRange, err), "invalid date range")
	}
	return r, nil
}

func parseDay(value, name string) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, value, time.UTC)
	if err != nil {
		return d, errors.InvalidInputf(err, "%s must be a date like 2024-01-31", name)
	}
	return d, nil
}

func optionalInt(value, name string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.InvalidInputf(err, "%s must be an integer", name)
	}
	return n, nil
}
