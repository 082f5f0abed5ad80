package purchase

import (
	"fmt"
	"time"
)

// Sentinels offered by the filter widgets next to real values.
const (
	AllBrands    = "All Brands"
	AllCustomers = "All Customers"
)

// DateRange is an inclusive interval of instants.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange validates that start is not after end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("end %s is before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return DateRange{Start: start, End: end}, nil
}

// DayRange covers whole calendar days: from the start of first to the last instant of last.
func DayRange(first, last time.Time) (DateRange, error) {
	return NewDateRange(StartOfDay(first), EndOfDay(last))
}

// Contains reports start <= t <= end.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// CustomerSelector is either all customers or one userId.
type CustomerSelector struct {
	All    bool   `json:"all"`
	UserID string `json:"userId,omitempty"`
}

// AnyCustomer selects every customer.
func AnyCustomer() CustomerSelector { return CustomerSelector{All: true} }

// OneCustomer selects a single userId.
func OneCustomer(userID string) CustomerSelector { return CustomerSelector{UserID: userID} }

// ParseCustomerSelection maps a widget value to a selector; "" and the sentinel mean all.
func ParseCustomerSelection(value string) CustomerSelector {
	if value == "" || value == AllCustomers {
		return AnyCustomer()
	}
	return OneCustomer(value)
}

// Matches reports whether the selector keeps userID.
func (s CustomerSelector) Matches(userID string) bool {
	return s.All || s.UserID == userID
}

// BrandSelector is either all brands or a set of brand names.
type BrandSelector struct {
	All   bool     `json:"all"`
	Names []string `json:"names,omitempty"`
}

// AnyBrand selects every brand.
func AnyBrand() BrandSelector { return BrandSelector{All: true} }

// SomeBrands selects the named brands. An empty list selects nothing.
func SomeBrands(names ...string) BrandSelector { return BrandSelector{Names: names} }

// ParseBrandSelection resolves a multi-select value. The AllBrands sentinel anywhere in the
// selection wins over explicit brands.
func ParseBrandSelection(values []string) BrandSelector {
	for _, v := range values {
		if v == AllBrands {
			return AnyBrand()
		}
	}
	return SomeBrands(values...)
}

// set builds the membership set once per filter pass.
func (s BrandSelector) set() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Names))
	for _, name := range s.Names {
		set[name] = struct{}{}
	}
	return set
}

// Matcher returns a predicate for the selector.
func (s BrandSelector) Matcher() func(brand string) bool {
	if s.All {
		return func(string) bool { return true }
	}
	set := s.set()
	return func(brand string) bool {
		_, ok := set[brand]
		return ok
	}
}

// FilterSpec is the conjunction of the three dashboard filters.
type FilterSpec struct {
	Dates    DateRange        `json:"dates"`
	Customer CustomerSelector `json:"customer"`
	Brands   BrandSelector    `json:"brands"`
}

// DefaultFilter keeps every row of t.
func DefaultFilter(t *Table) FilterSpec {
	return FilterSpec{
		Dates:    DateRange{Start: t.MinDate, End: t.MaxDate},
		Customer: AnyCustomer(),
		Brands:   AnyBrand(),
	}
}
