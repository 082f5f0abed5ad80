// Package testkit provides fixtures and synthetic purchase data for tests and demos.
package testkit

import (
	"time"

	"custdash/domain/purchase"
)

// Date parses "2006-01-02" or DateLayout in UTC and panics on malformed input.
func Date(value string) time.Time {
	for _, layout := range []string{DateLayout, time.DateOnly} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t
		}
	}
	panic("testkit: bad date " + value)
}

// Tx builds a transaction without email.
func Tx(userID, brand, ref string, qty float64, date string) purchase.Transaction {
	return purchase.Transaction{Ref: ref, Brand: brand, UserID: userID, Date: Date(date), Quantity: qty}
}

// Table builds a canonical table; HasEmail is set when any row carries an email.
func Table(rows ...purchase.Transaction) *purchase.Table {
	hasEmail := false
	for _, tx := range rows {
		if tx.Email != "" {
			hasEmail = true
			break
		}
	}
	variant := purchase.VariantComma
	if hasEmail {
		variant = purchase.VariantSemicolon
	}
	return purchase.NewTable(rows, hasEmail, variant, nil)
}

// ExampleTable is the three-purchase reference dataset: customer 1 buys ACME twice, customer 2
// buys ZETA once on the last day.
func ExampleTable() *purchase.Table {
	return Table(
		Tx("1", "ACME", "ACME01", 5, "2024-01-01"),
		Tx("1", "ACME", "ACME02", 3, "2024-03-01"),
		Tx("2", "ZETA", "ZETA01", 10, "2024-03-10"),
	)
}
