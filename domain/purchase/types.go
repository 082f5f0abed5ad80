// Package purchase holds the canonical transaction table and the rows derived from it.
package purchase

import (
	"fmt"
	"time"
)

// Transaction is one row of the canonical table.
type Transaction struct {
	Ref      string            `json:"ref"`
	Brand    string            `json:"brand"`
	UserID   string            `json:"userId"`
	Email    string            `json:"email,omitempty"`
	Date     time.Time         `json:"date"`
	Quantity float64           `json:"quantity"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Variant records which upload layout a table came from.
type Variant string

const (
	// VariantSemicolon: ';' separated, userID + email columns, brand derived from ref.
	VariantSemicolon Variant = "semicolon"
	// VariantComma: ',' separated, userId column.
	VariantComma Variant = "comma"
)

// Table is the canonical transaction table. It is never mutated after construction.
type Table struct {
	Rows     []Transaction
	HasEmail bool
	Variant  Variant
	// Columns lists passthrough columns in upload order.
	Columns []string
	MinDate time.Time
	MaxDate time.Time
}

// NewTable builds a table and computes its global date bounds.
func NewTable(rows []Transaction, hasEmail bool, variant Variant, columns []string) *Table {
	t := &Table{Rows: rows, HasEmail: hasEmail, Variant: variant, Columns: columns}
	for i, row := range rows {
		if i == 0 || row.Date.Before(t.MinDate) {
			t.MinDate = row.Date
		}
		if i == 0 || row.Date.After(t.MaxDate) {
			t.MaxDate = row.Date
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// IsEmpty reports whether the table has no rows.
func (t *Table) IsEmpty() bool { return t.Len() == 0 }

// derive returns a table over a subset of rows that keeps the schema flags of t.
// Date bounds are those of the subset.
func (t *Table) derive(rows []Transaction) *Table {
	return NewTable(rows, t.HasEmail, t.Variant, t.Columns)
}

// Subset returns a new table holding rows for which keep returns true. t is left untouched.
func (t *Table) Subset(keep func(Transaction) bool) *Table {
	rows := make([]Transaction, 0, len(t.Rows))
	for _, row := range t.Rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	return t.derive(rows)
}

// Column names a canonical column usable as a grouping key.
type Column string

const (
	ColUserID Column = "userId"
	ColEmail  Column = "email"
	ColBrand  Column = "brand"
	ColRef    Column = "ref"
)

// Value reads a grouping column from a transaction.
func (c Column) Value(tx Transaction) string {
	switch c {
	case ColUserID:
		return tx.UserID
	case ColEmail:
		return tx.Email
	case ColBrand:
		return tx.Brand
	case ColRef:
		return tx.Ref
	default:
		panic(fmt.Sprintf("purchase: unknown column %q", string(c)))
	}
}

// CustomerColumns returns the columns identifying a customer in t: userId, plus email when present.
func (t *Table) CustomerColumns() []Column {
	if t.HasEmail {
		return []Column{ColUserID, ColEmail}
	}
	return []Column{ColUserID}
}
