package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"custdash/adapters/excel"
	"custdash/domain/core"
	"custdash/domain/purchase"
	"custdash/internal/errors"
)

// Canonical column names of an upload.
const (
	colDate     = "date"
	colRef      = "ref"
	colUserID   = "userId"
	colUserIDv2 = "userID"
	colEmail    = "email"
	colBrand    = "brand"
	colQuantity = "quantity"
)

// required columns, in the order they are checked
var requiredColumns = []string{colDate, colRef, colUserID, colQuantity}

// dateLayouts are tried in order; values without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"02.01.2006",
}

// Normalize turns an uploaded table into the canonical table. Any missing required column or
// unparsable value rejects the whole table with a SCHEMA_ERROR.
func Normalize(raw *excel.RawTable) (*purchase.Table, error) {
	if raw == nil || len(raw.Headers) == 0 {
		return nil, errors.SchemaError(core.ErrEmptyFile)
	}

	idx := resolveColumns(raw.Headers)
	for _, name := range requiredColumns {
		if _, ok := idx[name]; !ok {
			return nil, errors.SchemaError(core.NewMissingColumnError(name))
		}
	}
	emailAt, hasEmail := idx[colEmail]
	brandAt, hasBrand := idx[colBrand]

	known := map[int]bool{}
	for _, i := range idx {
		known[i] = true
	}
	var passthrough []int
	var columns []string
	for i, h := range raw.Headers {
		if !known[i] && h != "" {
			passthrough = append(passthrough, i)
			columns = append(columns, h)
		}
	}

	rows := make([]purchase.Transaction, 0, len(raw.Rows))
	for n, cells := range raw.Rows {
		line := n + 2 // header is line 1

		date, err := parseDate(cells[idx[colDate]], raw.Format)
		if err != nil {
			return nil, errors.SchemaError(core.NewInvalidDateError(line, cells[idx[colDate]]))
		}
		qty, err := parseQuantity(cells[idx[colQuantity]])
		if err != nil {
			return nil, errors.SchemaError(core.NewInvalidQuantityError(line, cells[idx[colQuantity]]))
		}

		tx := purchase.Transaction{
			Ref:      cells[idx[colRef]],
			UserID:   cells[idx[colUserID]],
			Date:     date,
			Quantity: qty,
		}
		if hasBrand {
			tx.Brand = cells[brandAt]
		} else {
			tx.Brand = DeriveBrand(tx.Ref)
		}
		if hasEmail {
			tx.Email = cells[emailAt]
		}
		if len(passthrough) > 0 {
			tx.Extra = make(map[string]string, len(passthrough))
			for _, i := range passthrough {
				tx.Extra[raw.Headers[i]] = cells[i]
			}
		}
		rows = append(rows, tx)
	}

	return purchase.NewTable(rows, hasEmail, variantOf(raw, idx), columns), nil
}

// resolveColumns maps canonical names to header positions. Exact names win; otherwise a
// case-insensitive match is accepted. userID stands in for userId when the latter is absent.
func resolveColumns(headers []string) map[string]int {
	exact := make(map[string]int, len(headers))
	folded := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := exact[h]; !dup {
			exact[h] = i
		}
		if _, dup := folded[strings.ToLower(h)]; !dup {
			folded[strings.ToLower(h)] = i
		}
	}

	idx := make(map[string]int)
	for _, name := range []string{colDate, colRef, colEmail, colBrand, colQuantity} {
		if i, ok := exact[name]; ok {
			idx[name] = i
		} else if i, ok := folded[name]; ok {
			idx[name] = i
		}
	}
	if i, ok := exact[colUserID]; ok {
		idx[colUserID] = i
	} else if i, ok := exact[colUserIDv2]; ok {
		idx[colUserID] = i
	} else if i, ok := folded[strings.ToLower(colUserID)]; ok {
		idx[colUserID] = i
	}
	return idx
}

func variantOf(raw *excel.RawTable, idx map[string]int) purchase.Variant {
	if raw.Delimiter == ';' {
		return purchase.VariantSemicolon
	}
	if raw.Delimiter == 0 {
		if _, ok := idx[colEmail]; ok {
			return purchase.VariantSemicolon
		}
	}
	return purchase.VariantComma
}

// DeriveBrand keeps the ASCII letters of a product reference, in order and case preserved.
func DeriveBrand(ref string) string {
	var b strings.Builder
	b.Grow(len(ref))
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func parseDate(value string, format excel.Format) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	if format == excel.FormatXLSX {
		if t, ok := excel.SerialToTime(value); ok {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// parseQuantity accepts a decimal comma when the value has no '.'.
func parseQuantity(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, ",") && !strings.Contains(value, ".") {
		value = strings.Replace(value, ",", ".", 1)
	}
	q, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0, fmt.Errorf("quantity %q is not finite", value)
	}
	return q, nil
}
