package dataset

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custdash/adapters/excel"
	"custdash/domain/core"
	"custdash/domain/purchase"
	apperrors "custdash/internal/errors"
)

func readCSV(t *testing.T, src string) *excel.RawTable {
	t.Helper()
	raw, err := excel.NewDataReader(excel.DefaultReaderConfig()).Read(strings.NewReader(src), excel.FormatCSV)
	require.NoError(t, err)
	return raw
}

func TestDeriveBrand(t *testing.T) {
	tests := map[string]string{
		"ACME-01X": "ACMEX",
		"ACME01":   "ACME",
		"aBc_9d":   "aBcd",
		"123-45":   "",
		"":         "",
		"ÉCLAT1":   "CLAT",
	}
	for ref, want := range tests {
		assert.Equal(t, want, DeriveBrand(ref), "ref %q", ref)
	}
}

func TestNormalizeSemicolonVariant(t *testing.T) {
	raw := readCSV(t, "ref;userID;email;date;quantity;store\n"+
		"ACME-01X;1;a@x.io;2024-01-01;5;Lisbon\n"+
		"ZETA01;2;b@x.io;2024-03-10 14:30:00;2,5;Porto\n")

	table, err := Normalize(raw)
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	assert.True(t, table.HasEmail)
	assert.Equal(t, purchase.VariantSemicolon, table.Variant)
	assert.Equal(t, []string{"store"}, table.Columns)

	first := table.Rows[0]
	assert.Equal(t, "ACMEX", first.Brand)
	assert.Equal(t, "1", first.UserID)
	assert.Equal(t, "a@x.io", first.Email)
	assert.Equal(t, 5.0, first.Quantity)
	assert.Equal(t, "Lisbon", first.Extra["store"])

	second := table.Rows[1]
	assert.Equal(t, 2.5, second.Quantity)
	assert.Equal(t, time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC), second.Date)
	assert.Equal(t, time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC), table.MaxDate)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), table.MinDate)
}

func TestNormalizeCommaVariantWithBrandColumn(t *testing.T) {
	raw := readCSV(t, "ref,brand,userId,date,quantity\n"+
		"X-1,Acme Corp,7,01/15/2024,3\n")

	table, err := Normalize(raw)
	require.NoError(t, err)

	assert.False(t, table.HasEmail)
	assert.Equal(t, purchase.VariantComma, table.Variant)
	assert.Equal(t, "Acme Corp", table.Rows[0].Brand, "a present brand column is used as is")
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), table.Rows[0].Date)
}

func TestNormalizeMissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		missing string
	}{
		{"no date", "ref,userId,quantity\nA1,1,2\n", "date"},
		{"no date reported before others", "ref,quantity\nA1,2\n", "date"},
		{"no ref", "userId,date,quantity\n1,2024-01-01,2\n", "ref"},
		{"no user", "ref,date,quantity\nA1,2024-01-01,2\n", "userId"},
		{"no quantity", "ref,userId,date\nA1,1,2024-01-01\n", "quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Normalize(readCSV(t, tt.src))
			require.Error(t, err)
			assert.Nil(t, table)
			assert.True(t, errors.Is(err, core.ErrMissingColumn))
			assert.Equal(t, apperrors.CodeSchemaError, apperrors.GetCode(err))
			assert.Contains(t, err.Error(), `"`+tt.missing+`"`)
		})
	}
}

func TestNormalizeRejectsWholeLoadOnBadDate(t *testing.T) {
	raw := readCSV(t, "ref,userId,date,quantity\n"+
		"A1,1,2024-01-01,1\n"+
		"A2,1,next tuesday,1\n"+
		"A3,1,2024-01-03,1\n")

	table, err := Normalize(raw)
	require.Error(t, err)
	assert.Nil(t, table)
	assert.True(t, errors.Is(err, core.ErrInvalidDate))
	assert.Contains(t, err.Error(), "line 3")
}

func TestNormalizeRejectsEmptyDate(t *testing.T) {
	_, err := Normalize(readCSV(t, "ref,userId,date,quantity\nA1,1,,1\n"))
	assert.True(t, errors.Is(err, core.ErrInvalidDate))
}

func TestNormalizeRejectsBadQuantity(t *testing.T) {
	for _, q := range []string{"lots", "NaN", ""} {
		_, err := Normalize(readCSV(t, "ref,userId,date,quantity\nA1,1,2024-01-01,"+q+"\n"))
		assert.True(t, errors.Is(err, core.ErrInvalidQuantity), "quantity %q", q)
	}
}

func TestNormalizeUserIDAlias(t *testing.T) {
	table, err := Normalize(readCSV(t, "ref;userID;date;quantity\nA1;99;2024-01-01;1\n"))
	require.NoError(t, err)
	assert.Equal(t, "99", table.Rows[0].UserID)

	// userId wins when both spellings exist
	table, err = Normalize(readCSV(t, "ref,userID,userId,date,quantity\nA1,old,new,2024-01-01,1\n"))
	require.NoError(t, err)
	assert.Equal(t, "new", table.Rows[0].UserID)
	assert.Equal(t, []string{"userID"}, table.Columns)
}

func TestNormalizeHeaderOnly(t *testing.T) {
	table, err := Normalize(readCSV(t, "ref,userId,date,quantity\n"))
	require.NoError(t, err)
	assert.True(t, table.IsEmpty())
}

func TestNormalizeExcelSerialDates(t *testing.T) {
	raw := &excel.RawTable{
		Headers: []string{"ref", "userId", "date", "quantity"},
		Rows:    [][]string{{"A1", "1", "45292", "4"}},
		Format:  excel.FormatXLSX,
	}
	table, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), table.Rows[0].Date)

	raw.Format = excel.FormatCSV
	_, err = Normalize(raw)
	assert.True(t, errors.Is(err, core.ErrInvalidDate), "serials are only accepted from workbooks")
}

func TestNormalizeNil(t *testing.T) {
	_, err := Normalize(nil)
	assert.True(t, errors.Is(err, core.ErrEmptyFile))
}
