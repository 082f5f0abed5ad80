package testkit

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custdash/domain/purchase"
)

func smallConfig(variant purchase.Variant) ShoppingGeneratorConfig {
	config := DefaultShoppingConfig()
	config.CustomerCount = 10
	config.StartDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	config.EndDate = time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	config.Variant = variant
	return config
}

func TestShoppingDataGenerator_Basic(t *testing.T) {
	config := smallConfig(purchase.VariantSemicolon)
	rows := NewShoppingDataGenerator(config).GenerateTransactions()
	require.NotEmpty(t, rows)

	users := map[string]bool{}
	for i, tx := range rows {
		users[tx.UserID] = true
		assert.True(t, strings.HasPrefix(tx.Ref, tx.Brand+"-"), "row %d ref %q brand %q", i, tx.Ref, tx.Brand)
		assert.NotEmpty(t, tx.Email)
		assert.Greater(t, tx.Quantity, 0.0)
		assert.False(t, tx.Date.Before(config.StartDate))
		assert.False(t, tx.Date.After(config.EndDate))
		if i > 0 {
			assert.False(t, tx.Date.Before(rows[i-1].Date), "rows are sorted by date")
		}
	}
	assert.Len(t, users, config.CustomerCount, "every customer orders at least once")
}

func TestShoppingDataGenerator_Deterministic(t *testing.T) {
	config := smallConfig(purchase.VariantComma)
	a := NewShoppingDataGenerator(config).GenerateTransactions()
	b := NewShoppingDataGenerator(config).GenerateTransactions()
	assert.Equal(t, a, b)

	config.Seed = 7
	c := NewShoppingDataGenerator(config).GenerateTransactions()
	assert.NotEqual(t, a, c)
}

func TestShoppingDataGenerator_WriteCSV(t *testing.T) {
	tests := []struct {
		variant purchase.Variant
		header  string
	}{
		{purchase.VariantSemicolon, "ref;userID;email;date;quantity"},
		{purchase.VariantComma, "ref,userId,date,quantity"},
	}
	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			gen := NewShoppingDataGenerator(smallConfig(tt.variant))
			rows := gen.GenerateTransactions()

			var buf bytes.Buffer
			require.NoError(t, gen.WriteCSV(&buf, rows))

			lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
			assert.Equal(t, tt.header, lines[0])
			assert.Len(t, lines, len(rows)+1)
		})
	}
}

func TestGenerateTableBounds(t *testing.T) {
	table := NewShoppingDataGenerator(smallConfig(purchase.VariantSemicolon)).GenerateTable()
	require.False(t, table.IsEmpty())
	assert.True(t, table.HasEmail)
	assert.Equal(t, table.Rows[0].Date, table.MinDate)
	assert.Equal(t, table.Rows[table.Len()-1].Date, table.MaxDate)
}

func TestExampleTable(t *testing.T) {
	table := ExampleTable()
	assert.Equal(t, 3, table.Len())
	assert.False(t, table.HasEmail)
	assert.Equal(t, Date("2024-03-10"), table.MaxDate)
}
