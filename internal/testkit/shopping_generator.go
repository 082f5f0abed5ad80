package testkit

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"custdash/domain/purchase"
)

// DateLayout is the timestamp format written by the generator.
const DateLayout = "2006-01-02 15:04:05"

// brandNames are the synthetic brands; refs are NAME-NN so the derived brand is NAME.
var brandNames = []string{"ACME", "ZETA", "NOVA", "ORBIT", "LUMA", "KITE", "PRISM", "VEGA"}

// ShoppingGeneratorConfig configures the purchase data generator
type ShoppingGeneratorConfig struct {
	CustomerCount        int              `json:"customer_count"`
	BrandCount           int              `json:"brand_count"`
	ProductsPerBrand     int              `json:"products_per_brand"`
	AvgOrdersPerCustomer float64          `json:"avg_orders_per_customer"`
	BulkOrderRate        float64          `json:"bulk_order_rate"`
	StartDate            time.Time        `json:"start_date"`
	EndDate              time.Time        `json:"end_date"`
	Seed                 int64            `json:"seed"`
	Variant              purchase.Variant `json:"variant"`
}

// DefaultShoppingConfig returns sensible defaults for purchase data generation
func DefaultShoppingConfig() ShoppingGeneratorConfig {
	return ShoppingGeneratorConfig{
		CustomerCount:        200,
		BrandCount:           5,
		ProductsPerBrand:     8,
		AvgOrdersPerCustomer: 4,
		BulkOrderRate:        0.05,
		StartDate:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:              time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
		Seed:                 42,
		Variant:              purchase.VariantSemicolon,
	}
}

// ShoppingDataGenerator generates reproducible purchase histories
type ShoppingDataGenerator struct {
	config ShoppingGeneratorConfig
	rng    *rand.Rand
}

// NewShoppingDataGenerator creates a new purchase data generator
func NewShoppingDataGenerator(config ShoppingGeneratorConfig) *ShoppingDataGenerator {
	if config.BrandCount <= 0 || config.BrandCount > len(brandNames) {
		config.BrandCount = len(brandNames)
	}
	if config.ProductsPerBrand <= 0 {
		config.ProductsPerBrand = 1
	}
	if config.Variant == "" {
		config.Variant = purchase.VariantSemicolon
	}
	return &ShoppingDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GenerateTransactions returns every customer's orders sorted by date then user.
// The same seed always yields the same rows.
func (g *ShoppingDataGenerator) GenerateTransactions() []purchase.Transaction {
	var rows []purchase.Transaction
	for i := 0; i < g.config.CustomerCount; i++ {
		rows = append(rows, g.customerOrders(i+1)...)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].UserID < rows[j].UserID
	})
	return rows
}

// GenerateTable wraps GenerateTransactions in a canonical table.
func (g *ShoppingDataGenerator) GenerateTable() *purchase.Table {
	rows := g.GenerateTransactions()
	return purchase.NewTable(rows, g.config.Variant == purchase.VariantSemicolon, g.config.Variant, nil)
}

// customerOrders generates the order history of one customer
func (g *ShoppingDataGenerator) customerOrders(n int) []purchase.Transaction {
	userID := strconv.Itoa(n)
	email := ""
	if g.config.Variant == purchase.VariantSemicolon {
		email = fmt.Sprintf("customer%04d@example.com", n)
	}

	orderCount := int(math.Round(g.config.AvgOrdersPerCustomer + g.rng.NormFloat64()))
	if orderCount < 1 {
		orderCount = 1
	}
	if orderCount > 12 {
		orderCount = 12
	}

	// most customers stick to a favourite brand
	favourite := g.rng.Intn(g.config.BrandCount)

	orders := make([]purchase.Transaction, 0, orderCount)
	for i := 0; i < orderCount; i++ {
		brand := favourite
		if g.rng.Float64() < 0.35 {
			brand = g.rng.Intn(g.config.BrandCount)
		}
		ref := fmt.Sprintf("%s-%02d", brandNames[brand], g.rng.Intn(g.config.ProductsPerBrand)+1)

		orders = append(orders, purchase.Transaction{
			Ref:      ref,
			Brand:    brandNames[brand],
			UserID:   userID,
			Email:    email,
			Date:     g.randomTimeInRange(g.config.StartDate, g.config.EndDate),
			Quantity: g.randomQuantity(),
		})
	}
	return orders
}

func (g *ShoppingDataGenerator) randomQuantity() float64 {
	if g.rng.Float64() < g.config.BulkOrderRate {
		return float64(500 + g.rng.Intn(2000))
	}
	return float64(1 + g.rng.Intn(20))
}

// randomTimeInRange returns a time truncated to the second within [start, end]
func (g *ShoppingDataGenerator) randomTimeInRange(start, end time.Time) time.Time {
	span := end.Sub(start)
	if span <= 0 {
		return start
	}
	offset := time.Duration(g.rng.Int63n(int64(span/time.Second)+1)) * time.Second
	return start.Add(offset)
}

// WriteCSV writes rows in the layout of the configured variant: semicolon separated with
// userID and email, or comma separated with userId.
func (g *ShoppingDataGenerator) WriteCSV(w io.Writer, rows []purchase.Transaction) error {
	cw := csv.NewWriter(w)
	header := []string{"ref", "userId", "date", "quantity"}
	if g.config.Variant == purchase.VariantSemicolon {
		cw.Comma = ';'
		header = []string{"ref", "userID", "email", "date", "quantity"}
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, tx := range rows {
		qty := strconv.FormatFloat(tx.Quantity, 'f', -1, 64)
		record := []string{tx.Ref, tx.UserID, tx.Date.Format(DateLayout), qty}
		if g.config.Variant == purchase.VariantSemicolon {
			record = []string{tx.Ref, tx.UserID, tx.Email, tx.Date.Format(DateLayout), qty}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row for user %s: %w", tx.UserID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
