// Package services turns analysis results into presentation tables shared by the HTML views and
// the Excel export.
package services

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"custdash/adapters/excel"
	"custdash/domain/purchase"
	"custdash/domain/segment"
	"custdash/internal/analysis"
)

// TableView is one titled table. Cells keep their Go types (string, int, float64, time.Time)
// so the workbook export gets real numbers.
type TableView struct {
	ID          string
	Title       string
	Explanation template.HTML
	Headers     []string
	Rows        [][]interface{}
}

// Empty reports whether the table has no rows.
func (t TableView) Empty() bool { return len(t.Rows) == 0 }

type RenderService struct {
	explanations map[string]template.HTML
}

func NewRenderService() *RenderService {
	s := &RenderService{explanations: make(map[string]template.HTML, len(explanationMarkdown))}
	for id, md := range explanationMarkdown {
		s.explanations[id] = RenderMarkdown(md)
	}
	return s
}

// RenderMarkdown converts trusted markdown to HTML.
func RenderMarkdown(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return template.HTML(markdown.ToHTML([]byte(md), p, r))
}

// Tables lays out every table of result in display order.
func (s *RenderService) Tables(result *analysis.Result) []TableView {
	if result == nil {
		return nil
	}
	switch {
	case result.Customer != nil:
		return s.customerTables(result.Customer, result.HasEmail)
	case result.Brand != nil:
		return []TableView{
			s.rankingTable("sales_by_brand", "Sales by brand", result.Brand.SalesByBrand, false),
			s.rankingTable("top_customers_by_brand", "Top customers by brand", result.Brand.TopCustomers, true),
		}
	case result.Product != nil:
		return []TableView{
			s.rankingTable("top_products", "Top products", result.Product.TopProducts, true),
			s.rankingTable("top_products_by_brand", "Top products by brand", result.Product.TopByBrand, true),
			s.rankingTable("products_by_brand_by_customer", "Top products by brand by customer", result.Product.Breakdown, false),
		}
	}
	return nil
}

// Sheets converts tables into workbook sheets, dates written as YYYY-MM-DD.
func Sheets(tables []TableView) []excel.Sheet {
	sheets := make([]excel.Sheet, 0, len(tables))
	for _, t := range tables {
		rows := make([][]interface{}, len(t.Rows))
		for i, row := range t.Rows {
			out := make([]interface{}, len(row))
			for j, v := range row {
				if d, ok := v.(time.Time); ok {
					v = d.Format(time.DateOnly)
				}
				out[j] = v
			}
			rows[i] = out
		}
		sheets = append(sheets, excel.Sheet{Name: t.Title, Header: t.Headers, Rows: rows})
	}
	return sheets
}

// FormatCell renders one cell for HTML.
func FormatCell(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.DateTime)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%.2f", t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func (s *RenderService) customerTables(c *analysis.CustomerResult, hasEmail bool) []TableView {
	metrics := s.view("key_metrics", "Key metrics", []string{"metric", "value"})
	metrics.Rows = [][]interface{}{
		{"Total quantity", c.Metrics.TotalQuantity},
		{"Unique customers", c.Metrics.UniqueCustomers},
		{"Transactions", c.Metrics.Transactions},
		{"Mean quantity per transaction", c.Metrics.MeanQuantity},
		{"Median customer monetary", c.Metrics.MedianMonetary},
	}

	trend := s.view("monthly_trend", "Monthly purchase trend", []string{"month", "quantity"})
	for _, p := range c.Trend {
		trend.Rows = append(trend.Rows, []interface{}{p.Month.Format("2006-01"), p.Quantity})
	}

	summary := s.summaryTable("customer_summary", "Customer summary", c.Summaries, false, hasEmail)
	byBrand := s.summaryTable("customer_segmentation_by_brand", "Customer segmentation by brand", c.BrandCustomers, true, hasEmail)

	title := "Segments by brand (count)"
	if c.Mode == purchase.ModePercent {
		title = "Segments by brand (percent)"
	}
	headers := []string{"brand"}
	for _, seg := range segment.All {
		headers = append(headers, seg.String())
	}
	segments := s.view("segments_by_brand", title, append(headers, "total"))
	for _, b := range c.Segments {
		row := []interface{}{b.Brand}
		for _, seg := range segment.All {
			row = append(row, b.Cell(seg))
		}
		segments.Rows = append(segments.Rows, append(row, b.Total))
	}

	pattern := s.view("purchase_pattern", "Customer purchase pattern", []string{
		"quantity bucket",
		"period 1 (" + rangeLabel(c.Pattern.Period1) + ")",
		"period 2 (" + rangeLabel(c.Pattern.Period2) + ")",
	})
	for i, b := range c.Pattern.Buckets {
		pattern.Rows = append(pattern.Rows, []interface{}{
			fmt.Sprintf("[%s, %s)", FormatCell(b.Low), FormatCell(b.High)),
			c.Pattern.Counts1[i],
			c.Pattern.Counts2[i],
		})
	}

	return []TableView{metrics, trend, summary, byBrand, segments, pattern}
}

func (s *RenderService) summaryTable(id, title string, rows []purchase.CustomerSummary, withBrand, hasEmail bool) TableView {
	var headers []string
	if withBrand {
		headers = append(headers, "brand")
	}
	headers = append(headers, "userId")
	if hasEmail {
		headers = append(headers, "email")
	}
	t := s.view(id, title, append(headers, "last purchase", "frequency", "monetary", "recency", "segment"))

	for _, r := range rows {
		var row []interface{}
		if withBrand {
			row = append(row, r.Brand)
		}
		row = append(row, r.UserID)
		if hasEmail {
			row = append(row, r.Email)
		}
		t.Rows = append(t.Rows, append(row, r.LastPurchaseDate, r.Frequency, r.Monetary, r.Recency, r.Segment.String()))
	}
	return t
}

func (s *RenderService) rankingTable(id, title string, r purchase.Ranking, withRank bool) TableView {
	var headers []string
	if withRank {
		headers = append(headers, "rank")
	}
	for _, col := range r.Columns {
		headers = append(headers, string(col))
	}
	t := s.view(id, title, append(headers, "quantity"))

	for _, row := range r.Rows {
		var cells []interface{}
		if withRank {
			cells = append(cells, row.Rank)
		}
		for _, k := range row.Keys {
			cells = append(cells, k)
		}
		t.Rows = append(t.Rows, append(cells, row.Quantity))
	}
	return t
}

func (s *RenderService) view(id, title string, headers []string) TableView {
	return TableView{ID: id, Title: title, Explanation: s.explanations[id], Headers: headers, Rows: [][]interface{}{}}
}

func rangeLabel(r purchase.DateRange) string {
	if r.Start.IsZero() && r.End.IsZero() {
		return "no data"
	}
	return r.Start.Format(time.DateOnly) + " to " + r.End.Format(time.DateOnly)
}

// explanationMarkdown documents the columns of each table.
var explanationMarkdown = map[string]string{
	"key_metrics": strings.TrimSpace(`
Headline figures for the filtered rows. **Median customer monetary** is the median of the per-customer quantity totals.`),
	"monthly_trend": "**quantity**: total quantity purchased in the calendar month.",
	"customer_summary": strings.TrimSpace(`
- **userId**: unique identifier of the customer.
- **email**: email address of the customer, when the file has one.
- **last purchase**: most recent purchase date of the customer within the filters.
- **frequency**: number of purchases.
- **monetary**: total quantity purchased.
- **recency**: days between the last purchase and the last date of the whole file.
- **segment**: Active (0-30 days), Warm (31-90), Cold (91-180) or Lost (over 180).`),
	"customer_segmentation_by_brand": strings.TrimSpace(`
Same columns as the customer summary, computed separately for each **brand** a customer bought.`),
	"segments_by_brand": strings.TrimSpace(`
Customers of each **brand** per segment. In percent mode each row is divided by its **total**.`),
	"purchase_pattern": strings.TrimSpace(`
Number of customers whose total quantity in each period falls in the **quantity bucket**. Buckets include their lower bound.`),
	"sales_by_brand": strings.TrimSpace(`
- **brand**: brand name derived from ` + "`ref`" + `.
- **quantity**: total quantity sold for the brand.`),
	"top_customers_by_brand": strings.TrimSpace(`
- **brand**: brand name derived from ` + "`ref`" + `.
- **userId**: unique identifier of the customer.
- **quantity**: total quantity the customer purchased from the brand.`),
	"top_products": strings.TrimSpace(`
- **ref**: product reference code.
- **quantity**: total quantity sold.`),
	"top_products_by_brand": strings.TrimSpace(`
- **brand**: brand name derived from ` + "`ref`" + `.
- **ref**: product reference code.
- **quantity**: total quantity of the product purchased for the brand.`),
	"products_by_brand_by_customer": strings.TrimSpace(`
- **brand**, **ref**: brand and product reference.
- **userId**: unique identifier of the customer.
- **quantity**: total quantity the customer purchased of the product.`),
}
