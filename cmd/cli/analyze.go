package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"custdash/adapters/excel"
	"custdash/domain/purchase"
	"custdash/internal"
	"custdash/internal/analysis"
	"custdash/internal/dataset"
	"custdash/ui/services"
)

type analyzeOptions struct {
	kind          string
	from, to      string
	customer      string
	brands        []string
	mode          string
	kCustomers    int
	kProducts     int
	kBrandProduct int
	productBrand  string
	p1From, p1To  string
	p2From, p2To  string
	delimiter     string
	asJSON        bool
	xlsxOut       string
	quiet         bool
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Load a purchase file and print one analysis",
		Long: `Load a CSV or Excel purchase file, apply the filters and print the tables of one analysis.

Example: custdash-cli analyze orders.csv --kind brand --brand ACME --brand ZETA --from 2024-01-01 --k-customers 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.kind, "kind", string(analysis.KindCustomer), "analysis: customer, brand or product")
	f.StringVar(&opts.from, "from", "", "first day (YYYY-MM-DD), default the first date in the file")
	f.StringVar(&opts.to, "to", "", "last day (YYYY-MM-DD), default the last date in the file")
	f.StringVar(&opts.customer, "customer", "", "restrict to one userId")
	f.StringArrayVar(&opts.brands, "brand", nil, "restrict to one brand per flag (repeatable); default all")
	f.StringVar(&opts.mode, "mode", string(purchase.ModeCount), "segments by brand: count or percent")
	f.IntVar(&opts.kCustomers, "k-customers", 0, "top customers per brand (0 = default)")
	f.IntVar(&opts.kProducts, "k-products", 0, "top products (0 = default)")
	f.IntVar(&opts.kBrandProduct, "k-brand-products", 0, "top products per brand (0 = default)")
	f.StringVar(&opts.productBrand, "product-brand", "", "restrict top products by brand to one brand")
	f.StringVar(&opts.p1From, "p1-from", "", "purchase pattern period 1 start")
	f.StringVar(&opts.p1To, "p1-to", "", "purchase pattern period 1 end")
	f.StringVar(&opts.p2From, "p2-from", "", "purchase pattern period 2 start")
	f.StringVar(&opts.p2To, "p2-to", "", "purchase pattern period 2 end")
	f.StringVar(&opts.delimiter, "delimiter", os.Getenv("CSV_DELIMITER"), "force the CSV delimiter")
	f.BoolVar(&opts.asJSON, "json", false, "print the result as JSON")
	f.StringVar(&opts.xlsxOut, "xlsx", "", "also write the tables to this Excel file")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "hide the progress bar")

	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, path string, opts *analyzeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	kind, err := analysis.ParseKind(opts.kind)
	if err != nil {
		return err
	}

	table, err := loadFile(ctx, path, opts)
	if err != nil {
		return err
	}

	spec, params, err := opts.request(table)
	if err != nil {
		return err
	}
	result, err := analysis.Run(kind, table, spec, params)
	if err != nil {
		return err
	}

	tables := services.NewRenderService().Tables(result)
	if opts.xlsxOut != "" {
		if err := writeWorkbook(opts.xlsxOut, tables); err != nil {
			return err
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(out, "%s analysis: %d of %d transactions match\n", kind, result.Rows, table.Len())
	return printTables(out, tables)
}

// loadFile reads path through the dataset processor with a progress bar on stderr.
func loadFile(ctx context.Context, path string, opts *analyzeOptions) (*purchase.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var src io.Reader = file
	if !opts.quiet {
		bar := progressbar.NewOptions64(stat.Size(),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("reading "+filepath.Base(path)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		src = io.TeeReader(file, bar)
	}

	config := dataset.DefaultProcessorConfig()
	if stat.Size() > config.MaxBytes {
		config.MaxBytes = stat.Size()
	}
	config.Reader.Delimiter = excel.ParseDelimiter(opts.delimiter)

	logger := internal.NewLogger(internal.LogLevelWarn)
	if !opts.quiet {
		logger = internal.NewDefaultLogger()
	}
	table, _, err := dataset.NewProcessor(config, logger).Load(ctx, src, filepath.Base(path))
	return table, err
}

// request turns the flags into a filter and pipeline parameters.
func (o *analyzeOptions) request(table *purchase.Table) (purchase.FilterSpec, analysis.Params, error) {
	var params analysis.Params

	dates, err := dayRange(o.from, o.to, table)
	if err != nil {
		return purchase.FilterSpec{}, params, err
	}
	spec := purchase.FilterSpec{
		Dates:    dates,
		Customer: purchase.ParseCustomerSelection(o.customer),
		Brands:   purchase.AnyBrand(),
	}
	if len(o.brands) > 0 {
		spec.Brands = purchase.ParseBrandSelection(o.brands)
	}

	mode, ok := analysis.ParseSegmentMode(o.mode)
	if !ok {
		return spec, params, fmt.Errorf("--mode must be count or percent, got %q", o.mode)
	}
	params = analysis.Params{
		Mode:           mode,
		KCustomers:     o.kCustomers,
		KProducts:      o.kProducts,
		KBrandProducts: o.kBrandProduct,
		ProductBrand:   o.productBrand,
	}
	if o.p1From != "" || o.p1To != "" {
		r, err := dayRange(o.p1From, o.p1To, table)
		if err != nil {
			return spec, params, err
		}
		params.Period1 = &r
	}
	if o.p2From != "" || o.p2To != "" {
		r, err := dayRange(o.p2From, o.p2To, table)
		if err != nil {
			return spec, params, err
		}
		params.Period2 = &r
	}
	return spec, params, nil
}

func dayRange(from, to string, table *purchase.Table) (purchase.DateRange, error) {
	start, end := table.MinDate, table.MaxDate
	if from != "" {
		d, err := time.ParseInLocation(time.DateOnly, from, time.UTC)
		if err != nil {
			return purchase.DateRange{}, fmt.Errorf("invalid date %q: %w", from, err)
		}
		start = purchase.StartOfDay(d)
	}
	if to != "" {
		d, err := time.ParseInLocation(time.DateOnly, to, time.UTC)
		if err != nil {
			return purchase.DateRange{}, fmt.Errorf("invalid date %q: %w", to, err)
		}
		end = purchase.EndOfDay(d)
	}
	return purchase.NewDateRange(start, end)
}

func printTables(out io.Writer, tables []services.TableView) error {
	for _, t := range tables {
		fmt.Fprintf(out, "\n== %s ==\n", t.Title)
		if t.Empty() {
			fmt.Fprintln(out, "(no rows)")
			continue
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
		for _, row := range t.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = services.FormatCell(v)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func writeWorkbook(path string, tables []services.TableView) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := excel.WriteWorkbook(f, services.Sheets(tables)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
