package excel

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DataReader reads uploaded Excel and CSV tables
type DataReader struct {
	config ReaderConfig
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(config ReaderConfig) *DataReader {
	return &DataReader{config: config}
}

// DetectFormat picks the format from the file name extension.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported file type %q: only .csv and .xlsx files are accepted", filepath.Ext(filename))
	}
}

// Read reads a whole table from r in the given format.
func (r *DataReader) Read(src io.Reader, format Format) (*RawTable, error) {
	start := time.Now()
	var (
		table *RawTable
		err   error
	)
	switch format {
	case FormatCSV:
		table, err = r.readCSV(src)
	case FormatXLSX:
		table, err = r.readExcel(src)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", format)
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[DataReader] %s read in %.2fms (%d columns, %d rows)",
		strings.ToUpper(string(format)), float64(time.Since(start).Nanoseconds())/1e6, len(table.Headers), len(table.Rows))
	return table, nil
}

// readCSV reads delimited text, detecting the delimiter from the header line unless configured
func (r *DataReader) readCSV(src io.Reader) (*RawTable, error) {
	buffered := bufio.NewReader(src)
	if head, err := buffered.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = buffered.Discard(len(utf8BOM))
	}

	delimiter := r.config.Delimiter
	if delimiter == 0 {
		line, err := peekLine(buffered)
		if err != nil {
			return nil, err
		}
		delimiter = DetectDelimiter(line)
	}

	reader := csv.NewReader(buffered)
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true
	// short rows are padded in processRows
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	table := processRows(rows)
	table.Format = FormatCSV
	table.Delimiter = delimiter
	return table, nil
}

// readExcel reads the configured (or first) sheet of a workbook
func (r *DataReader) readExcel(src io.Reader) (*RawTable, error) {
	f, err := excelize.OpenReader(src, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("Excel file has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	table := processRows(rows)
	table.Format = FormatXLSX
	return table, nil
}

// processRows converts raw string rows into a RawTable, skipping blank lines
func processRows(rows [][]string) *RawTable {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	dataRows := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		cells := make([]string, len(headers))
		for j := 0; j < len(headers) && j < len(row); j++ {
			cells[j] = strings.TrimSpace(row[j])
		}
		dataRows = append(dataRows, cells)
	}

	return &RawTable{Headers: headers, Rows: dataRows}
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// peekLine returns the first line (or the first buffer's worth of it) without consuming it.
func peekLine(r *bufio.Reader) (string, error) {
	buf, err := r.Peek(r.Size())
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", fmt.Errorf("failed to read CSV header: %w", err)
	}
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		buf = buf[:i]
	}
	return strings.TrimRight(string(buf), "\r"), nil
}

// DetectDelimiter picks the most frequent of ';', ',' and tab outside quotes. Ties and
// lines without any candidate fall back to ','.
func DetectDelimiter(headerLine string) rune {
	counts := map[rune]int{}
	inQuotes := false
	for _, c := range headerLine {
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case !inQuotes && (c == ';' || c == ',' || c == '\t'):
			counts[c]++
		}
	}
	best, bestCount := ',', counts[',']
	for _, c := range []rune{';', '\t'} {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

// SerialToTime interprets a raw workbook cell holding an Excel date serial number.
func SerialToTime(value string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || serial <= 0 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
