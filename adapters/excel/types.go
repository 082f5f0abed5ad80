package excel

// Format is the container format of an uploaded table.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// RawTable is an uploaded table before any schema resolution: trimmed headers and
// string cells, each row padded or cut to the header width.
type RawTable struct {
	Headers   []string
	Rows      [][]string
	Format    Format
	Delimiter rune // zero for xlsx
}

// Index returns the position of a header, or -1.
func (t *RawTable) Index(header string) int {
	for i, h := range t.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// Sheet is one table of an exported workbook.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}
