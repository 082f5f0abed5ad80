package excel

// ReaderConfig holds configuration for reading uploaded tables
type ReaderConfig struct {
	// Delimiter forces the CSV separator; zero means detect it from the header line.
	Delimiter rune `json:"delimiter"`
	// Sheet selects the workbook sheet; empty means the first sheet.
	Sheet string `json:"sheet"`
}

// DefaultReaderConfig returns sensible defaults for uploads
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{}
}

// ParseDelimiter converts a configured delimiter string; empty yields zero (auto).
func ParseDelimiter(s string) rune {
	if s == "" {
		return 0
	}
	return []rune(s)[0]
}
