package excel

// RawRowData represents a row of raw cell text keyed by header
type RawRowData map[string]string

// TableData represents a complete sheet or CSV file
type TableData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}
