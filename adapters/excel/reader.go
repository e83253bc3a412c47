package excel

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gobunch/domain/bunching"
	"gobunch/internal/errors"
	"gobunch/ports"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	logger *zap.Logger
}

var _ ports.SampleReaderPort = (*DataReader)(nil)

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(logger *zap.Logger) *DataReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataReader{logger: logger}
}

// ReadSample loads req.Column (and req.WeightColumn when set) as a Sample.
// Rows whose value cell is blank are skipped; any other non-numeric cell is
// an error.
func (r *DataReader) ReadSample(req ports.SampleRequest) (bunching.Sample, error) {
	if req.Column == "" {
		return bunching.Sample{}, errors.InvalidInput("a value column is required")
	}
	data, err := r.ReadData(req.Path, req.Sheet)
	if err != nil {
		return bunching.Sample{}, err
	}
	if !hasHeader(data, req.Column) {
		return bunching.Sample{}, errors.InvalidInput("column %q not found in %s", req.Column, req.Path)
	}
	if req.WeightColumn != "" && !hasHeader(data, req.WeightColumn) {
		return bunching.Sample{}, errors.InvalidInput("weight column %q not found in %s", req.WeightColumn, req.Path)
	}

	values := make([]float64, 0, len(data.Rows))
	var weights []float64
	for i, row := range data.Rows {
		cell := row[req.Column]
		if cell == "" {
			continue
		}
		v, err := parseNumber(cell)
		if err != nil {
			return bunching.Sample{}, errors.InvalidInput("row %d column %q: %q is not numeric", i+2, req.Column, cell)
		}
		values = append(values, v)

		if req.WeightColumn == "" {
			continue
		}
		w, err := parseNumber(row[req.WeightColumn])
		if err != nil {
			return bunching.Sample{}, errors.InvalidInput("row %d column %q: %q is not numeric", i+2, req.WeightColumn, row[req.WeightColumn])
		}
		weights = append(weights, w)
	}

	r.logger.Debug("sample loaded",
		zap.String("path", req.Path),
		zap.String("column", req.Column),
		zap.Int("observations", len(values)),
		zap.Int("skipped", len(data.Rows)-len(values)))

	if req.WeightColumn == "" {
		return bunching.NewSample(values), nil
	}
	return bunching.NewWeightedSample(values, weights)
}

// ReadData reads an Excel sheet (the first one when sheet is empty) or a
// CSV file into headers and rows
func (r *DataReader) ReadData(path, sheet string) (*TableData, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.InvalidInput("file not found: %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return r.readCSVData(path)
	case ".xlsx", ".xlsm":
		return r.readExcelData(path, sheet)
	default:
		return nil, errors.InvalidInput("unsupported file type: %s", filepath.Ext(path))
	}
}

func (r *DataReader) readExcelData(path, sheet string) (*TableData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", sheet)
	}
	r.logger.Debug("excel sheet read",
		zap.String("sheet", sheet),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(startTime)))

	return r.processRows(rows)
}

func (r *DataReader) readCSVData(path string) (*TableData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	return r.processRows(rows)
}

// processRows converts raw string rows into TableData
func (r *DataReader) processRows(rows [][]string) (*TableData, error) {
	if len(rows) < 1 {
		return nil, errors.InvalidInput("file must have a header row")
	}

	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	return &TableData{
		Headers: headers,
		Rows:    dataRows,
	}, nil
}

func hasHeader(data *TableData, name string) bool {
	for _, h := range data.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// parseNumber accepts plain numbers and percentages ("25%" is 0.25).
func parseNumber(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if pct, ok := strings.CutSuffix(cell, "%"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		return v / 100, err
	}
	return strconv.ParseFloat(cell, 64)
}
