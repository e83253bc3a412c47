package excel

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"gobunch/internal/errors"
	"gobunch/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeXLSX(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "sample.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadSampleCSV(t *testing.T) {
	path := writeCSV(t, "area,share,pop\nA,0.21,100\nB,,50\nC,25%,10\n")
	reader := NewDataReader(zaptest.NewLogger(t))

	s, err := reader.ReadSample(ports.SampleRequest{Path: path, Column: "share"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.21, 0.25}, s.Values())
	assert.False(t, s.Weighted())

	s, err = reader.ReadSample(ports.SampleRequest{Path: path, Column: "share", WeightColumn: "pop"})
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 10}, s.Weights())
}

func TestReadSampleXLSX(t *testing.T) {
	path := writeXLSX(t, "Data", [][]interface{}{
		{"share"},
		{0.1},
		{0.35},
		{0.8},
	})
	reader := NewDataReader(nil)

	s, err := reader.ReadSample(ports.SampleRequest{Path: path, Column: "share"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.35, 0.8}, s.Values())

	_, err = reader.ReadSample(ports.SampleRequest{Path: path, Sheet: "Missing", Column: "share"})
	assert.Error(t, err)
}

func TestReadSampleErrors(t *testing.T) {
	reader := NewDataReader(nil)
	path := writeCSV(t, "share\n0.1\nabc\n")

	_, err := reader.ReadSample(ports.SampleRequest{Path: path, Column: "share"})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	_, err = reader.ReadSample(ports.SampleRequest{Path: path, Column: "other"})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	_, err = reader.ReadSample(ports.SampleRequest{Path: filepath.Join(t.TempDir(), "none.csv"), Column: "share"})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	txt := filepath.Join(t.TempDir(), "sample.txt")
	require.NoError(t, os.WriteFile(txt, []byte("share\n1\n"), 0o644))
	_, err = reader.ReadSample(ports.SampleRequest{Path: txt, Column: "share"})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}
