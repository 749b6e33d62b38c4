package sheet

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cable-orchestrator/internal/models"
)

func TestReadCSV(t *testing.T) {
	df, err := ReadCSV(strings.NewReader("\ufeffCable No, Load kW ,Length\nF1,30,45\nF2,\"7,5\"\nbad\"quote,1,2\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Cable No", "Load kW", "Length"}, df.Headers)
	require.Len(t, df.Rows, 3)
	assert.Equal(t, []string{"F2", "7,5"}, df.Rows[1])
}

func TestReadCSV_Semicolon(t *testing.T) {
	df, err := ReadCSV(strings.NewReader("Cable No;Load kW;Length\nF1;30,5;45\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Cable No", "Load kW", "Length"}, df.Headers)
	assert.Equal(t, [][]string{{"F1", "30,5", "45"}}, df.Rows)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	data := workbook(t, [][]interface{}{
		{"Size (mm2)", "Vendor", "Part No"},
		{95, "Polycab", "PC-95"},
		{"", "", ""},
		{120, "KEI"},
	})

	df, err := ReadXLSX(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, []string{"Size (mm2)", "Vendor", "Part No"}, df.Headers)
	require.Len(t, df.Rows, 2)
	assert.Equal(t, []string{"95", "Polycab", "PC-95"}, df.Rows[0])
	assert.Equal(t, []string{"120", "KEI"}, df.Rows[1])
}

func TestRead(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "feeders.CSV")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n1,2\n"), 0o644))
	df, err := Read(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "feeders.CSV", df.FileName)

	xlsxPath := filepath.Join(dir, "catalog.xlsx")
	require.NoError(t, os.WriteFile(xlsxPath, workbook(t, [][]interface{}{{"a"}, {"1"}}), 0o644))
	df, err = Read(xlsxPath)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1"}}, df.Rows)

	_, err = Read(filepath.Join(dir, "notes.pdf"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDataFrame_Records(t *testing.T) {
	df := &DataFrame{
		Headers: []string{"Cable No", "Load kW", "Length"},
		Rows: [][]string{
			{"F1", " 30 ", "45"},
			{"F2"},
		},
	}

	got := df.Records(models.FieldMapping{
		"cable_number": "Cable No",
		"load_kw":      "Load kW",
		"length":       "Length",
		"voltage":      "Volts",
	})

	assert.Equal(t, []map[string]interface{}{
		{"cable_number": "F1", "load_kw": "30", "length": "45"},
		{"cable_number": "F2"},
	}, got)
}

func TestDataFrame_Sample(t *testing.T) {
	df := &DataFrame{Headers: []string{"A", "B"}, Rows: [][]string{{"1", "2"}, {"3"}, {"5", "6"}}}

	got := df.Sample(2)

	assert.Equal(t, []map[string]interface{}{
		{"A": "1", "B": "2"},
		{"A": "3", "B": ""},
	}, got)
	assert.Len(t, df.Sample(10), 3)
}
