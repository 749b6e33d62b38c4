package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cable-orchestrator/internal/models"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupported is returned for files that are neither CSV nor XLSX.
var ErrUnsupported = errors.New("unsupported spreadsheet format")

// DataFrame is a loaded spreadsheet: one header row plus data rows. Rows may
// be shorter than Headers.
type DataFrame struct {
	Headers  []string
	Rows     [][]string
	FileName string
}

// Read loads a .csv, .xlsx or .xlsm file.
func Read(path string) (*DataFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		df, err := ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		df.FileName = filepath.Base(path)
		return df, nil
	case ".xlsx", ".xlsm":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		df, err := ReadXLSX(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		df.FileName = filepath.Base(path)
		return df, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
}

// ReadCSV parses comma separated text, falling back to semicolons when the
// header row has a single column. Malformed data rows are skipped.
func ReadCSV(r io.Reader) (*DataFrame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	df, err := parseCSV(string(data), ',')
	if err != nil || len(df.Headers) <= 1 {
		if alt, altErr := parseCSV(string(data), ';'); altErr == nil && len(alt.Headers) > 1 {
			return alt, nil
		}
	}
	return df, err
}

func parseCSV(text string, comma rune) (*DataFrame, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read headers: %v", err)
	}
	headers = cleanHeaders(headers)

	rows := [][]string{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, record)
	}
	return &DataFrame{Headers: headers, Rows: rows}, nil
}

// ReadXLSX reads the first worksheet of a workbook.
func ReadXLSX(r io.Reader) (*DataFrame, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(all) == 0 {
		return nil, errors.New("failed to read headers: sheet is empty")
	}

	df := &DataFrame{Headers: cleanHeaders(all[0]), Rows: [][]string{}}
	for _, row := range all[1:] {
		if blank(row) {
			continue
		}
		df.Rows = append(df.Rows, row)
	}
	return df, nil
}

// Records applies mapping to every row. Each record has one key per mapped
// field; unmapped fields and cells beyond a short row are left out.
func (df *DataFrame) Records(mapping models.FieldMapping) []map[string]interface{} {
	col := make(map[string]int, len(df.Headers))
	for i, h := range df.Headers {
		if _, dup := col[h]; !dup {
			col[h] = i
		}
	}

	out := make([]map[string]interface{}, 0, len(df.Rows))
	for _, row := range df.Rows {
		rec := make(map[string]interface{}, len(mapping))
		for field, header := range mapping {
			i, ok := col[header]
			if !ok || i >= len(row) {
				continue
			}
			rec[field] = strings.TrimSpace(row[i])
		}
		out = append(out, rec)
	}
	return out
}

// Sample returns up to n rows keyed by header.
func (df *DataFrame) Sample(n int) []map[string]interface{} {
	if n > len(df.Rows) {
		n = len(df.Rows)
	}
	out := make([]map[string]interface{}, 0, n)
	for _, row := range df.Rows[:n] {
		rec := make(map[string]interface{}, len(df.Headers))
		for i, h := range df.Headers {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

func cleanHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
