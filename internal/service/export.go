package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"cable-orchestrator/internal/models"

	"go.uber.org/zap"
)

// DefaultProject is the project name sent with exports when none is given.
const DefaultProject = "SCEAP"

// DefaultReportColumns are the sizing report columns offered to users, in
// display order.
var DefaultReportColumns = []string{
	"Cable No", "From", "To", "Voltage", "Load kW", "Length m",
	"FLC A", "Derated A", "CSA mm2", "Vdrop %", "Start Vdrop %", "Start Method",
	"SC OK", "SC Required Area", "Catalog Vendor", "Catalog Part", "Remarks",
}

// ExportService renders exports and hands back a download link.
type ExportService interface {
	ExportBOQ(ctx context.Context, req models.BOQExportRequest) (*models.ExportLink, error)
	ExportSizingReport(ctx context.Context, req models.SizingReportRequest) (*models.ExportLink, error)
	ExportExcel(ctx context.Context, req models.ExcelExportRequest) (*models.ExportLink, error)
}

// AggregateBOQ groups rows by selected CSA, ascending. Rows without a
// selected CSA are left out.
func AggregateBOQ(rows []models.BulkRow) []models.BOQLine {
	groups := make(map[float64]*models.BOQLine)
	for _, r := range rows {
		csa := r.SelectedCSA()
		if csa <= 0 {
			continue
		}
		line, ok := groups[csa]
		if !ok {
			line = &models.BOQLine{CSAmm2: csa}
			groups[csa] = line
		}
		line.Count++
		line.TotalLengthM += r.Length
	}

	out := make([]models.BOQLine, 0, len(groups))
	for _, line := range groups {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CSAmm2 < out[j].CSAmm2 })
	return out
}

// ExportRows reduces worksheet rows to the renderer payload, status included.
func ExportRows(rows []models.BulkRow) []models.ExportRow {
	out := make([]models.ExportRow, len(rows))
	for i, r := range rows {
		c := r.Clone()
		out[i] = models.ExportRow{
			CableNumber:   c.CableNumber,
			FromEquipment: c.FromEquipment,
			ToEquipment:   c.ToEquipment,
			Voltage:       c.Voltage,
			LoadKW:        c.LoadKW,
			Length:        c.Length,
			Result:        c.Result,
			Catalog:       c.Catalog,
			Status:        DeriveStatus(c).Label(),
		}
	}
	return out
}

// BuildSizingReport assembles the sizing report payload. An empty column list
// selects DefaultReportColumns; unknown or repeated columns are rejected.
func BuildSizingReport(rows []models.BulkRow, columns []string, project string) (models.SizingReportRequest, error) {
	if len(columns) == 0 {
		columns = DefaultReportColumns
	}
	known := make(map[string]bool, len(DefaultReportColumns))
	for _, c := range DefaultReportColumns {
		known[c] = true
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if !known[c] {
			return models.SizingReportRequest{}, invalid("columns", "unknown column %q", c)
		}
		if seen[c] {
			return models.SizingReportRequest{}, invalid("columns", "column %q listed twice", c)
		}
		seen[c] = true
	}
	if project == "" {
		project = DefaultProject
	}
	return models.SizingReportRequest{
		Rows:    ExportRows(rows),
		Columns: append([]string(nil), columns...),
		Project: project,
	}, nil
}

// Exporter sends worksheet exports to the external renderer.
type Exporter struct {
	svc    ExportService
	logger *zap.Logger
}

// NewExporter returns an Exporter backed by svc.
func NewExporter(svc ExportService, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{svc: svc, logger: logger}
}

// BOQ exports the bill of quantities of rows.
func (e *Exporter) BOQ(ctx context.Context, rows []models.BulkRow, project string) (*models.ExportLink, error) {
	if project == "" {
		project = DefaultProject
	}
	link, err := e.svc.ExportBOQ(ctx, models.BOQExportRequest{
		Rows:    ExportRows(rows),
		BOQ:     AggregateBOQ(rows),
		Project: project,
	})
	if err != nil {
		return nil, fmt.Errorf("export boq: %w", err)
	}
	e.logger.Info("boq exported", zap.String("file", link.Filename))
	return link, nil
}

// SizingReport exports the row-by-row report with the chosen columns.
func (e *Exporter) SizingReport(ctx context.Context, rows []models.BulkRow, columns []string, project string) (*models.ExportLink, error) {
	req, err := BuildSizingReport(rows, columns, project)
	if err != nil {
		return nil, err
	}
	link, err := e.svc.ExportSizingReport(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("export sizing report: %w", err)
	}
	e.logger.Info("sizing report exported", zap.String("file", link.Filename), zap.Int("columns", len(req.Columns)))
	return link, nil
}

// Excel exports the worksheet as a spreadsheet.
func (e *Exporter) Excel(ctx context.Context, rows []models.BulkRow) (*models.ExportLink, error) {
	link, err := e.svc.ExportExcel(ctx, models.ExcelExportRequest{Rows: ExportRows(rows)})
	if err != nil {
		return nil, fmt.Errorf("export excel: %w", err)
	}
	e.logger.Info("worksheet exported", zap.String("file", link.Filename))
	return link, nil
}

var sizingCSVHeader = []string{
	"Cable No", "From", "To", "Voltage", "Load kW", "Length m",
	"FLC A", "Derated A", "CSA mm2", "Vdrop %", "Vdrop OK", "SC OK",
}

// WriteSizingCSV writes one line per row. Unsized rows leave the result
// columns blank and report NO for both checks.
func WriteSizingCSV(w io.Writer, rows []models.BulkRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sizingCSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.CableNumber,
			r.FromEquipment,
			r.ToEquipment,
			formatNumber(r.Voltage),
			formatNumber(r.LoadKW),
			formatNumber(r.Length),
			"", "", "", "",
			"NO", "NO",
		}
		if res := r.Result; res != nil {
			rec[6] = formatNumber(res.FLC)
			if res.DeratedCurrent != nil {
				rec[7] = formatNumber(*res.DeratedCurrent)
			}
			rec[8] = formatNumber(res.SelectedCSA)
			rec[9] = formatNumber(res.VdropPercent)
			rec[10] = yesNo(res.VdropOK)
			rec[11] = yesNo(res.SCOK)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBOQCSV writes the bill of quantities of rows.
func WriteBOQCSV(w io.Writer, rows []models.BulkRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"CSA_mm2", "Count", "TotalLength_m"}); err != nil {
		return err
	}
	for _, line := range AggregateBOQ(rows) {
		if err := cw.Write([]string{
			formatNumber(line.CSAmm2),
			strconv.Itoa(line.Count),
			formatNumber(line.TotalLengthM),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func yesNo(ok bool) string {
	if ok {
		return "YES"
	}
	return "NO"
}
