package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/service"
)

var reportFlags struct {
	out     string
	remote  string
	columns []string
	project string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the sizing report",
	Long: "Writes the row-by-row sizing report as CSV, or with --remote asks the\n" +
		"export service to render it (sizing-report, boq or excel) and prints\n" +
		"the download link.",
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVarP(&reportFlags.out, "out", "o", "sceap_bulk_cable_sizing.csv", "CSV output file")
	f.StringVar(&reportFlags.remote, "remote", "", "Render remotely: sizing-report, boq or excel")
	f.StringSliceVar(&reportFlags.columns, "columns", nil, "Report columns for --remote=sizing-report (default all)")
	f.StringVar(&reportFlags.project, "project", service.DefaultProject, "Project name printed on remote exports")
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	ws, err := e.loadWorksheet()
	if err != nil {
		return err
	}
	rows := ws.Rows()
	out := cmd.OutOrStdout()

	if reportFlags.remote == "" {
		f, err := os.Create(reportFlags.out)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := service.WriteSizingCSV(f, rows); err != nil {
			return fmt.Errorf("write %s: %w", reportFlags.out, err)
		}
		fmt.Fprintf(out, "Wrote %d rows to %s\n", len(rows), reportFlags.out)
		return nil
	}

	exporter := service.NewExporter(e.client, e.log)
	var link *models.ExportLink
	switch reportFlags.remote {
	case "sizing-report":
		link, err = exporter.SizingReport(ctx, rows, reportFlags.columns, reportFlags.project)
	case "boq":
		link, err = exporter.BOQ(ctx, rows, reportFlags.project)
	case "excel":
		link, err = exporter.Excel(ctx, rows)
	default:
		return fmt.Errorf("unknown --remote %q: want sizing-report, boq or excel", reportFlags.remote)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n%s\n", link.Filename, link.DownloadURL)
	return nil
}
