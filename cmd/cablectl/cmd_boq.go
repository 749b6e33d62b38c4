package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/service"
)

var boqFlags struct {
	csv string
}

var boqCmd = &cobra.Command{
	Use:   "boq",
	Short: "Print the bill of quantities grouped by selected CSA",
	RunE:  runBOQ,
}

func init() {
	boqCmd.Flags().StringVar(&boqFlags.csv, "csv", "", "Write the BOQ to this CSV file instead of printing it")
}

func runBOQ(cmd *cobra.Command, _ []string) error {
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

	if boqFlags.csv != "" {
		f, err := os.Create(boqFlags.csv)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := service.WriteBOQCSV(f, rows); err != nil {
			return fmt.Errorf("write %s: %w", boqFlags.csv, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", boqFlags.csv)
		return nil
	}

	lines := service.AggregateBOQ(rows)
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CSA mm2\tCOUNT\tTOTAL LENGTH m\t")
	for _, l := range lines {
		fmt.Fprintf(tw, "%g\t%d\t%g\t\n", l.CSAmm2, l.Count, l.TotalLengthM)
	}
	tw.Flush()
	if unsized := len(rows) - countSized(lines); unsized > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d rows without a selected CSA are not included\n", unsized)
	}
	return nil
}

func countSized(lines []models.BOQLine) int {
	n := 0
	for _, l := range lines {
		n += l.Count
	}
	return n
}
