package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/service"
	"cable-orchestrator/internal/sheet"
)

var importFlags struct {
	mapping []string
	replace bool
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a feeder list (CSV or XLSX) into the worksheet",
	Long: "Reads the file locally, maps its headers with the last saved sizing\n" +
		"mapping plus suggestions, and appends one row per data row.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.StringArrayVar(&importFlags.mapping, "map", nil, "Override a mapping entry as field=header (repeatable)")
	f.BoolVar(&importFlags.replace, "replace", false, "Start from an empty worksheet instead of appending")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	overrides, err := parseMapFlags(importFlags.mapping, models.SchemaSizing)
	if err != nil {
		return err
	}
	df, err := sheet.Read(args[0])
	if err != nil {
		return err
	}

	last, err := e.store.LoadMapping(ctx, service.SizingMappingKey)
	if err != nil {
		e.log.Warn("could not load last mapping", zap.Error(err))
	}
	present := make(map[string]bool, len(df.Headers))
	for _, h := range df.Headers {
		present[h] = true
	}
	seed := models.FieldMapping{}
	for f, h := range last {
		if present[h] {
			seed[f] = h
		}
	}
	for f, h := range overrides {
		if h != "" && !present[h] {
			return fmt.Errorf("--map %s=%s: header not in %s", f, h, df.FileName)
		}
		seed[f] = h
	}
	mapping := service.SuggestMapping(df.Headers, seed, models.SizingImportFields)

	ws, err := e.loadWorksheet()
	if err != nil {
		return err
	}
	if importFlags.replace {
		if err := ws.Restore(nil, ws.GroupingThreshold()); err != nil {
			return err
		}
	}
	report := ws.ImportRows(df.Records(mapping))
	if err := saveWorksheet(ws); err != nil {
		return err
	}
	if err := e.store.SaveMapping(ctx, service.SizingMappingKey, mapping); err != nil {
		e.log.Warn("could not persist mapping", zap.Error(err))
	}

	out := cmd.OutOrStdout()
	printMapping(out, mapping, models.SizingImportFields)
	fmt.Fprintf(out, "\nImported %d rows into %s (%d total)\n", len(report.Rows), globalFlags.worksheet, ws.Len())
	for _, issue := range report.Issues {
		fmt.Fprintf(out, "  row %d: %s=%v is not a number, using %v\n", issue.Record+1, issue.Field, issue.Value, issue.Default)
	}
	return nil
}
