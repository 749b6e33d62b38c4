package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/service"
)

var matchFlags struct {
	topN    int
	mapping []string
	apply   bool
}

var matchCmd = &cobra.Command{
	Use:   "match <catalog-file>",
	Short: "Match worksheet rows against a vendor catalog",
	Long: "Uploads the catalog to the sizing service, saves the field mapping,\n" +
		"ranks catalog parts for every row and, with --apply, attaches the\n" +
		"best part to each row and re-sizes the worksheet.",
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	f := matchCmd.Flags()
	f.IntVar(&matchFlags.topN, "top-n", 3, "Suggestions per row")
	f.StringArrayVar(&matchFlags.mapping, "map", nil, "Override a mapping entry as field=header (repeatable)")
	f.BoolVar(&matchFlags.apply, "apply", false, "Attach the best part to each row and re-size")
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	overrides, err := parseMapFlags(matchFlags.mapping, models.SchemaCatalog)
	if err != nil {
		return err
	}
	ws, err := e.loadWorksheet()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	wizard := service.NewCatalogWizard(e.client, e.store, e.log)
	if _, err := wizard.Upload(ctx, filepath.Base(args[0]), f); err != nil {
		return err
	}
	for field, header := range overrides {
		if err := wizard.SetMapping(field, header); err != nil {
			return err
		}
	}
	count, err := wizard.SaveMapping(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printMapping(out, wizard.Mapping(), models.CatalogFields)
	fmt.Fprintf(out, "\nCatalog rows recognised: %d\n\n", count)

	rows := ws.Rows()
	results, err := wizard.Match(ctx, service.BuildMatchRows(rows), matchFlags.topN)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CABLE\tRANK\tSCORE\tVENDOR\tPART\tCSA mm2")
	for _, res := range results {
		if len(res.Suggestions) == 0 {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t(no suitable part)\t-\n", rows[res.RowIndex].CableNumber)
			continue
		}
		for i, s := range res.Suggestions {
			fmt.Fprintf(tw, "%s\t%d\t%.3f\t%s\t%s\t%g\n",
				rows[res.RowIndex].CableNumber, i+1, s.Score, s.Entry.Vendor, s.Entry.PartNo, s.Entry.CSAmm2)
		}
	}
	tw.Flush()

	if !matchFlags.apply {
		return nil
	}
	applied, err := ws.ApplyMatches(ctx, results)
	if saveErr := saveWorksheet(ws); saveErr != nil {
		return saveErr
	}
	if err != nil {
		return fmt.Errorf("attached %d parts but re-sizing failed: %w", applied, err)
	}
	fmt.Fprintf(out, "\nAttached %d parts\n\n", applied)
	printRows(out, ws.Rows())
	return nil
}
