package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/service"
	"cable-orchestrator/internal/sheet"
)

var suggestFlags struct {
	schema string
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <file>",
	Short: "Suggest a field mapping for a spreadsheet's headers",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuggest,
}

func init() {
	suggestCmd.Flags().StringVar(&suggestFlags.schema, "schema", string(models.SchemaSizing), "Target schema: sizing or catalog")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	schema := models.Schema(suggestFlags.schema)
	if !schema.Valid() {
		return fmt.Errorf("unknown schema %q", suggestFlags.schema)
	}
	df, err := sheet.Read(args[0])
	if err != nil {
		return err
	}
	m := service.SuggestMapping(df.Headers, nil, schema.Fields())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d headers, %d rows\n\n", df.FileName, len(df.Headers), len(df.Rows))
	printMapping(out, m, schema.Fields())
	if un := service.UnmappedFields(m, schema.Fields()); len(un) > 0 {
		fmt.Fprintf(out, "\nUnmapped: %v\n", un)
	}
	return nil
}
