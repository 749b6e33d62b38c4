package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sizeFlags struct {
	grouping float64
}

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Size every worksheet row through the sizing service",
	RunE:  runSize,
}

func init() {
	sizeCmd.Flags().Float64Var(&sizeFlags.grouping, "grouping", -1, "Grouping threshold for this and later passes (0..1)")
}

func runSize(cmd *cobra.Command, _ []string) error {
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
	if ws.Len() == 0 {
		return fmt.Errorf("%s has no rows; run 'cablectl import' first", globalFlags.worksheet)
	}
	if cmd.Flags().Changed("grouping") {
		if err := ws.SetGroupingThreshold(sizeFlags.grouping); err != nil {
			return err
		}
	}
	if err := ws.Recompute(ctx); err != nil {
		return err
	}
	if err := saveWorksheet(ws); err != nil {
		return err
	}
	printRows(cmd.OutOrStdout(), ws.Rows())
	return nil
}
