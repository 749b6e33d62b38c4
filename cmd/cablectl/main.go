// cablectl drives the bulk cable worksheet from the command line: suggest,
// import, size, match, boq, report.
//
// Usage:
//
//	cablectl suggest feeders.xlsx [--schema=sizing]
//	cablectl import feeders.xlsx [-w worksheet.json] [--map field=header]
//	cablectl size [-w worksheet.json]
//	cablectl match catalog.xlsx [--top-n=3] [--apply]
//	cablectl boq [--csv=boq.csv]
//	cablectl report [--out=sizing.csv] [--remote --columns=...]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "cablectl",
	Short: "Bulk cable sizing worksheet tool",
	Long:  "cablectl imports feeder lists, sizes them through the sizing service,\nmatches vendor catalog parts and produces the bill of quantities.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&globalFlags.worksheet, "worksheet", "w", "worksheet.json", "Worksheet file")
	f.StringVar(&globalFlags.service, "service", "", "Sizing service URL (default $SIZING_SERVICE_URL or config)")
	f.StringVar(&globalFlags.store, "store", "", "Mapping store SQLite file (default in the user config dir)")
	f.BoolVarP(&globalFlags.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(sizeCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(boqCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
