package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hdx-scrapers/icpac-cdi/internal/config"
	"github.com/hdx-scrapers/icpac-cdi/internal/download"
	"github.com/hdx-scrapers/icpac-cdi/internal/pipeline"
)

var runArgs struct {
	save     bool
	useSaved bool
	dryRun   bool
	years    []int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingest and print the run report",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().BoolVar(&runArgs.save, "save", false, "keep copies of everything downloaded in the saved data directory")
	runCmd.Flags().BoolVar(&runArgs.useSaved, "use-saved", false, "read listings and rasters from the saved data directory instead of the network")
	runCmd.Flags().BoolVar(&runArgs.dryRun, "dry-run", false, "assemble datasets without writing to HDX")
	runCmd.Flags().IntSliceVar(&runArgs.years, "year", nil, "year to process (repeatable); defaults to the current and, early in the year, previous year")
	runCmd.MarkFlagsMutuallyExclusive("save", "use-saved")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	svc, err := newService(ctx, cfg, download.RetrieverConfig{
		Save:     runArgs.save,
		UseSaved: runArgs.useSaved,
	}, nil)
	if err != nil {
		return err
	}

	report, err := svc.Run(ctx, pipeline.RunOptions{
		Years:  runArgs.years,
		DryRun: runArgs.dryRun,
	})
	if printErr := printReport(report); printErr != nil && err == nil {
		err = printErr
	}
	return err
}

func printReport(report pipeline.RunReport) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

