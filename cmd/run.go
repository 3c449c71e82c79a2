package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/adreport-cli/internal/pipeline"
)

var runExport bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync, report, transform and summarise spend in one go",
	Long:  "Runs sync, report, transform and spend in order under a single ledger run. A sync with no new rows ends the run; a failing later stage is reported and the rest still run.\n\nWith the default --period next the report stage has no data and the run exits 4; pass --period latest to render the newest week.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		syncOpts, err := syncOptions(syncSince, syncUntil, syncDays, syncSkipVideo)
		if err != nil {
			return err
		}
		spendOpts, err := spendOptions(cmd)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "run", envOptions{Meta: true, Warehouse: runExport})
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = env.Pipeline.Run(ctx, pipeline.RunOptions{
			Sync:      syncOpts,
			Report:    pipeline.ReportOptions{Period: reportPeriod, OutDir: reportOutDir},
			Transform: pipeline.TransformOptions{WriteXLSX: transformXLSX},
			Spend:     spendOpts,
			Export:    runExport,
		})
		return err
	},
}

func init() {
	addSyncFlags(runCmd)
	addReportFlags(runCmd)
	addSpendFlags(runCmd)
	runCmd.Flags().BoolVar(&transformXLSX, "xlsx", false, "also write the XLSX copy of the downstream table")
	runCmd.Flags().BoolVar(&runExport, "export", false, "upsert the downstream table into the warehouse")
	rootCmd.AddCommand(runCmd)
}
