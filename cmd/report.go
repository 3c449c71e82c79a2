package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/adreport-cli/internal/pipeline"
)

var (
	reportPeriod string
	reportOutDir string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the weekly comparison tables",
	Long:  "Builds the Monday-aligned weekly series from the campaign dataset, compares the chosen period with the previous week and the trailing four-week average, prints both tables and writes them as PNG images.\n\nThe period defaults to \"next\", the week after the last synced one, which has no data yet; the report then exits 4 without writing images. Pass --period latest to report the newest complete week, or an explicit label such as 2025_abril_semana3.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "report", envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = env.Pipeline.Report(ctx, pipeline.ReportOptions{Period: reportPeriod, OutDir: reportOutDir})
		return err
	},
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&reportPeriod, "period", "", `period label, "next" or "latest" (default report.period)`)
	cmd.Flags().StringVar(&reportOutDir, "out-dir", "", "directory for the PNG tables (default paths.insight_dir)")
}

func init() {
	addReportFlags(reportCmd)
	rootCmd.AddCommand(reportCmd)
}
