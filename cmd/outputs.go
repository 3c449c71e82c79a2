package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/adreport-cli/internal/pipeline"
)

var transformXLSX bool

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Write the downstream BI table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "transform", envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = env.Pipeline.Transform(ctx, pipeline.TransformOptions{WriteXLSX: transformXLSX})
		return err
	},
}

var (
	spendCutoff     string
	spendByAccount  bool
	spendByCampaign bool
)

var spendCmd = &cobra.Command{
	Use:   "spend",
	Short: "Write the monthly spend workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := spendOptions(cmd)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "spend", envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = env.Pipeline.Spend(ctx, opts)
		return err
	},
}

// spendOptions reads the spend flags. Breakdown flags only override the
// config when given explicitly.
func spendOptions(cmd *cobra.Command) (pipeline.SpendOptions, error) {
	var opts pipeline.SpendOptions
	cutoff, err := parseDateFlag("cutoff", spendCutoff)
	if err != nil {
		return opts, err
	}
	opts.Cutoff = cutoff
	if cmd.Flags().Changed("by-account") {
		opts.ByAccount = &spendByAccount
	}
	if cmd.Flags().Changed("by-campaign") {
		opts.ByCampaign = &spendByCampaign
	}
	return opts, nil
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upsert the downstream table into the Postgres warehouse",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "export", envOptions{Warehouse: true})
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = env.Pipeline.Export(ctx)
		return err
	},
}

func addSpendFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&spendCutoff, "cutoff", "", "first day included (YYYY-MM-DD, default spend.cutoff)")
	cmd.Flags().BoolVar(&spendByAccount, "by-account", true, "add the per-account monthly sheet")
	cmd.Flags().BoolVar(&spendByCampaign, "by-campaign", false, "add the per-campaign monthly sheet")
}

func init() {
	transformCmd.Flags().BoolVar(&transformXLSX, "xlsx", false, "also write the XLSX copy")
	addSpendFlags(spendCmd)

	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(spendCmd)
	rootCmd.AddCommand(exportCmd)
}
