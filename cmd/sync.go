package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/adreport-cli/internal/model"
	"github.com/sells-group/adreport-cli/internal/pipeline"
)

var (
	syncSince     string
	syncUntil     string
	syncDays      int
	syncSkipVideo bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch new daily insights and merge them into the datasets",
	Long:  "Resolves the extraction window from the last dataset date (or --since/--until), fetches campaign and ad-level video insights for every configured account and day, and rewrites both datasets.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := syncOptions(syncSince, syncUntil, syncDays, syncSkipVideo)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "sync", envOptions{Meta: true})
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = env.Pipeline.Sync(ctx, opts)
		return err
	},
}

// syncOptions parses the window flags.
func syncOptions(since, until string, days int, skipVideo bool) (pipeline.SyncOptions, error) {
	opts := pipeline.SyncOptions{Days: days, SkipVideo: skipVideo}
	var err error
	if opts.Since, err = parseDateFlag("since", since); err != nil {
		return opts, err
	}
	if opts.Until, err = parseDateFlag("until", until); err != nil {
		return opts, err
	}
	return opts, nil
}

// parseDateFlag parses an optional YYYY-MM-DD flag value.
func parseDateFlag(name, value string) (model.Date, error) {
	if value == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(value)
	if err != nil {
		return model.Date{}, eris.Wrapf(pipeline.ErrPrecondition, "invalid --%s %q, want YYYY-MM-DD", name, value)
	}
	return d, nil
}

func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&syncSince, "since", "", "first day to fetch (YYYY-MM-DD)")
	cmd.Flags().StringVar(&syncUntil, "until", "", "last day to fetch (YYYY-MM-DD), requires --since")
	cmd.Flags().IntVar(&syncDays, "days", 0, "window length in days (default sync.window_days)")
	cmd.Flags().BoolVar(&syncSkipVideo, "skip-video", false, "skip the ad-level video fetch")
}

func init() {
	addSyncFlags(syncCmd)
	rootCmd.AddCommand(syncCmd)
}
