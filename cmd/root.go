package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/adreport-cli/internal/config"
	"github.com/sells-group/adreport-cli/internal/pipeline"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "adreport",
	Short: "Meta ads insights sync and weekly reporting",
	Long:  "Pulls daily campaign and video insights from the Meta Marketing API into local CSV datasets, renders the weekly comparison report and writes the downstream spreadsheets.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Process exit codes.
const (
	exitOK           = 0
	exitError        = 1
	exitPrecondition = 2
	exitAuth         = 3
	exitPartial      = 4
	exitNothingToDo  = 5
)

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case pipeline.IsAuth(err):
		return exitAuth
	case pipeline.IsPrecondition(err):
		return exitPrecondition
	case pipeline.IsNothingToDo(err):
		return exitNothingToDo
	case pipeline.IsPartial(err):
		return exitPartial
	default:
		return exitError
	}
}

func main() {
	err := rootCmd.Execute()
	code := exitCode(err)
	switch code {
	case exitOK:
	case exitNothingToDo:
		fmt.Fprintln(os.Stderr, "Nothing to do:", err)
	case exitPartial:
		fmt.Fprintln(os.Stderr, "Finished with warnings:", err)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(code)
}
