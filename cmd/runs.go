package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/adreport-cli/internal/model"
	"github.com/sells-group/adreport-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run ledger",
	Long:  "Commands for listing, viewing, and summarizing recorded sync, report and export runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		command, _ := cmd.Flags().GetString("command")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:  model.RunStatus(status),
			Command: command,
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

// runDetail is the runs show payload.
type runDetail struct {
	*model.Run
	Phases      []model.RunPhase   `json:"phases"`
	FailedUnits []model.FailedUnit `json:"failed_units,omitempty"`
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		phases, err := st.ListPhases(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show: phases")
		}
		units, err := st.ListFailedUnits(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show: failed units")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runDetail{Run: run, Phases: phases, FailedUnits: units})
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}
		if since > 0 {
			runs = runsSince(runs, time.Now().Add(-since))
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, partial, noop, failed)")
	runsListCmd.Flags().String("command", "", "filter by command (sync, report, transform, spend, export, run)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 7*24*time.Hour, "time window for stats (e.g. 24h, 168h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runsSince keeps the runs created at or after cutoff.
func runsSince(runs []model.Run, cutoff time.Time) []model.Run {
	out := runs[:0:0]
	for _, r := range runs {
		if !r.CreatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total       int
	Complete    int
	Partial     int
	Noop        int
	Failed      int
	Other       int
	FailedUnits int
	AvgDurSecs  float64
}

// computeRunStats computes aggregate statistics from a list of runs.
func computeRunStats(runs []model.Run) runStats {
	var s runStats
	s.Total = len(runs)

	var totalDur time.Duration
	var durCount int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			totalDur += r.UpdatedAt.Sub(r.CreatedAt)
			durCount++
		case model.RunStatusPartial:
			s.Partial++
		case model.RunStatusNoop:
			s.Noop++
		case model.RunStatusFailed:
			s.Failed++
		default:
			s.Other++
		}
		if r.Result != nil {
			s.FailedUnits += r.Result.FailedUnits
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatRunsList writes a table of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"ID", "Command", "Status", "Window", "Rows", "Failed", "Created", "Duration"})

	for _, r := range runs {
		var window, rows, failed string
		if res := r.Result; res != nil {
			if !res.Since.IsZero() {
				window = res.Since.String() + ".." + res.Until.String()
			}
			if res.CampaignRows > 0 {
				rows = strconv.Itoa(res.CampaignRows)
			}
			if res.FailedUnits > 0 {
				failed = strconv.Itoa(res.FailedUnits)
			}
		}
		tw.AppendRow(table.Row{
			truncateID(r.ID),
			r.Command,
			r.Status,
			window,
			rows,
			failed,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String(),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	tw.Render()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.AppendRows([]table.Row{
		{"Total runs:", s.Total},
		{"Complete:", s.Complete},
		{"Partial:", s.Partial},
		{"Nothing to do:", s.Noop},
		{"Failed:", s.Failed},
		{"Other:", s.Other},
		{"Failed fetch units:", s.FailedUnits},
	})
	if s.AvgDurSecs > 0 {
		tw.AppendRow(table.Row{"Avg duration:", fmt.Sprintf("%.1fs", s.AvgDurSecs)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	tw.Render()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
