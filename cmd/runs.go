package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/crm-sync/internal/model"
	"github.com/sells-group/crm-sync/internal/monitoring"
	"github.com/sells-group/crm-sync/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect sync run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sync runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		trigger, _ := cmd.Flags().GetString("trigger")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:  model.RunStatus(status),
			Trigger: trigger,
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

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recent run health",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lookback, _ := cmd.Flags().GetInt("lookback")
		if lookback == 0 {
			lookback = cfg.Monitoring.LookbackRuns
		}

		snap, err := monitoring.NewCollector(st).Collect(ctx, lookback)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}
		formatStats(os.Stdout, snap)
		return nil
	},
}

func init() {
	runsStatsCmd.Flags().Int("lookback", 0, "number of recent runs to summarize (default from config)")
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().String("trigger", "", "filter by trigger (cli, webhook)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTRIGGER\tSTATUS\tSTARTED\tDURATION\tCHANGES")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t-------\t--------\t-------")

	for _, r := range runs {
		dur := "-"
		if r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}

		changes := ""
		switch {
		case r.Summary != nil:
			changes = fmt.Sprintf("u=%d i=%d l=%d d=%d", r.Summary.Updates, r.Summary.Inserts, r.Summary.Links, r.Summary.Deletes)
			if r.Summary.Applied {
				changes += " applied"
			}
		case r.Error != "":
			changes = r.Error
			if len(changes) > 40 {
				changes = changes[:37] + "..."
			}
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Trigger,
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			changes,
		)
	}
	_ = w.Flush()
}

// formatStats writes a run health snapshot to w.
func formatStats(out io.Writer, snap *monitoring.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Runs (last %d):\t%d\n", snap.LookbackRuns, snap.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", snap.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d (%.1f%%)\n", snap.Failed, snap.FailRate*100)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", snap.Running)
	_, _ = fmt.Fprintf(w, "Incomplete fetches:\t%d\n", snap.Incomplete)
	_, _ = fmt.Fprintf(w, "Duplicates:\t%d\n", snap.Duplicates)
	_, _ = fmt.Fprintf(w, "Skipped records:\t%d\n", snap.Skipped)
	_, _ = fmt.Fprintf(w, "Last success:\t%s\n", formatTime(snap.LastSuccess))
	_, _ = fmt.Fprintf(w, "Last failure:\t%s\n", formatTime(snap.LastFailure))
	_ = w.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
