package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/crm-sync/internal/model"
	"github.com/sells-group/crm-sync/internal/syncer"
)

var planStdout bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Fetch Airtable and write the reconciliation SQL without touching the CRM",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initSyncEnv(ctx, "plan")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Engine.Run(ctx, syncer.RunOpts{Trigger: "cli"})
		if err != nil {
			return err
		}

		if planStdout {
			_, err := io.WriteString(os.Stdout, res.Artifact)
			return err
		}
		formatResult(os.Stdout, res)
		return nil
	},
}

func init() {
	planCmd.Flags().BoolVar(&planStdout, "stdout", false, "print the SQL artifact instead of the summary")
	rootCmd.AddCommand(planCmd)
}

// formatResult writes a short run summary to w.
func formatResult(out io.Writer, res *syncer.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.RunID)
	_, _ = fmt.Fprintf(w, "Artifact:\t%s\n", res.ArtifactPath)

	for _, t := range model.EntityTypes() {
		line := fmt.Sprintf("%d records", res.Plan.Records[t])
		if fr, ok := res.Fetch[t]; ok && !fr.Complete {
			line += " (incomplete)"
		}
		_, _ = fmt.Fprintf(w, "%s:\t%s\n", t.Table(), line)
	}
	_, _ = fmt.Fprintf(w, "Statements:\tupdates=%d inserts=%d links=%d deletes=%d\n",
		len(res.Plan.Updates), len(res.Plan.Inserts), len(res.Plan.Links), len(res.Plan.Deletes))
	if n := len(res.Plan.Skipped); n > 0 {
		_, _ = fmt.Fprintf(w, "Skipped:\t%d\n", n)
	}
	if n := len(res.Plan.Duplicates); n > 0 {
		_, _ = fmt.Fprintf(w, "Duplicate keys:\t%d\n", n)
	}
	if r := res.Report; r != nil {
		state := "committed"
		if !r.Committed {
			state = "rolled back (dry run)"
		}
		_, _ = fmt.Fprintf(w, "Applied:\t%s, %d rows affected\n", state, r.Total)
	}
	_ = w.Flush()
}
