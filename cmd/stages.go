package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/crm-sync/internal/model"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Print the Airtable stage label to CRM stage mapping",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatStages(os.Stdout)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stagesCmd)
}

func formatStages(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AIRTABLE LABEL\tCRM STAGE")
	for _, l := range model.StageLabels() {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", l.Label, l.Stage)
	}
	_, _ = fmt.Fprintf(w, "(anything else)\t%s\n", model.StageNew)
	_ = w.Flush()
}
