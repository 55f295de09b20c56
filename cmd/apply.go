package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/crm-sync/internal/syncer"
)

var applyDryRun bool

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Plan and execute the reconciliation SQL in one transaction",
	Long:  "Runs the same pipeline as plan, writes the artifact, then executes every statement against target.database_url in a single transaction. --dry-run rolls the transaction back.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initSyncEnv(ctx, "apply")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Engine.Run(ctx, syncer.RunOpts{
			Trigger: "cli",
			Apply:   true,
			DryRun:  applyDryRun,
		})
		if err != nil {
			return err
		}

		formatResult(os.Stdout, res)
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "execute the plan and roll it back")
	rootCmd.AddCommand(applyCmd)
}
