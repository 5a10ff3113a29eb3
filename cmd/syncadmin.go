package main

import (
	"github.com/spf13/cobra"

	"github.com/campus-atlas/plan-cli/internal/model"
	"github.com/campus-atlas/plan-cli/internal/reconcile"
	"github.com/campus-atlas/plan-cli/internal/source"
)

var syncAdminSweep bool

var syncAdminCmd = &cobra.Command{
	Use:   "sync-admin <workbook.xlsx>",
	Short: "Sync the administrative workbook",
	Long:  "Loads the administrative XLSX export and reconciles every building it lists; with --sweep, administrative namespaces absent from the workbook are soft-deleted.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		records, err := source.LoadAdministrative(args[0])
		if err != nil {
			return err
		}

		batch := reconcile.NewBatch(model.SourceAdministrative)
		summary, err := e.pipeline.SyncRecords(ctx, batch, records)
		if summary != nil {
			summary.Log("sync-admin", batch.ID)
		}
		if err != nil {
			return err
		}

		if syncAdminSweep {
			if _, err := e.reconciler.SweepStale(ctx, batch); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	syncAdminCmd.Flags().BoolVar(&syncAdminSweep, "sweep", true, "soft-delete administrative namespaces this batch did not touch")
	rootCmd.AddCommand(syncAdminCmd)
}
