package main

import (
	"github.com/spf13/cobra"

	"github.com/campus-atlas/plan-cli/internal/model"
	"github.com/campus-atlas/plan-cli/internal/reconcile"
	"github.com/campus-atlas/plan-cli/internal/source"
)

var syncSchedSweep bool

var syncSchedCmd = &cobra.Command{
	Use:   "sync-sched",
	Short: "Sync the scheduling feed",
	Long:  "Pulls every venue from the timetabling service and reconciles it; with --sweep, scheduling namespaces the feed no longer lists are soft-deleted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		client := source.NewSchedulingClient(cfg.Scheduling.BaseURL,
			source.WithSchedulingRateLimit(cfg.Scheduling.RPS))
		records, err := client.FetchVenues(ctx)
		if err != nil {
			return err
		}

		batch := reconcile.NewBatch(model.SourceScheduling)
		summary, err := e.pipeline.SyncRecords(ctx, batch, records)
		if summary != nil {
			summary.Log("sync-sched", batch.ID)
		}
		if err != nil {
			return err
		}

		if syncSchedSweep {
			if _, err := e.reconciler.SweepStale(ctx, batch); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	syncSchedCmd.Flags().BoolVar(&syncSchedSweep, "sweep", true, "soft-delete scheduling namespaces this batch did not touch")
	rootCmd.AddCommand(syncSchedCmd)
}
