package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/campus-atlas/plan-cli/internal/model"
	"github.com/campus-atlas/plan-cli/internal/reconcile"
)

var (
	sweepSource string
	sweepBefore string
	sweepPurge  bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Soft-delete stale namespaces and purge orphaned buildings",
	Long:  "Soft-deletes the given source's namespace on every building not updated since --before, then (with --purge) destroys buildings no source any longer affirms.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if sweepSource != "" {
			before, err := time.Parse(time.RFC3339, sweepBefore)
			if err != nil {
				return eris.Wrap(err, "parse --before")
			}
			kind, err := parseSource(sweepSource)
			if err != nil {
				return err
			}

			batch := reconcile.Batch{ID: "manual-sweep", Source: kind, Stamp: before}
			ids, err := e.reconciler.SweepStale(ctx, batch)
			if err != nil {
				return err
			}
			fmt.Printf("swept %d %s namespaces\n", len(ids), kind)
		}

		if sweepPurge {
			ids, err := e.reconciler.HardDelete(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("purged %d buildings\n", len(ids))
		}
		return nil
	},
}

func parseSource(s string) (model.SourceKind, error) {
	for _, kind := range model.Sources {
		if s == string(kind) {
			return kind, nil
		}
	}
	return "", eris.Errorf("unknown source %q", s)
}

func init() {
	sweepCmd.Flags().StringVar(&sweepSource, "source", "", "namespace to sweep: geometry, administrative or scheduling")
	sweepCmd.Flags().StringVar(&sweepBefore, "before", time.Now().UTC().Format(time.RFC3339), "sweep namespaces last updated before this RFC3339 instant")
	sweepCmd.Flags().BoolVar(&sweepPurge, "purge", false, "destroy buildings whose namespaces are all soft-deleted")
	rootCmd.AddCommand(sweepCmd)
}
