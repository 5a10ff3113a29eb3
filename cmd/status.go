package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campus-atlas/plan-cli/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the reconciled store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		buildings, err := e.repo.List(ctx)
		if err != nil {
			return err
		}

		perSource := map[model.SourceKind]int{}
		floors, rooms, unidentified := 0, 0, 0
		for _, b := range buildings {
			for _, kind := range model.Sources {
				if b.Source(kind) != nil {
					perSource[kind]++
				}
			}
			if b.Merged == nil {
				continue
			}
			floors += len(b.Merged.Floors)
			for _, f := range b.Merged.Floors {
				rooms += len(f.Rooms)
				unidentified += len(f.Unidentified)
			}
		}

		fmt.Printf("buildings: %d\n", len(buildings))
		for _, kind := range model.Sources {
			fmt.Printf("  with %s namespace: %d\n", kind, perSource[kind])
		}
		fmt.Printf("floors: %d\nrooms: %d identified, %d unidentified\n", floors, rooms, unidentified)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
