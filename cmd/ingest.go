package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/campus-atlas/plan-cli/internal/model"
	"github.com/campus-atlas/plan-cli/internal/reconcile"
	"github.com/campus-atlas/plan-cli/internal/source"
)

var (
	ingestFromFTP bool
	ingestTempDir string
	ingestSweep   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Extract drawings into the geometry namespace",
	Long:  "Reads the given DXF files (or directories of them, or the FTP drop with --ftp) and reconciles the extracted floors.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		paths, err := collectDrawingPaths(ctx, args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return eris.New("no drawings to ingest")
		}

		batch := reconcile.NewBatch(model.SourceGeometry)
		summary, err := e.pipeline.IngestDrawings(ctx, batch, paths)
		if summary != nil {
			summary.Log("ingest", batch.ID)
		}
		if err != nil {
			return err
		}

		if ingestSweep {
			if _, err := e.reconciler.SweepStale(ctx, batch); err != nil {
				return err
			}
		}
		return nil
	},
}

// collectDrawingPaths expands arguments into drawing files: files pass
// through, directories are scanned for .dxf entries. With --ftp the
// configured drop is mirrored first and its files added.
func collectDrawingPaths(ctx context.Context, args []string) ([]string, error) {
	var paths []string

	if ingestFromFTP {
		fetcher := source.NewDrawingFetcher(source.DrawingFetcherOptions{
			Host:     cfg.FTP.Host,
			User:     cfg.FTP.User,
			Password: cfg.FTP.Password,
			Dir:      cfg.FTP.Dir,
		})
		fetched, err := fetcher.FetchAll(ctx, ingestTempDir)
		if err != nil {
			return nil, err
		}
		paths = append(paths, fetched...)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "stat %s", arg)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "read directory %s", arg)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if strings.EqualFold(filepath.Ext(entry.Name()), ".dxf") {
				paths = append(paths, filepath.Join(arg, entry.Name()))
			}
		}
	}
	return paths, nil
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestFromFTP, "ftp", false, "fetch drawings from the configured FTP drop")
	ingestCmd.Flags().StringVar(&ingestTempDir, "tmp", "drawings", "local directory for fetched drawings")
	ingestCmd.Flags().BoolVar(&ingestSweep, "sweep", false, "soft-delete geometry namespaces this batch did not touch")
	rootCmd.AddCommand(ingestCmd)
}
