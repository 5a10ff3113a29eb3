package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/campus-atlas/plan-cli/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export canonical room polygons",
	Long:  "Writes every reconciled room polygon as GeoJSON (to --out or stdout) or as a shapefile (--out required).",
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

		switch exportFormat {
		case "geojson":
			w := os.Stdout
			if exportOut != "" {
				f, err := os.Create(exportOut)
				if err != nil {
					return eris.Wrapf(err, "create %s", exportOut)
				}
				defer f.Close()
				w = f
			}
			return export.WriteGeoJSON(w, buildings)

		case "shapefile":
			if exportOut == "" {
				return eris.New("--out is required for shapefile export")
			}
			return export.WriteShapefile(exportOut, buildings)

		default:
			return eris.Errorf("unknown format %q (geojson, shapefile)", exportFormat)
		}
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "geojson", "output format: geojson or shapefile")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path")
	rootCmd.AddCommand(exportCmd)
}
