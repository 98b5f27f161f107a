package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/zipmap/internal/feature"
	"github.com/sells-group/zipmap/internal/geometry"
)

var bboxCmd = &cobra.Command{
	Use:   "bbox <file.geojson>",
	Short: "Print the bounding box and fit zoom of GeoJSON features",
	Long: `Reads a FeatureCollection and prints the bounding box of every feature, or of
the single feature selected with --zip3 or --name, together with the zoom level
at which it fits the given viewport.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		zip3, _ := cmd.Flags().GetString("zip3")
		name, _ := cmd.Flags().GetString("name")
		width, _ := cmd.Flags().GetFloat64("width")
		height, _ := cmd.Flags().GetFloat64("height")
		return runBBox(cmd.OutOrStdout(), args[0], zip3, name, width, height)
	},
}

func runBBox(w io.Writer, path, zip3, name string, width, height float64) error {
	file, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "bbox: open %s", path)
	}
	defer file.Close() //nolint:errcheck

	fc, err := feature.Decode(file)
	if err != nil {
		return err
	}

	var idx *feature.Index
	key := ""
	switch {
	case zip3 != "":
		idx, key = feature.NewIndex(fc, feature.PropZip3), zip3
	case name != "":
		idx, key = feature.NewIndex(fc, feature.PropName), name
	}

	for _, f := range fc.Features {
		if idx != nil {
			if match, ok := idx.Get(key); !ok || match != f {
				continue
			}
		}
		if f.Geometry == nil {
			continue
		}
		b := geometry.BoundingBox(f.Geometry)
		if b.Empty() {
			continue
		}
		label := feature.Zip3(f)
		if label == "" {
			label = feature.Name(f)
		}
		fmt.Fprintf(w, "%s\t%.6f,%.6f,%.6f,%.6f\tzoom=%.2f\n",
			label, b.MinLon, b.MinLat, b.MaxLon, b.MaxLat,
			geometry.ZoomToFit(b, width, height, geometry.DefaultFill))
	}
	if idx != nil {
		if _, ok := idx.Get(key); !ok {
			return eris.Errorf("bbox: no feature matches %q", key)
		}
	}
	return nil
}

func init() {
	bboxCmd.Flags().String("zip3", "", "only the feature with this zip3")
	bboxCmd.Flags().String("name", "", "only the feature with this name")
	bboxCmd.Flags().Float64("width", 1280, "viewport width in pixels")
	bboxCmd.Flags().Float64("height", 800, "viewport height in pixels")
	rootCmd.AddCommand(bboxCmd)
}
