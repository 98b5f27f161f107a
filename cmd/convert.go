package main

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zipmap/internal/fetcher"
	"github.com/sells-group/zipmap/internal/shapefile"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a ZIP3 boundary shapefile to GeoJSON",
	Long: `Convert a ZIP3 boundary shapefile to the GeoJSON source the map loads.
The --shp input may be a .shp file, a .zip archive holding one, or an
http(s) or ftp URL to either.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("shp")
		out, _ := cmd.Flags().GetString("out")
		zip3Field, _ := cmd.Flags().GetString("zip3-field")
		nameField, _ := cmd.Flags().GetString("name-field")
		fields, _ := cmd.Flags().GetStringSlice("fields")

		n, err := runConvert(cmd.Context(), newFetcher(cfg), in, out, shapefile.Options{
			Zip3Field: zip3Field,
			NameField: nameField,
			Fields:    fields,
		})
		if err != nil {
			return err
		}
		zap.L().Info("convert complete", zap.String("out", out), zap.Int("features", n))
		return nil
	},
}

func runConvert(ctx context.Context, f fetcher.Fetcher, in, out string, opts shapefile.Options) (int, error) {
	workDir, err := os.MkdirTemp("", "zipmap-convert-")
	if err != nil {
		return 0, eris.Wrap(err, "convert: create work dir")
	}
	defer os.RemoveAll(workDir) //nolint:errcheck

	shpPath, err := resolveShapefile(ctx, f, in, workDir)
	if err != nil {
		return 0, err
	}

	fc, err := shapefile.ToFeatureCollection(shpPath, opts)
	if err != nil {
		return 0, err
	}

	file, err := os.Create(out)
	if err != nil {
		return 0, eris.Wrapf(err, "convert: create %s", out)
	}
	if err := shapefile.Write(file, fc); err != nil {
		_ = file.Close()
		return 0, err
	}
	if err := file.Close(); err != nil {
		return 0, eris.Wrapf(err, "convert: close %s", out)
	}
	return len(fc.Features), nil
}

// resolveShapefile returns a local .shp path for in, downloading and
// unpacking into workDir as needed.
func resolveShapefile(ctx context.Context, f fetcher.Fetcher, in, workDir string) (string, error) {
	local := in
	if fetcher.IsRemote(in) || fetcher.IsFTP(in) {
		name := path.Base(strings.SplitN(in, "?", 2)[0])
		if name == "" || name == "/" || name == "." {
			name = "download.zip"
		}
		local = filepath.Join(workDir, name)
		n, err := fetcher.DownloadToFile(ctx, f, in, local)
		if err != nil {
			return "", eris.Wrapf(err, "convert: download %s", in)
		}
		zap.L().Info("convert: downloaded shapefile", zap.String("url", in), zap.Int64("bytes", n))
	}

	if !strings.EqualFold(filepath.Ext(local), ".zip") {
		return local, nil
	}

	files, err := fetcher.ExtractZIP(local, filepath.Join(workDir, "extract"))
	if err != nil {
		return "", err
	}
	shp, ok := fetcher.FindExt(files, ".shp")
	if !ok {
		return "", eris.Errorf("convert: no .shp file in %s", in)
	}
	return shp, nil
}

func init() {
	convertCmd.Flags().String("shp", "", "path or URL of the .shp file or .zip archive (required)")
	convertCmd.Flags().String("out", "zip3.geojson", "output GeoJSON path")
	convertCmd.Flags().String("zip3-field", "ZIP3", "attribute holding the 3-digit prefix")
	convertCmd.Flags().String("name-field", "", "attribute copied into the name property")
	convertCmd.Flags().StringSlice("fields", nil, "attributes to keep (default all)")
	_ = convertCmd.MarkFlagRequired("shp")
	rootCmd.AddCommand(convertCmd)
}
