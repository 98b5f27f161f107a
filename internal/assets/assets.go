// Package assets loads the static data the dashboard needs before its
// interactive routes are enabled.
package assets

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/zipmap/internal/feature"
	"github.com/sells-group/zipmap/internal/fetcher"
	"github.com/sells-group/zipmap/internal/region"
)

// Options names the asset locations.
type Options struct {
	Fetcher fetcher.Fetcher
	// Lookup supplies the state → ZIP table.
	Lookup region.Source
	// States and Zipcodes are GeoJSON FeatureCollection locations. Empty
	// locations are skipped.
	States   string
	Zipcodes string
}

// Bundle holds the loaded assets. Missing assets are empty, never nil.
type Bundle struct {
	Lookup   region.Lookup
	States   *geojson.FeatureCollection
	Zipcodes *geojson.FeatureCollection
	ByName   *feature.Index
	ByZip3   *feature.Index
	LoadedAt time.Time
}

// Empty returns a bundle with no data and empty indexes.
func Empty() *Bundle {
	b := &Bundle{
		Lookup:   region.Lookup{},
		States:   &geojson.FeatureCollection{},
		Zipcodes: &geojson.FeatureCollection{},
	}
	b.ByName = feature.NewIndex(b.States, feature.PropName)
	b.ByZip3 = feature.NewIndex(b.Zipcodes, feature.PropZip3)
	return b
}

// Load fetches the lookup and both feature collections concurrently. A
// failed asset is logged and left empty; only cancellation of ctx is
// returned as an error.
func Load(ctx context.Context, opts Options) (*Bundle, error) {
	log := zap.L().With(zap.String("component", "assets"))
	b := Empty()

	g, gctx := errgroup.WithContext(ctx)
	if opts.Lookup != nil {
		g.Go(func() error {
			b.Lookup = region.LoadOrEmpty(gctx, opts.Lookup)
			return gctx.Err()
		})
	}
	if opts.States != "" {
		g.Go(func() error {
			if fc := loadCollection(gctx, log, opts.Fetcher, "states", opts.States); fc != nil {
				b.States = fc
			}
			return gctx.Err()
		})
	}
	if opts.Zipcodes != "" {
		g.Go(func() error {
			if fc := loadCollection(gctx, log, opts.Fetcher, "zipcodes", opts.Zipcodes); fc != nil {
				b.Zipcodes = fc
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "assets: load")
	}

	b.ByName = feature.NewIndex(b.States, feature.PropName)
	b.ByZip3 = feature.NewIndex(b.Zipcodes, feature.PropZip3)
	b.LoadedAt = time.Now().UTC()

	log.Info("assets loaded",
		zap.Int("lookup_states", b.Lookup.States()),
		zap.Int("state_features", len(b.States.Features)),
		zap.Int("zip3_features", len(b.Zipcodes.Features)),
	)
	return b, nil
}

func loadCollection(ctx context.Context, log *zap.Logger, f fetcher.Fetcher, name, location string) *geojson.FeatureCollection {
	body, err := f.Download(ctx, location)
	if err != nil {
		log.Error("failed to load feature collection", zap.String("source", name), zap.String("location", location), zap.Error(err))
		return nil
	}
	defer body.Close() //nolint:errcheck

	fc, err := feature.Decode(body)
	if err != nil {
		log.Error("failed to decode feature collection", zap.String("source", name), zap.String("location", location), zap.Error(err))
		return nil
	}
	return fc
}
