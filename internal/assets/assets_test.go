package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zipmap/internal/fetcher"
	"github.com/sells-group/zipmap/internal/region"
)

const statesGeoJSON = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"name":"Ohio"},
   "geometry":{"type":"Polygon","coordinates":[[[-84.8,38.4],[-80.5,38.4],[-80.5,42.3],[-84.8,38.4]]]}}]}`

const zipGeoJSON = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"zip3":"432","spending":"[]"},
   "geometry":{"type":"Point","coordinates":[-83,40]}}]}`

func TestLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/states.geojson":
			w.Write([]byte(statesGeoJSON))
		case "/zip3.geojson":
			w.Write([]byte(zipGeoJSON))
		case "/lookup.json":
			w.Write([]byte(`{"Ohio":["43201"]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
	b, err := Load(context.Background(), Options{
		Fetcher:  f,
		Lookup:   region.JSONSource{Fetcher: f, Location: srv.URL + "/lookup.json"},
		States:   srv.URL + "/states.geojson",
		Zipcodes: srv.URL + "/zip3.geojson",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"432"}, b.Lookup.Zip3s("Ohio"))
	assert.Len(t, b.States.Features, 1)
	_, ok := b.ByName.Get("Ohio")
	assert.True(t, ok)
	_, ok = b.ByZip3.Get("432")
	assert.True(t, ok)
	assert.False(t, b.LoadedAt.IsZero())
}

func TestLoad_FailuresLeaveEmptyAssets(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.geojson")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
	b, err := Load(context.Background(), Options{
		Fetcher:  f,
		Lookup:   region.JSONSource{Fetcher: f, Location: filepath.Join(dir, "missing.json")},
		States:   filepath.Join(dir, "missing.geojson"),
		Zipcodes: bad,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, b.Lookup.States())
	assert.Empty(t, b.States.Features)
	assert.Empty(t, b.Zipcodes.Features)
	assert.Equal(t, 0, b.ByZip3.Len())
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
	_, err := Load(ctx, Options{Fetcher: f, States: "http://127.0.0.1:0/states.geojson"})
	assert.Error(t, err)
}

func TestLoad_NothingConfigured(t *testing.T) {
	b, err := Load(context.Background(), Options{})
	require.NoError(t, err)
	assert.NotNil(t, b.Lookup)
	assert.NotNil(t, b.States)
	assert.Equal(t, 0, b.ByName.Len())
}
