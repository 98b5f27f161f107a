package main

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zipmap/internal/config"
	"github.com/sells-group/zipmap/internal/shapefile"
	"github.com/sells-group/zipmap/internal/store"
)

const testCollection = `{"type":"FeatureCollection","features":[
  {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[-84.8,38.4],[-80.5,38.4],[-80.5,42.3],[-84.8,42.3],[-84.8,38.4]]]},"properties":{"name":"Ohio"}},
  {"type":"Feature","geometry":{"type":"Point","coordinates":[-83,40]},"properties":{"zip3":"432","name":"Columbus"}}
]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Server.Port = 8080
	c.Server.SessionTTLMins = 30
	c.Assets.LookupSource = "file"
	c.Assets.TimeoutSecs = 5
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "zipmap.db")
	c.Interaction.FitPadding = 0.15
	c.Sidebar.MaxHeightFraction = 0.96
	return c
}

func TestRunBBox_All(t *testing.T) {
	path := writeFile(t, "features.geojson", testCollection)

	var out bytes.Buffer
	require.NoError(t, runBBox(&out, path, "", "", 1280, 800))
	assert.Contains(t, out.String(), "Ohio\t-84.800000,38.400000,-80.500000,42.300000")
	assert.Contains(t, out.String(), "432\t-83.000000,40.000000,-83.000000,40.000000")
}

func TestRunBBox_Filter(t *testing.T) {
	path := writeFile(t, "features.geojson", testCollection)

	var out bytes.Buffer
	require.NoError(t, runBBox(&out, path, "", "Ohio", 1280, 800))
	assert.Contains(t, out.String(), "Ohio")
	assert.NotContains(t, out.String(), "432")
	assert.Contains(t, out.String(), "zoom=")

	err := runBBox(&out, path, "999", "", 1280, 800)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no feature matches")
}

func TestRunBBox_MissingFile(t *testing.T) {
	err := runBBox(&bytes.Buffer{}, filepath.Join(t.TempDir(), "nope.geojson"), "", "", 1280, 800)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bbox: open")
}

func TestLookupImportAndShow(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t)
	src := writeFile(t, "state_zipcodes.json", `{"Ohio":["43201","43215","44101"],"Delaware":["19701"]}`)

	st, err := openStore(ctx, c)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	imp, err := runLookupImport(ctx, c, st, src)
	require.NoError(t, err)
	assert.Equal(t, 2, imp.States)
	assert.Equal(t, 4, imp.Zipcodes)

	var out bytes.Buffer
	require.NoError(t, runLookupShow(ctx, &out, st, ""))
	assert.Contains(t, out.String(), "import "+imp.ID)
	assert.Contains(t, out.String(), "Delaware\t1")
	assert.Contains(t, out.String(), "Ohio\t3")

	out.Reset()
	require.NoError(t, runLookupShow(ctx, &out, st, "Ohio"))
	assert.Equal(t, "Ohio\t3 zipcodes\t432,441\n", out.String())

	assert.Error(t, runLookupShow(ctx, &out, st, "Atlantis"))
}

func TestLookupShow_Empty(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "empty.db"), nil)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	var out bytes.Buffer
	require.NoError(t, runLookupShow(ctx, &out, st, ""))
	assert.Equal(t, "no lookup imported\n", out.String())
}

func TestLookupImport_EmptySource(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t)
	src := writeFile(t, "empty.json", `{}`)

	st, err := openStore(ctx, c)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, err = runLookupImport(ctx, c, st, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no states")
}

func TestInitServe_FromFiles(t *testing.T) {
	c := testConfig(t)
	c.Assets.LookupPath = writeFile(t, "lookup.json", `{"Ohio":["43201"]}`)
	c.Assets.StatesPath = writeFile(t, "states.geojson", testCollection)
	c.Assets.ZipcodesPath = writeFile(t, "zips.geojson", testCollection)

	env, err := initServe(context.Background(), c)
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, 1, env.Bundle.Lookup.States())
	_, ok := env.Bundle.ByZip3.Get("432")
	assert.True(t, ok)

	rr := httptest.NewRecorder()
	env.Server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/lookup/Ohio", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestInitServe_FromStore(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t)
	c.Assets.LookupSource = "store"

	st, err := openStore(ctx, c)
	require.NoError(t, err)
	_, err = st.ReplaceLookup(ctx, "test", map[string][]string{"Texas": {"75001"}})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	env, err := initServe(ctx, c)
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, []string{"750"}, env.Bundle.Lookup.Zip3s("Texas"))
}

func TestInitServe_MissingAssetsDegrade(t *testing.T) {
	c := testConfig(t)
	c.Assets.LookupPath = filepath.Join(t.TempDir(), "missing.json")

	env, err := initServe(context.Background(), c)
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, 0, env.Bundle.Lookup.States())
	assert.Empty(t, env.Bundle.Zipcodes.Features)
}

func TestLoadMapConfig(t *testing.T) {
	cfg, err := loadMapConfig("")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Layers)

	_, err = loadMapConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRunConvert_MissingShapefile(t *testing.T) {
	f := newFetcher(testConfig(t))
	_, err := runConvert(context.Background(), f, filepath.Join(t.TempDir(), "nope.shp"), filepath.Join(t.TempDir(), "out.geojson"), shapefile.Options{})
	require.Error(t, err)
}

// zippedShapefile writes a one-record ZIP3 shapefile and packs it the way
// the Census distributes boundary files.
func zippedShapefile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	base := filepath.Join(dir, "zip3")

	w, err := shp.Create(base+".shp", shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{shp.StringField("ZIP3", 3)})
	ring := []shp.Point{{X: -83, Y: 39}, {X: -83, Y: 40}, {X: -82, Y: 40}, {X: -82, Y: 39}, {X: -83, Y: 39}}
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{ring}))
	n := int(w.Write(&poly))
	require.NoError(t, w.WriteAttribute(n, 0, "432"))
	w.Close()

	archive := filepath.Join(dir, "zip3.zip")
	out, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		data, err := os.ReadFile(base + ext)
		require.NoError(t, err)
		entry, err := zw.Create("tl_zip3/zip3" + ext)
		require.NoError(t, err)
		_, err = entry.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	return archive
}

func TestRunConvert_RemoteArchive(t *testing.T) {
	archive := zippedShapefile(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, archive)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "zip3.geojson")
	n, err := runConvert(context.Background(), newFetcher(testConfig(t)), srv.URL+"/tl_zip3.zip", out, shapefile.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"zip3":"432"`)
}

func TestRunConvert_ArchiveWithoutShapefile(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "empty.zip")
	out, err := os.Create(archive)
	require.NoError(t, err)
	require.NoError(t, zip.NewWriter(out).Close())
	require.NoError(t, out.Close())

	_, err = runConvert(context.Background(), newFetcher(testConfig(t)), archive, filepath.Join(t.TempDir(), "o.geojson"), shapefile.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .shp file")
}
