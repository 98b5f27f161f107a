package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent: "test-agent",
		Timeout:   5 * time.Second,
	})
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Download(context.Background(), srv.URL+"/data")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestDownload_NoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDownload_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.json")
	require.NoError(t, writeTestFile(path, `{"Ohio":["43201"]}`))

	for _, loc := range []string{path, "file://" + path} {
		body, err := newTestFetcher().Download(context.Background(), loc)
		require.NoError(t, err)
		data, err := io.ReadAll(body)
		require.NoError(t, err)
		body.Close()
		assert.Equal(t, `{"Ohio":["43201"]}`, string(data))
	}
}

func TestDownload_MissingFile(t *testing.T) {
	_, err := newTestFetcher().Download(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestDownload_RateLimiterCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	lim.Allow()

	f := NewHTTPFetcher(HTTPOptions{RateLimiters: map[string]*rate.Limiter{u.Host: lim}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.Download(ctx, srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter wait")
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/a.geojson"))
	assert.True(t, IsRemote("http://localhost/a"))
	assert.False(t, IsRemote("data/a.geojson"))
	assert.False(t, IsRemote("file:///tmp/a"))
}

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Ohio":["43201","43215"]}`))
	}))
	defer srv.Close()

	got, err := FetchJSON[map[string][]string](context.Background(), newTestFetcher(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"43201", "43215"}, (*got)["Ohio"])
}

func TestFetchJSON_Invalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := FetchJSON[map[string][]string](context.Background(), newTestFetcher(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode object")
}
