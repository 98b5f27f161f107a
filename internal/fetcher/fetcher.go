// Package fetcher opens the dashboard's static assets from local files,
// http(s) URLs or ftp URLs, and unpacks the archives they come in.
package fetcher

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher opens static dashboard assets (lookup tables, GeoJSON sources,
// shapefile archives).
type Fetcher interface {
	// Download opens location and returns its body.
	Download(ctx context.Context, location string) (io.ReadCloser, error)
}

// Router dispatches ftp:// locations to FTP and everything else to HTTP,
// which also serves local paths.
type Router struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewRouter returns a Router over fresh HTTP and FTP fetchers.
func NewRouter(httpOpts HTTPOptions, ftpOpts FTPOptions) *Router {
	return &Router{HTTP: NewHTTPFetcher(httpOpts), FTP: NewFTPFetcher(ftpOpts)}
}

// Download implements Fetcher.
func (r *Router) Download(ctx context.Context, location string) (io.ReadCloser, error) {
	if IsFTP(location) {
		if r.FTP == nil {
			return nil, eris.Errorf("fetcher: no ftp fetcher for %s", location)
		}
		return r.FTP.Download(ctx, location)
	}
	return r.HTTP.Download(ctx, location)
}

// IsFTP reports whether location is an ftp URL.
func IsFTP(location string) bool {
	return strings.HasPrefix(location, "ftp://")
}

// DownloadToFile copies location to path and returns the bytes written.
func DownloadToFile(ctx context.Context, f Fetcher, location, path string) (int64, error) {
	rc, err := f.Download(ctx, location)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: create %s", path)
	}

	n, err := io.Copy(file, rc)
	if err != nil {
		_ = file.Close()
		return n, eris.Wrapf(err, "fetcher: write %s", path)
	}
	return n, eris.Wrapf(file.Close(), "fetcher: close %s", path)
}
