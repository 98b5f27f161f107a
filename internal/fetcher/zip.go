package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP unpacks every file of the archive under destDir and returns
// their paths. Entries escaping destDir are rejected.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open archive %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	var paths []string
	for _, f := range r.File {
		p, err := extractEntry(f, destDir)
		if err != nil {
			return paths, err
		}
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// FindExt returns the first path with the given extension, compared
// case-insensitively.
func FindExt(paths []string, ext string) (string, bool) {
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ext) {
			return p, true
		}
	}
	return "", false
}

func extractEntry(f *zip.File, destDir string) (string, error) {
	dest := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(dest), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("fetcher: illegal archive path %q", f.Name)
	}

	if f.FileInfo().IsDir() {
		return "", eris.Wrap(os.MkdirAll(dest, 0o755), "fetcher: create directory")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: open entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: create %s", dest)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return "", eris.Wrapf(err, "fetcher: write %s", dest)
	}
	return dest, eris.Wrapf(out.Close(), "fetcher: close %s", dest)
}
