package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	Delimiter rune // default ','
	Comment   rune // 0 = none
}

// ReadCSV reads a CSV with a header row and calls fn for every data row,
// keyed by lower-cased, trimmed header names. It stops at the first error
// from fn or when ctx is done.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions, fn func(row map[string]string) error) error {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.Comment = opts.Comment
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return eris.Wrap(err, "fetcher: read csv header")
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	for {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "fetcher: csv cancelled")
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "fetcher: read csv row")
		}

		row := make(map[string]string, len(header))
		for i, v := range record {
			if i < len(header) {
				row[header[i]] = strings.TrimSpace(v)
			}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}
