package fetcher

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeJSONObject decodes a single JSON object from a reader.
func DecodeJSONObject[T any](r io.Reader) (*T, error) {
	var obj T
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return nil, eris.Wrap(err, "json: decode object")
	}
	return &obj, nil
}

// FetchJSON downloads location through f and decodes it into a T.
func FetchJSON[T any](ctx context.Context, f Fetcher, location string) (*T, error) {
	body, err := f.Download(ctx, location)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck
	return DecodeJSONObject[T](body)
}
