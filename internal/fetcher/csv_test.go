package fetcher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := "\ufeffState , ZipCode\nOhio, 43201 \nTexas,75001,extra\nGuam\n"
	var rows []map[string]string
	err := ReadCSV(context.Background(), strings.NewReader(in), CSVOptions{}, func(row map[string]string) error {
		rows = append(rows, row)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, map[string]string{"state": "Ohio", "zipcode": "43201"}, rows[0])
	assert.Equal(t, map[string]string{"state": "Texas", "zipcode": "75001"}, rows[1])
	assert.Equal(t, map[string]string{"state": "Guam"}, rows[2])
}

func TestReadCSV_Delimiter(t *testing.T) {
	var got []string
	err := ReadCSV(context.Background(), strings.NewReader("state|zipcode\n# note\nOhio|43201\n"),
		CSVOptions{Delimiter: '|', Comment: '#'}, func(row map[string]string) error {
			got = append(got, row["zipcode"])
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"43201"}, got)
}

func TestReadCSV_Empty(t *testing.T) {
	called := false
	err := ReadCSV(context.Background(), strings.NewReader(""), CSVOptions{}, func(map[string]string) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestReadCSV_CallbackError(t *testing.T) {
	stop := errors.New("stop")
	err := ReadCSV(context.Background(), strings.NewReader("a\n1\n2\n"), CSVOptions{}, func(map[string]string) error {
		return stop
	})
	assert.ErrorIs(t, err, stop)
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ReadCSV(ctx, strings.NewReader("a\n1\n"), CSVOptions{}, func(map[string]string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}
