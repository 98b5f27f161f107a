// Package format renders property values for the sidebar tables.
package format

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Missing is rendered in place of absent values.
const Missing = "—"

var (
	mu      sync.RWMutex
	printer = message.NewPrinter(language.AmericanEnglish)
)

// SetLocale switches the locale used for digit grouping. An unparseable tag
// leaves the current locale in place.
func SetLocale(tag string) error {
	t, err := language.Parse(tag)
	if err != nil {
		return eris.Wrapf(err, "format: parse locale %q", tag)
	}
	mu.Lock()
	printer = message.NewPrinter(t)
	mu.Unlock()
	return nil
}

func currentPrinter() *message.Printer {
	mu.RLock()
	defer mu.RUnlock()
	return printer
}

// Currency formats v with exactly two decimals and locale grouping.
// Non-numeric values are returned as plain text.
func Currency(v any) string {
	if v == nil {
		return Missing
	}
	num, ok := Number(v)
	if !ok {
		return Value(v)
	}
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return strconv.FormatFloat(num, 'f', -1, 64)
	}
	return currentPrinter().Sprintf("%.2f", num)
}

// Value formats an arbitrary decoded JSON value for display.
func Value(v any) string {
	switch x := v.(type) {
	case nil:
		return Missing
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	case bool, int, int32, int64, uint, uint32, uint64:
		return fmt.Sprint(x)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

// Number converts a decoded JSON value to a float. Strings are parsed after
// trimming whitespace.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
