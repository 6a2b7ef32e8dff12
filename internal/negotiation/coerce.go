package negotiation

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonNumeric    = regexp.MustCompile(`[^0-9.\-]`)
	numericPrefix = regexp.MustCompile(`^-?(?:\d+(?:\.\d*)?|\.\d+)`)
)

// section is one named group of an analytics document. A nil section
// behaves like an empty object.
type section map[string]any

func asSection(v any) section {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m
}

// lookup returns the value of the first candidate key present in s.
// Present keys win even when their value is null, zero or empty.
func (s section) lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := s[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func (s section) str(def string, keys ...string) string {
	v, _ := s.lookup(keys...)
	return toString(v, def)
}

func (s section) num(def float64, keys ...string) float64 {
	v, _ := s.lookup(keys...)
	return toNumber(v, def)
}

func (s section) integer(def int, keys ...string) int {
	return roundInt(s.num(float64(def), keys...))
}

func (s section) list(keys ...string) []string {
	v, _ := s.lookup(keys...)
	return toStringSlice(v)
}

func (s section) prices(keys ...string) []string {
	v, _ := s.lookup(keys...)
	return toPriceSlice(v)
}

func (s section) price(keys ...string) string {
	v, _ := s.lookup(keys...)
	return toPrice(v)
}

func (s section) flag(keys ...string) bool {
	v, _ := s.lookup(keys...)
	return truthy(v)
}

func (s section) optionalInt(keys ...string) *int {
	v, ok := s.lookup(keys...)
	if !ok {
		return nil
	}
	f, ok := parseNumber(v)
	if !ok {
		return nil
	}
	n := roundInt(f)
	return &n
}

// truthy mirrors JavaScript truthiness for decoded JSON values.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// parseNumber accepts native numbers, and strings from which every character
// other than digits, '-' and '.' is stripped before reading the leading number.
func parseNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f, !math.IsInf(f, 0)
		}
		return parseNumericString(t.String())
	case string:
		return parseNumericString(t)
	}
	return 0, false
}

func parseNumericString(s string) (float64, bool) {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	m := numericPrefix.FindString(cleaned)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toNumber(v any, def float64) float64 {
	if f, ok := parseNumber(v); ok {
		return f
	}
	return def
}

func roundInt(f float64) int {
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	case math.IsNaN(f):
		return 0
	}
	return int(math.Round(f))
}

func toString(v any, def string) string {
	if !truthy(v) {
		return def
	}
	return stringify(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			if e == nil {
				continue
			}
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ",")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func toStringSlice(v any) []string {
	if !truthy(v) {
		return []string{}
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = stringify(e)
		}
		return out
	case string:
		return []string{t}
	}
	return []string{}
}

func toPriceSlice(v any) []string {
	if !truthy(v) {
		return []string{}
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = formatPriceElement(e)
		}
		return out
	case string:
		return []string{formatPriceElement(t)}
	}
	return []string{}
}

func formatPriceElement(v any) string {
	switch t := v.(type) {
	case float64:
		return FormatAmount(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return FormatAmount(f)
		}
		return "$" + t.String()
	case string:
		if strings.HasPrefix(t, "$") {
			return t
		}
		return "$" + t
	}
	return stringify(v)
}

func toPrice(v any) string {
	switch t := v.(type) {
	case float64:
		return FormatAmount(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return FormatAmount(f)
		}
	}
	return toString(v, notSpecified)
}
