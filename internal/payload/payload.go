// Package payload holds the tolerant extraction primitives shared by the
// scoring engines. Upstream payloads are decoded JSON (map[string]any) whose
// values may be numbers or numeric strings and whose series blocks may be
// keyed under several spellings.
package payload

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Payload is one decoded upstream response
type Payload map[string]any

// missingDate orders reports without a fiscal date last
const missingDate = "0000-00-00"

var nullStrings = map[string]struct{}{
	"":     {},
	"None": {},
	"null": {},
	"N/A":  {},
}

// ToFloat coerces v to a number. Strings are trimmed and parsed; the null
// sentinels and anything non-numeric yield nil. It never panics.
func ToFloat(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if _, isNull := nullStrings[s]; isNull {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

// Float returns a pointer to f
func Float(f float64) *float64 {
	return &f
}

// Records returns the list stored under key as a slice of objects.
// Non-object entries are dropped.
func (p Payload) Records(key string) []map[string]any {
	switch list := p[key].(type) {
	case []map[string]any:
		return list
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if m := asMap(item); m != nil {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// ExtractSeries sorts reports newest first by fiscalDateEnding and returns
// the first limit (year, value) pairs for field.
func ExtractSeries(reports []map[string]any, field string, limit int) ([]int, []*float64) {
	sorted := make([]map[string]any, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return fiscalDate(sorted[i]) > fiscalDate(sorted[j])
	})

	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	years := make([]int, 0, len(sorted))
	values := make([]*float64, 0, len(sorted))
	for _, report := range sorted {
		years = append(years, yearOf(fiscalDate(report)))
		values = append(values, ToFloat(report[field]))
	}
	return years, values
}

func fiscalDate(report map[string]any) string {
	if d, ok := report["fiscalDateEnding"]; ok && d != nil {
		if s, ok := d.(string); ok {
			return s
		}
	}
	return missingDate
}

func yearOf(date string) int {
	head, _, _ := strings.Cut(date, "-")
	year, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return year
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case Payload:
		return m
	default:
		return nil
	}
}
