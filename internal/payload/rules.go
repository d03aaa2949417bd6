package payload

import (
	"sort"
	"strings"
)

// Block is a date keyed series: date -> row of fields
type Block map[string]any

// Rule tries to locate a series block in a payload
type Rule func(p Payload) (Block, bool)

// TimeSeriesRules locate the daily price block
var TimeSeriesRules = []Rule{
	ExactKey("Time Series (Daily)"),
	ExactKey("Time Series (Daily) "),
	NestedMapScan,
}

// IndicatorRules locate a technical indicator block
var IndicatorRules = []Rule{
	PrefixKey("Technical Analysis"),
	NestedMapScan,
}

// ExtractBlock applies rules in order and returns the first match.
// A payload that matches nothing yields an empty block.
func ExtractBlock(p Payload, rules []Rule) Block {
	for _, rule := range rules {
		if block, ok := rule(p); ok {
			return block
		}
	}
	return Block{}
}

// ExactKey matches a key spelled exactly as given
func ExactKey(key string) Rule {
	return func(p Payload) (Block, bool) {
		v, ok := p[key]
		if !ok {
			return nil, false
		}
		if m := asMap(v); m != nil {
			return Block(m), true
		}
		// present but null or malformed
		return Block{}, true
	}
}

// PrefixKey matches the first key (in sorted order) with the given prefix
// whose value is an object.
func PrefixKey(prefix string) Rule {
	return func(p Payload) (Block, bool) {
		for _, key := range sortedKeys(p) {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			if m := asMap(p[key]); m != nil {
				return Block(m), true
			}
		}
		return nil, false
	}
}

// NestedMapScan matches the first top level object whose values are all objects
func NestedMapScan(p Payload) (Block, bool) {
	for _, key := range sortedKeys(p) {
		m := asMap(p[key])
		if m == nil {
			continue
		}
		nested := true
		for _, inner := range m {
			if asMap(inner) == nil {
				nested = false
				break
			}
		}
		if nested {
			return Block(m), true
		}
	}
	return nil, false
}

// Dates returns the block's dates newest first
func (b Block) Dates() []string {
	dates := make([]string, 0, len(b))
	for d := range b {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

// Row returns the fields recorded for date
func (b Block) Row(date string) map[string]any {
	return asMap(b[date])
}

// LatestAndPrevious returns field at the newest date and at the date
// before it. Either may be nil.
func (b Block) LatestAndPrevious(field string) (latest, previous *float64) {
	dates := b.Dates()
	if len(dates) == 0 {
		return nil, nil
	}
	latest = ToFloat(b.Row(dates[0])[field])
	if len(dates) > 1 {
		previous = ToFloat(b.Row(dates[1])[field])
	}
	return latest, previous
}

// LatestFields is LatestAndPrevious for several fields at once
func (b Block) LatestFields(fields ...string) (latest, previous map[string]*float64) {
	latest = make(map[string]*float64, len(fields))
	previous = make(map[string]*float64, len(fields))
	for _, f := range fields {
		latest[f], previous[f] = b.LatestAndPrevious(f)
	}
	return latest, previous
}

// Column returns field for the newest n dates (all when n < 0), nulls kept
func (b Block) Column(field string, n int) []*float64 {
	dates := b.Dates()
	if n >= 0 && len(dates) > n {
		dates = dates[:n]
	}
	out := make([]*float64, 0, len(dates))
	for _, d := range dates {
		out = append(out, ToFloat(b.Row(d)[field]))
	}
	return out
}

func sortedKeys(p Payload) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
