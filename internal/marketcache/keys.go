package marketcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SelectionAll is the hash of a nil or empty selection
const SelectionAll = "all"

const hashLength = 12

// Key families, also used as metric labels
const (
	FamilyMarket    = "market"
	FamilyAnalysis  = "analysis"
	FamilyNarrative = "narrative"
)

// NormalizeSymbol trims and upper-cases a ticker
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ShortHash returns the first 12 hex chars of the SHA-256 of the canonical
// JSON encoding of v. Map keys are sorted by encoding/json.
func ShortHash(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashLength], nil
}

// HashSelection hashes a selection independent of order.
// nil and empty selections both hash to "all".
func HashSelection(selection []string) string {
	if len(selection) == 0 {
		return SelectionAll
	}
	sorted := append([]string(nil), selection...)
	sort.Strings(sorted)

	// []string always marshals
	h, _ := ShortHash(sorted)
	return h
}

// MarketKey is the cache key of one upstream call
func MarketKey(symbol, function string, params map[string]string) string {
	if params == nil {
		params = map[string]string{}
	}
	h, _ := ShortHash(params)
	return fmt.Sprintf("%s:%s:%s:%s", FamilyMarket, NormalizeSymbol(symbol), function, h)
}

// AnalysisKey is the cache key of a combined analysis
func AnalysisKey(symbol string, fundamentals, technicals []string) string {
	return fmt.Sprintf("%s:%s:%s:%s", FamilyAnalysis, NormalizeSymbol(symbol),
		HashSelection(fundamentals), HashSelection(technicals))
}

// NarrativeKey is the dedup key of a generated narrative
func NarrativeKey(symbol string, payload interface{}) (string, error) {
	h, err := ShortHash(payload)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%s", FamilyNarrative, NormalizeSymbol(symbol), h), nil
}

func family(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
