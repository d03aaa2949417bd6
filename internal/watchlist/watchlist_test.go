package watchlist

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, raw, err := Load(filepath.Join("testdata", "watchlist.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	assert.Equal(t, "megacaps", cfg.Meta.Name)
	assert.Equal(t, "0 30 6 * * 1-5", cfg.Meta.Schedule)
	require.Len(t, cfg.Symbols, 3)

	reqs := cfg.Requests()
	require.Len(t, reqs, 3)

	assert.Equal(t, "AAPL", reqs[0].Symbol)
	assert.Nil(t, reqs[0].Fundamentals)
	assert.Nil(t, reqs[0].Technicals)

	assert.Equal(t, "MSFT", reqs[1].Symbol)
	assert.Equal(t, []string{"rsi", "macd", "bbands"}, reqs[1].Technicals)

	assert.Equal(t, "NVDA", reqs[2].Symbol)
	require.NotNil(t, reqs[2].Fundamentals)
	assert.Empty(t, reqs[2].Fundamentals)
	assert.Nil(t, reqs[2].Technicals)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name: "unknown field",
			yaml: "meta:\n  name: x\nsymbolz:\n  - symbol: AAPL\n",
		},
		{
			name:  "no symbols",
			yaml:  "meta:\n  name: x\nsymbols: []\n",
			field: "symbols",
		},
		{
			name:  "blank symbol",
			yaml:  "symbols:\n  - symbol: '  '\n",
			field: "symbols[0].symbol",
		},
		{
			name:  "duplicate after normalization",
			yaml:  "symbols:\n  - symbol: aapl\n  - symbol: AAPL\n",
			field: "symbols[1].symbol",
		},
		{
			name:  "unsupported indicator",
			yaml:  "symbols:\n  - symbol: AAPL\n    technicals: [rsi, ichimoku]\n",
			field: "symbols[0].technicals",
		},
		{
			name:  "bad schedule",
			yaml:  "meta:\n  schedule: every morning\nsymbols:\n  - symbol: AAPL\n",
			field: "meta.schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			if tt.field != "" {
				var verr ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.field, verr.Field)
			}
		})
	}
}

func TestWarn(t *testing.T) {
	cfg, err := Parse([]byte("symbols:\n  - symbol: AAPL\n    fundamentals: [roe, moat]\n  - symbol: MSFT\n    fundamentals: []\n    technicals: []\n"))
	require.NoError(t, err)

	codes := map[string]int{}
	for _, w := range Warn(cfg) {
		codes[w.Code]++
	}
	assert.Equal(t, map[string]int{"SCHEDULE_DEFAULT": 1, "UNKNOWN_METRIC": 1, "EMPTY_SELECTION": 1}, codes)
}

func TestHash(t *testing.T) {
	a, err := Parse([]byte("symbols:\n  - symbol: AAPL\n"))
	require.NoError(t, err)
	b, err := Parse([]byte("# refreshed nightly\nsymbols:\n    - symbol:   AAPL\n"))
	require.NoError(t, err)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)

	assert.Len(t, ha, 64)
	assert.Equal(t, ha, hb)

	c := FromSymbols("", "", []string{"MSFT"})
	hc, err := Hash(c)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestFromSymbols(t *testing.T) {
	cfg := FromSymbols("env", "@daily", []string{"aapl", "msft"})
	require.NoError(t, Validate(cfg))

	reqs := cfg.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "AAPL", reqs[0].Symbol)
	assert.Nil(t, reqs[1].Technicals)
}
