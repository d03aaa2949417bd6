package payload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) Payload {
	t.Helper()
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return p
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"nil", nil, nil},
		{"float", 1.5, Float(1.5)},
		{"int", 42, Float(42)},
		{"int64", int64(-3), Float(-3)},
		{"json number", json.Number("2.25"), Float(2.25)},
		{"padded string", "  12.5 ", Float(12.5)},
		{"negative string", "-0.4", Float(-0.4)},
		{"empty", "", nil},
		{"None", "None", nil},
		{"null", "null", nil},
		{"N/A", " N/A ", nil},
		{"garbage", "abc", nil},
		{"bool", true, nil},
		{"object", map[string]any{"a": 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToFloat(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-12)
		})
	}
}

func TestExtractSeries_SortsNewestFirstAndLimits(t *testing.T) {
	p := decode(t, `{"annualReports": [
		{"fiscalDateEnding": "2020-12-31", "totalRevenue": "100"},
		{"fiscalDateEnding": "2023-12-31", "totalRevenue": "130"},
		{"fiscalDateEnding": "2021-12-31", "totalRevenue": "None"},
		{"totalRevenue": "5"},
		{"fiscalDateEnding": "2022-12-31", "totalRevenue": 120}
	]}`)

	years, values := ExtractSeries(p.Records("annualReports"), "totalRevenue", 4)

	assert.Equal(t, []int{2023, 2022, 2021, 2020}, years)
	require.Len(t, values, 4)
	assert.Equal(t, 130.0, *values[0])
	assert.Equal(t, 120.0, *values[1])
	assert.Nil(t, values[2])
	assert.Equal(t, 100.0, *values[3])
}

func TestExtractSeries_MissingDateSortsLast(t *testing.T) {
	p := decode(t, `{"annualReports": [
		{"reportedEPS": "1.0"},
		{"fiscalDateEnding": "2023-12-31", "reportedEPS": "2.0"}
	]}`)

	years, values := ExtractSeries(p.Records("annualReports"), "reportedEPS", 4)
	assert.Equal(t, []int{2023, 0}, years)
	assert.Equal(t, 2.0, *values[0])
	assert.Equal(t, 1.0, *values[1])
}

func TestRecords_Tolerant(t *testing.T) {
	assert.Nil(t, Payload{}.Records("annualReports"))
	assert.Nil(t, Payload{"annualReports": "oops"}.Records("annualReports"))

	p := Payload{"annualReports": []any{map[string]any{"a": 1}, "junk", nil}}
	assert.Len(t, p.Records("annualReports"), 1)
}

func TestExtractBlock_TimeSeries(t *testing.T) {
	exact := decode(t, `{"Meta Data": {"1. Information": "x"}, "Time Series (Daily)": {"2024-01-02": {"4. close": "10"}}}`)
	assert.Len(t, ExtractBlock(exact, TimeSeriesRules), 1)

	trailing := decode(t, `{"Time Series (Daily) ": {"2024-01-02": {"4. close": "10"}, "2024-01-01": {"4. close": "9"}}}`)
	assert.Len(t, ExtractBlock(trailing, TimeSeriesRules), 2)

	fallback := decode(t, `{"Meta Data": {"1. Information": "x"}, "Series": {"2024-01-02": {"4. close": "10"}}}`)
	block := ExtractBlock(fallback, TimeSeriesRules)
	require.Len(t, block, 1)
	assert.Contains(t, block, "2024-01-02")

	assert.Empty(t, ExtractBlock(decode(t, `{"Note": "rate limited"}`), TimeSeriesRules))
}

func TestExtractBlock_Indicator(t *testing.T) {
	p := decode(t, `{
		"Meta Data": {"1: Symbol": "AAPL"},
		"Technical Analysis: RSI": {"2024-01-02": {"RSI": "65.1"}, "2024-01-01": {"RSI": "61.0"}}
	}`)

	block := ExtractBlock(p, IndicatorRules)
	latest, previous := block.LatestAndPrevious("RSI")
	require.NotNil(t, latest)
	require.NotNil(t, previous)
	assert.Equal(t, 65.1, *latest)
	assert.Equal(t, 61.0, *previous)
}

func TestBlock_LatestAndPrevious_Edges(t *testing.T) {
	latest, previous := Block{}.LatestAndPrevious("RSI")
	assert.Nil(t, latest)
	assert.Nil(t, previous)

	single := Block{"2024-01-02": map[string]any{"RSI": "50"}}
	latest, previous = single.LatestAndPrevious("RSI")
	assert.Equal(t, 50.0, *latest)
	assert.Nil(t, previous)
}

func TestBlock_LatestFieldsAndColumn(t *testing.T) {
	block := Block{
		"2024-01-03": map[string]any{"MACD": "1.2", "MACD_Signal": "1.0"},
		"2024-01-02": map[string]any{"MACD": "0.8", "MACD_Signal": "0.9"},
		"2024-01-01": map[string]any{"MACD": "0.5", "MACD_Signal": "N/A"},
	}

	latest, previous := block.LatestFields("MACD", "MACD_Signal", "MACD_Hist")
	assert.Equal(t, 1.2, *latest["MACD"])
	assert.Equal(t, 0.9, *previous["MACD_Signal"])
	assert.Nil(t, latest["MACD_Hist"])

	assert.Equal(t, []string{"2024-01-03", "2024-01-02", "2024-01-01"}, block.Dates())

	col := block.Column("MACD_Signal", 5)
	require.Len(t, col, 3)
	assert.Nil(t, col[2])
	assert.Len(t, block.Column("MACD", 2), 2)
}
