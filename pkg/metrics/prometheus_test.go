package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()

	r.RecordCacheLookup("market", CacheHit)
	r.RecordCacheLookup("market", CacheHit)
	r.RecordCacheLookup("market", CacheMiss)
	r.RecordNarrative("queued")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("market", CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("market", CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.narrativeOutcomes.WithLabelValues("queued")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordCacheLookup("market", CacheHit)
		r.RecordFetch("RSI", time.Second)
		r.RecordAnalysis(time.Second)
		r.RecordNarrative("failed")
		r.RecordHTTP("/api/analyze", http.MethodPost, http.StatusOK, time.Millisecond)
	})
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.RecordFetch("OVERVIEW", 200*time.Millisecond)
	r.RecordHTTP("/health", http.MethodGet, http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "equitylens_upstream_fetch_duration_seconds")
	assert.Contains(t, body, `equitylens_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
