package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilManagerIsNoop(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.RecordLLMRequest("judge", "ok", time.Second)
		m.RecordLLMRetry("judge")
		m.RecordCacheLookup("assessment", CacheHit)
		m.RecordCacheWrite("assessment", nil)
		m.ObserveStage("pipeline", time.Second)
		m.RecordSkillFailure("coach")
		m.ObserveRating("judge", 3)
		m.RecordHTTPRequest("/judge", "POST", "200", time.Millisecond)
	})
}

func TestManagerCounts(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewManager(WithRegistry(registry), WithNamespace("test"), WithSubsystem("unit"))

	m.RecordCacheLookup("assessment", CacheHit)
	m.RecordCacheLookup("assessment", CacheHit)
	m.RecordCacheLookup("assessment", CacheMiss)
	m.RecordCacheWrite("qualify", errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("assessment", CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("assessment", CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheWrites.WithLabelValues("qualify", "error")))
	assert.Same(t, registry, m.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewManager(WithRegistry(prometheus.NewRegistry()))
	m.RecordLLMRequest("judge", "ok", 250*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `sales_skills_engine_llm_requests_total{outcome="ok",stage="judge"} 1`), body)
}
