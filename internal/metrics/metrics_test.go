package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

func TestObserveSearch(t *testing.T) {
	m := newTestMetrics()

	m.ObserveSearch("relevance", "ok", 3*time.Millisecond)
	m.ObserveSearch("relevance", "ok", 5*time.Millisecond)
	m.ObserveSearch("unknown", "invalid", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("relevance", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("unknown", "invalid")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestRecorderAndDependencyGauges(t *testing.T) {
	m := newTestMetrics()

	m.TaskCompleted("suggestion", "success")
	m.TaskCompleted("suggestion", "failure")
	m.TaskCompleted("suggestion", "success")
	m.QueueDepth(7)
	m.SetDependency("postgres", true)
	m.SetDependency("redis", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BackgroundTasksTotal.WithLabelValues("suggestion", "success")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.RecorderQueueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DependencyUp.WithLabelValues("postgres")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DependencyUp.WithLabelValues("redis")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveSearch("price_asc", "empty", time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `pos_search_requests_total{outcome="empty",sort="price_asc"} 1`)
	assert.Contains(t, body, "pos_search_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}

func TestNewIsolatedRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
