package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Render("note", ResultRendered)
		m.DeepLink(LinkPulled)
		m.BootRun(BootCompleted)
		m.StoreError("put")
		m.WakeLockHeld(true)
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.Render("note", ResultRendered)
	m.Render("note", ResultRendered)
	m.Render("reminders", ResultNoOp)
	m.WakeLockHeld(true)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.renders.WithLabelValues("note", ResultRendered)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.wakeLock))
}

func TestHandler(t *testing.T) {
	m := New()
	m.DeepLink(LinkDelivered)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `glance_deeplinks_total{event="delivered"} 1`)
}
