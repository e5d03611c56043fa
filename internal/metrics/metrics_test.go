package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCounters(t *testing.T) {
	m := New()
	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded("completed")
	m.ModelError("anthropic", "ModelUnavailable")
	m.OutboxOverflow(DropCoalesced)
	m.OutboxOverflow(DropCoalesced)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	body := scrape(t, m)
	assert.Contains(t, body, "debate_sessions_started_total 2\n")
	assert.Contains(t, body, "debate_sessions_active 1\n")
	assert.Contains(t, body, `debate_sessions_ended_total{status="completed"} 1`)
	assert.Contains(t, body, `debate_model_errors_total{kind="ModelUnavailable",provider="anthropic"} 1`)
	assert.Contains(t, body, `debate_outbox_overflow_total{outcome="coalesced"} 2`)
	assert.Contains(t, body, "debate_websocket_connections 1\n")
	assert.Contains(t, body, "go_goroutines")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionStarted()
		m.SessionEnded("stopped")
		m.ModelError("x", "y")
		m.OutboxOverflow(DropDiscarded)
		m.ConnectionOpened()
		m.ConnectionClosed()
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
