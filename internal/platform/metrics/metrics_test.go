package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueMetrics(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.SetQueueDepth(3, 1)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.QueuePending))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueueProcessing))

	m.ObserveJob("recreated", 2*time.Second)
	m.ObserveJob("fallback", time.Second)
	m.ObserveJob("recreated", time.Second)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.JobsTotal.WithLabelValues("recreated")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobsTotal.WithLabelValues("fallback")))
}

func TestProviderAttempts(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.ObserveAttempt("pollinations", "error", time.Second)
	m.ObserveAttempt("pollinations", "success", time.Second)
	m.ObserveAttempt("deepai", "skipped", 0)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderAttempts.WithLabelValues("pollinations", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderAttempts.WithLabelValues("deepai", "skipped")))
}

func TestLLMCalls(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.ObserveLLMCall("categorize", "ok", 300*time.Millisecond)
	m.ObserveLLMCall("categorize", "error", time.Second)
	m.ObserveLLMCall("analyze", "ok", 2*time.Second)

	assert.Equal(t, 3, testutil.CollectAndCount(m.LLMCalls))
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewWithRegistry(reg)
	require.NoError(t, err)
	_, err = NewWithRegistry(reg)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.ObserveNewsCache("stale")

	app := fiber.New()
	app.Get("/metrics", m.Handler())
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `newslk_news_cache_total{result="stale"} 1`)
	assert.Contains(t, string(body), "newslk_recreation_queue_pending 0")
}
