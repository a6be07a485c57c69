package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkFunc func(context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func ok(context.Context) error { return nil }

func probe(t *testing.T, h *HealthHandler) (int, OverallHealth) {
	t.Helper()
	app := fiber.New()
	app.Get("/health", h.HandleHealth)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var body OverallHealth
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestHealthStartingUntilReady(t *testing.T) {
	h := NewHealthHandler(map[string]Checker{"redis": checkFunc(ok)})

	status, body := probe(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "starting", body.OverallStatus)
	assert.False(t, body.Ready)

	h.SetReady()
	status, body = probe(t, h)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body.OverallStatus)
	assert.Equal(t, ComponentStatus{Status: "ok"}, body.Components["redis"])
}

func TestHealthReportsFailingComponent(t *testing.T) {
	h := NewHealthHandler(map[string]Checker{
		"redis":      checkFunc(ok),
		"thumbnails": checkFunc(func(context.Context) error { return errors.New("bucket missing") }),
	})
	h.SetReady()

	status, body := probe(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "error", body.OverallStatus)
	assert.Equal(t, "ok", body.Components["redis"].Status)
	assert.Equal(t, ComponentStatus{Status: "error", Error: "bucket missing"}, body.Components["thumbnails"])
}
