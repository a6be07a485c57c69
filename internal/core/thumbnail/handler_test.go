package thumbnail

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdminApp(backend Backend) *fiber.App {
	h := NewHandler(New(backend, Options{}))
	app := fiber.New()
	app.Get("/thumbnails/stats", h.HandleStats)
	app.Get("/thumbnails", h.HandleList)
	app.Delete("/thumbnails/:category/:articleId", h.HandleDelete)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleStatsAndList(t *testing.T) {
	mem := newMemBackend()
	mem.objects[ObjectPath("1", "Sports")] = []byte("abcd")
	mem.objects[ObjectPath("2", "Local News")] = []byte("xy")
	app := newTestAdminApp(mem)

	status, body := doJSON(t, app, http.MethodGet, "/thumbnails/stats")
	require.Equal(t, http.StatusOK, status)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, "mem", stats["backend"])
	assert.EqualValues(t, 2, stats["count"])
	assert.EqualValues(t, 6, stats["total_bytes"])

	status, body = doJSON(t, app, http.MethodGet, "/thumbnails?limit=1")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])
	first := body["thumbnails"].([]any)[0].(map[string]any)
	assert.Equal(t, "generated-thumbnails/local-news-2.png", first["path"])
}

func TestHandleListEmptyIsArray(t *testing.T) {
	status, body := doJSON(t, newTestAdminApp(newMemBackend()), http.MethodGet, "/thumbnails")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body["thumbnails"])
}

func TestHandleListBackendError(t *testing.T) {
	mem := newMemBackend()
	mem.listErr = errors.New("bucket gone")
	app := newTestAdminApp(mem)

	status, body := doJSON(t, app, http.MethodGet, "/thumbnails")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "bucket gone", body["message"])

	status, _ = doJSON(t, app, http.MethodGet, "/thumbnails/stats")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestHandleDelete(t *testing.T) {
	mem := newMemBackend()
	mem.objects[ObjectPath("7", "Breaking News")] = []byte("img")
	app := newTestAdminApp(mem)

	status, body := doJSON(t, app, http.MethodDelete, "/thumbnails/Breaking%20News/7")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "generated-thumbnails/breaking-news-7.png", body["path"])
	assert.Empty(t, mem.objects)

	status, body = doJSON(t, app, http.MethodDelete, "/thumbnails/Sports/a..b")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Failed to delete thumbnail", body["error"])
}
