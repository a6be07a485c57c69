package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newslk/internal/core/job"
	"newslk/internal/core/news"
	"newslk/internal/core/prompt"
	"newslk/internal/core/provider"
	"newslk/internal/core/queue"
	"newslk/internal/core/recreate"
	"newslk/internal/core/thumbnail"
	"newslk/internal/platform/metrics"
)

type emptyCache struct{}

func (emptyCache) CacheGet(context.Context, string, interface{}) error { return redisv8.Nil }
func (emptyCache) CacheSet(context.Context, string, interface{}, int) error {
	return nil
}
func (emptyCache) Publish(context.Context, string, string) error { return nil }

type healthyRedis struct{}

func (healthyRedis) HealthCheck(context.Context) error { return nil }

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	backend, err := thumbnail.NewLocalBackend(t.TempDir(), "http://cdn.test")
	require.NoError(t, err)
	store := thumbnail.New(backend, thumbnail.Options{})

	m, err := metrics.NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	engine := recreate.NewEngine(store, provider.NewChain(), prompt.NewBuilder(nil), recreate.Options{Method: recreate.MethodNone})
	jobs := job.NewService(emptyCache{})
	q := queue.New(engine, queue.Options{Recorder: jobs, Metrics: m})

	app := fiber.New()
	h := RegisterRoutes(app, Dependencies{
		Jobs:       jobs,
		News:       news.NewService(nil, emptyCache{}, store, q, news.Options{}),
		Queue:      q,
		Engine:     engine,
		Thumbnails: store,
		Metrics:    m,
		Redis:      healthyRedis{},
	})
	h.SetReady()
	return app
}

func request(t *testing.T, app *fiber.App, method, target, body string) (int, string) {
	t.Helper()
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(r, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(raw)
}

func TestRoutesRegistered(t *testing.T) {
	app := newTestApp(t)

	cases := []struct {
		method, target, body string
		status               int
	}{
		{http.MethodGet, "/api/health", "", http.StatusOK},
		{http.MethodGet, "/api/recreation-queue/status", "", http.StatusOK},
		{http.MethodGet, "/api/recreation-queue/jobs/42", "", http.StatusNotFound},
		{http.MethodPost, "/api/recreation-queue/warm", "", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/recreate-image/analyze?imageUrl=http://x/a.jpg", "", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/thumbnails/stats", "", http.StatusOK},
		{http.MethodGet, "/api/thumbnails", "", http.StatusOK},
		{http.MethodGet, "/api/news?limit=0", "", http.StatusBadRequest},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/v1/health", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			status, body := request(t, app, tc.method, tc.target, tc.body)
			assert.Equal(t, tc.status, status, body)
		})
	}
}

func TestRecreateRouteKeepsOriginalWhenDisabled(t *testing.T) {
	app := newTestApp(t)

	status, raw := request(t, app, http.MethodPost, "/api/recreate-image",
		`{"originalImageUrl":"http://img.test/a.jpg","articleId":"7","title":"Budget passed","category":"Politics"}`)
	require.Equal(t, http.StatusOK, status, raw)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	assert.Equal(t, "http://img.test/a.jpg", body["recreatedUrl"])
	assert.Equal(t, false, body["cached"])
}

func TestDeleteThumbnailRoute(t *testing.T) {
	dir := t.TempDir()
	backend, err := thumbnail.NewLocalBackend(dir, "")
	require.NoError(t, err)
	store := thumbnail.New(backend, thumbnail.Options{})
	_, err = store.Save(context.Background(), "9", "Sports", []byte("\x89PNG\r\n\x1a\npayload"))
	require.NoError(t, err)

	app := fiber.New()
	RegisterRoutes(app, Dependencies{Thumbnails: store, Redis: healthyRedis{}})

	status, raw := request(t, app, http.MethodDelete, "/api/thumbnails/Sports/9", "")
	require.Equal(t, http.StatusOK, status, raw)
	assert.Contains(t, raw, "generated-thumbnails/sports-9.png")

	_, err = os.Stat(filepath.Join(dir, "generated-thumbnails", "sports-9.png"))
	assert.True(t, os.IsNotExist(err))
}
