package job

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newslk/internal/core/recreate"
)

// memCache mimics the Redis cache helpers, including redis.Nil on misses.
type memCache struct {
	mu        sync.Mutex
	values    map[string][]byte
	ttls      map[string]int
	published []string
	setErr    error
}

func newMemCache() *memCache {
	return &memCache{values: map[string][]byte{}, ttls: map[string]int{}}
}

func (m *memCache) CacheGet(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.values[key]
	if !ok {
		return redisv8.Nil
	}
	return json.Unmarshal(b, dest)
}

func (m *memCache) CacheSet(_ context.Context, key string, val interface{}, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.values[key] = b
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Publish(_ context.Context, channel, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, channel+"="+message)
	return nil
}

var sample = recreate.Request{ArticleID: "A1", OriginalImageURL: "http://x/img.jpg", Title: "Match", Category: "Sports"}

func TestLifecycleCompleted(t *testing.T) {
	cache := newMemCache()
	svc := NewService(cache)
	ctx := context.Background()

	require.NoError(t, svc.RecordPending(ctx, "job-1", sample))
	rec, err := svc.Get(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Equal(t, "job-1", rec.JobID)
	assert.Equal(t, 3600, cache.ttls["recreation:job:A1"])

	require.NoError(t, svc.RecordProcessing(ctx, "A1"))
	rec, _ = svc.Get(ctx, "A1")
	assert.Equal(t, StatusProcessing, rec.Status)
	assert.NotNil(t, rec.StartedAt)

	require.NoError(t, svc.RecordFinished(ctx, "A1", recreate.Outcome{URL: "http://cdn/a.png", Recreated: true, Provider: "pollinations"}))
	rec, _ = svc.Get(ctx, "A1")
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, "http://cdn/a.png", rec.ResultURL)
	assert.Equal(t, "pollinations", rec.Provider)
	assert.Equal(t, "job-1", rec.JobID)
	assert.Equal(t, "Sports", rec.Category)
	assert.NotNil(t, rec.FinishedAt)
	assert.Equal(t, 86400, cache.ttls["recreation:job:A1"])

	assert.Equal(t, []string{
		"recreation:job:A1=pending",
		"recreation:job:A1=processing",
		"recreation:job:A1=completed",
	}, cache.published)
}

func TestFinishedWithoutImageIsFailed(t *testing.T) {
	svc := NewService(newMemCache())
	ctx := context.Background()
	require.NoError(t, svc.RecordPending(ctx, "job-2", sample))

	require.NoError(t, svc.RecordFinished(ctx, "A1", recreate.Outcome{URL: sample.OriginalImageURL}))
	rec, err := svc.Get(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Empty(t, rec.ResultURL)
	assert.NotEmpty(t, rec.Error)
}

func TestGetMissing(t *testing.T) {
	_, err := NewService(newMemCache()).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteFailureSurfaces(t *testing.T) {
	cache := newMemCache()
	cache.setErr = errors.New("connection refused")
	err := NewService(cache).RecordPending(context.Background(), "j", sample)
	assert.ErrorContains(t, err, "connection refused")
}

func TestHandleGet(t *testing.T) {
	svc := NewService(newMemCache())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	require.NoError(t, svc.RecordPending(context.Background(), "job-3", sample))

	app := fiber.New()
	app.Get("/jobs/:articleId", NewHandler(svc).HandleGet)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/jobs/A1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `"status":"pending"`)
	assert.Contains(t, string(raw), `"enqueued_at":"2025-03-01T10:00:00Z"`)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/jobs/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
