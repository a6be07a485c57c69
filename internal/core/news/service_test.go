package news

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newslk/internal/core/category"
	"newslk/internal/core/recreate"
)

const base = "https://news.test/api"

type memCache struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls   map[string]int
}

func newMemCache() *memCache { return &memCache{values: map[string][]byte{}, ttls: map[string]int{}} }

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
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.values[key] = b
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) drop(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

type stubThumbnails map[string]string

func (s stubThumbnails) Exists(_ context.Context, id, cat string) (string, bool) {
	u, ok := s[category.CacheKey(cat, id)]
	return u, ok
}

type recordingQueue struct {
	reqs []recreate.Request
	seen map[string]bool
}

func (q *recordingQueue) Enqueue(_ context.Context, r recreate.Request) bool {
	if q.seen == nil {
		q.seen = map[string]bool{}
	}
	if q.seen[r.ArticleID] {
		return false
	}
	q.seen[r.ArticleID] = true
	q.reqs = append(q.reqs, r)
	return true
}

type stubCategorizer struct {
	name  string
	err   error
	calls int
}

func (s *stubCategorizer) Categorize(context.Context, string, string, []string) (string, error) {
	s.calls++
	return s.name, s.err
}

type countingObserver map[string]int

func (c countingObserver) ObserveNewsCache(result string) { c[result]++ }

const latestBody = `{"success":true,"count":3,"data":[
 {"id":"101","headline":"Lions win the series","url":"https://news.test/101","thumbnail":"https://img.test/101.jpg","summary":"Cricket","category":"sports","publishedDate":"17 January 2026 10:34 AM"},
 {"id":"102","headline":"Port expansion begins","url":"https://news.test/102","thumbnail":"https://img.test/102.jpg","summary":"Colombo","category":"general","publishedDate":"not a date"},
 {"id":"103","headline":"No picture here","url":"https://news.test/103","thumbnail":"","summary":"","category":"weather","publishedDate":""}
]}`

func newTestService(t *testing.T, opts Options) (*Service, *httpmock.MockTransport, *memCache, *recordingQueue) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	client := NewClient(base, time.Second, &http.Client{Transport: mock})
	cache := newMemCache()
	queue := &recordingQueue{}
	thumbs := stubThumbnails{"sports-101": "https://cdn.test/generated-thumbnails/sports-101.png"}
	svc := NewService(client, cache, thumbs, queue, opts)
	svc.now = func() time.Time { return time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC) }
	return svc, mock, cache, queue
}

func TestGetNewsDecoratesAndQueuesMisses(t *testing.T) {
	svc, mock, _, queue := newTestService(t, Options{Recreation: true})
	mock.RegisterResponder(http.MethodGet, base+"/latest-news?limit=10", httpmock.NewStringResponder(200, latestBody))
	mock.RegisterResponder(http.MethodGet, "https://news.test/103",
		httpmock.NewStringResponder(200, `<html><head><meta property="og:image" content="/media/103.jpg"></head></html>`))

	articles, err := svc.GetNews(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, articles, 3)

	// cached recreation is served
	assert.Equal(t, "https://cdn.test/generated-thumbnails/sports-101.png", articles[0].ImageURL)
	assert.True(t, articles[0].GeneratedThumbnail)
	assert.Equal(t, "https://img.test/101.jpg", articles[0].OriginalImageURL)
	assert.Equal(t, "Sports", articles[0].Category)
	assert.Equal(t, time.Date(2026, 1, 17, 5, 4, 0, 0, time.UTC), articles[0].PublishedAt)

	// miss: original served, job queued
	assert.Equal(t, "https://img.test/102.jpg", articles[1].ImageURL)
	assert.False(t, articles[1].GeneratedThumbnail)
	assert.Equal(t, "Local News", articles[1].Category)
	assert.Equal(t, svc.now(), articles[1].PublishedAt)

	// og:image fallback, unknown label defaults to Local News
	assert.Equal(t, "https://news.test/media/103.jpg", articles[2].OriginalImageURL)
	assert.Equal(t, "Local News", articles[2].Category)

	require.Len(t, queue.reqs, 2)
	assert.Equal(t, recreate.Request{
		ArticleID:        "102",
		OriginalImageURL: "https://img.test/102.jpg",
		Title:            "Port expansion begins",
		Category:         "Local News",
	}, queue.reqs[0])
	assert.Equal(t, "103", queue.reqs[1].ArticleID)
}

func TestGetNewsWithoutRecreationServesOriginals(t *testing.T) {
	svc, mock, _, queue := newTestService(t, Options{})
	mock.RegisterResponder(http.MethodGet, base+"/latest-news?limit=10", httpmock.NewStringResponder(200, latestBody))
	mock.RegisterResponder(http.MethodGet, "https://news.test/103", httpmock.NewStringResponder(404, ""))

	articles, err := svc.GetNews(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/101.jpg", articles[0].ImageURL)
	assert.Equal(t, PlaceholderImage, articles[2].ImageURL)
	assert.Empty(t, queue.reqs)
}

func TestGetNewsUsesFreshCache(t *testing.T) {
	obs := countingObserver{}
	svc, mock, _, _ := newTestService(t, Options{Metrics: obs})
	mock.RegisterResponder(http.MethodGet, `=~^https://news\.test/api/category/sports`, httpmock.NewStringResponder(200, latestBody))
	mock.RegisterResponder(http.MethodGet, "https://news.test/103", httpmock.NewStringResponder(404, ""))

	_, err := svc.GetNews(context.Background(), category.Sports, 5)
	require.NoError(t, err)
	_, err = svc.GetNews(context.Background(), category.Sports, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, mock.GetCallCountInfo()["GET =~^https://news\\.test/api/category/sports"])
	assert.Equal(t, 1, obs["fresh"])
	assert.Equal(t, 1, obs["miss"])
}

func TestGetNewsServesStaleOnOutage(t *testing.T) {
	obs := countingObserver{}
	svc, mock, cache, _ := newTestService(t, Options{Metrics: obs})
	mock.RegisterResponder(http.MethodGet, base+"/breaking-news?limit=5", httpmock.NewStringResponder(200, latestBody))
	mock.RegisterResponder(http.MethodGet, "https://news.test/103", httpmock.NewStringResponder(404, ""))

	_, err := svc.GetNews(context.Background(), category.BreakingNews, 5)
	require.NoError(t, err)
	assert.Equal(t, staleTTL, cache.ttls["stale:news:feed:breaking-news:5"])
	assert.Equal(t, 300, cache.ttls["news:feed:breaking-news:5"])

	cache.drop("news:feed:breaking-news:5")
	mock.RegisterResponder(http.MethodGet, base+"/breaking-news?limit=5", httpmock.NewStringResponder(503, "down"))

	articles, err := svc.GetNews(context.Background(), category.BreakingNews, 5)
	require.NoError(t, err)
	assert.Len(t, articles, 3)
	assert.Equal(t, 1, obs["stale"])
}

func TestGetNewsOutageWithoutStaleFails(t *testing.T) {
	svc, mock, _, _ := newTestService(t, Options{})
	mock.RegisterResponder(http.MethodGet, base+"/latest-news?limit=10", httpmock.NewStringResponder(200, `{"success":false,"error":"upstream rate limited"}`))

	_, err := svc.GetNews(context.Background(), "", 10)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorContains(t, err, "upstream rate limited")
}

func TestGetArticle(t *testing.T) {
	svc, mock, _, queue := newTestService(t, Options{Recreation: true})
	mock.RegisterResponder(http.MethodGet, base+"/article/102?details=true", httpmock.NewStringResponder(200,
		`{"success":true,"data":{"id":"102","headline":"Port expansion begins","url":"https://news.test/102","thumbnail":"https://img.test/102.jpg","summary":"Colombo","fullText":"Full story","category":"business","publishedDate":"2026-01-18T08:00:00Z","images":[{"url":"https://img.test/102.jpg","alt":"Cranes at the port","caption":""}]}}`))
	mock.RegisterResponder(http.MethodGet, base+"/article/404?details=true", httpmock.NewStringResponder(404, ""))

	a, err := svc.GetArticle(context.Background(), "102")
	require.NoError(t, err)
	assert.Equal(t, "Full story", a.FullText)
	assert.Equal(t, "Business", a.Category)
	assert.Equal(t, "Cranes at the port", a.ImageHint)
	require.Len(t, queue.reqs, 1)

	// second read comes from cache and does not queue twice
	_, err = svc.GetArticle(context.Background(), "102")
	require.NoError(t, err)
	assert.Equal(t, 1, mock.GetTotalCallCount())
	assert.Len(t, queue.reqs, 1)

	_, err = svc.GetArticle(context.Background(), "404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAICategorization(t *testing.T) {
	cat := &stubCategorizer{name: "Technology"}
	svc, mock, cache, _ := newTestService(t, Options{Categorizer: cat})
	mock.RegisterResponder(http.MethodGet, base+"/latest-news?limit=10", httpmock.NewStringResponder(200, latestBody))
	mock.RegisterResponder(http.MethodGet, "https://news.test/103", httpmock.NewStringResponder(404, ""))

	articles, err := svc.GetNews(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, "Sports", articles[0].Category)
	assert.Equal(t, "Technology", articles[2].Category)
	assert.Equal(t, 1, cat.calls)
	assert.Equal(t, categoryTTL, cache.ttls["news:category:103"])
}

func TestAICategorizationFailureDefaults(t *testing.T) {
	cat := &stubCategorizer{err: errors.New("quota")}
	svc, _, _, _ := newTestService(t, Options{Categorizer: cat})

	got := svc.categorize(context.Background(), SourceArticle{ID: "9", Category: "weather"})
	assert.Equal(t, category.LocalNews, got)
}

func TestWarm(t *testing.T) {
	svc, mock, _, queue := newTestService(t, Options{Recreation: true})
	mock.RegisterResponder(http.MethodGet, `=~^https://news\.test/api/category/general`, httpmock.NewStringResponder(200, latestBody))
	mock.RegisterResponder(http.MethodGet, "https://news.test/103", httpmock.NewStringResponder(404, ""))

	n, err := svc.Warm(context.Background(), category.LocalNews, 10)
	require.NoError(t, err)
	// 101 is cached and 103 only has the placeholder
	assert.Equal(t, 1, n)
	assert.Equal(t, "102", queue.reqs[0].ArticleID)

	off, _, _, _ := newTestService(t, Options{})
	n, err = off.Warm(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestParseDate(t *testing.T) {
	svc, _, _, _ := newTestService(t, Options{})
	assert.Equal(t, time.Date(2026, 1, 17, 10, 4, 0, 0, time.UTC), svc.parseDate("17 January 2026 3:34 PM"))
	assert.Equal(t, svc.now(), svc.parseDate(""))
}
