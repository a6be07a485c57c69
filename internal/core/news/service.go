package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redisv8 "github.com/go-redis/redis/v8"

	"newslk/internal/core/category"
	"newslk/internal/core/recreate"
	"newslk/internal/logger"
	"newslk/internal/utils/markdown"
)

// PlaceholderImage is served for articles the source publishes without one.
const PlaceholderImage = "https://picsum.photos/seed/fallback/600/400"

const (
	staleTTL         = 24 * 60 * 60
	categoryTTL      = 7 * 24 * 60 * 60
	categorizeBudget = 10 * time.Second
)

// sourceTZ is the news source's local time (Sri Lanka, UTC+05:30).
var sourceTZ = time.FixedZone("IST", 5*3600+30*60)

// Source fetches raw articles.
type Source interface {
	Latest(ctx context.Context, limit int) ([]SourceArticle, error)
	ByCategory(ctx context.Context, cat category.Category, limit int) ([]SourceArticle, error)
	Article(ctx context.Context, id string) (*SourceArticle, error)
	OGImage(ctx context.Context, pageURL string) (string, error)
}

// Cache is the JSON cache the feeds are kept in.
type Cache interface {
	CacheGet(ctx context.Context, key string, dest interface{}) error
	CacheSet(ctx context.Context, key string, val interface{}, ttlSeconds int) error
}

// Thumbnails looks up recreated thumbnails.
type Thumbnails interface {
	Exists(ctx context.Context, articleID, cat string) (string, bool)
}

// Enqueuer schedules background recreation.
type Enqueuer interface {
	Enqueue(ctx context.Context, req recreate.Request) bool
}

// Categorizer assigns a category to articles the source labels ambiguously.
type Categorizer interface {
	Categorize(ctx context.Context, title, description string, allowed []string) (string, error)
}

// CacheObserver counts feed cache results: fresh, stale or miss.
type CacheObserver interface {
	ObserveNewsCache(result string)
}

type Options struct {
	// Recreation swaps in recreated thumbnails and queues misses.
	Recreation bool
	// CacheTTL is how long, in seconds, a fetched feed is served without
	// asking the source again.
	CacheTTL    int
	Categorizer Categorizer
	Metrics     CacheObserver
}

// Service is the article read path.
type Service struct {
	source      Source
	cache       Cache
	thumbnails  Thumbnails
	queue       Enqueuer
	recreation  bool
	cacheTTL    int
	categorizer Categorizer
	metrics     CacheObserver
	now         func() time.Time
	log         *logger.Logger
}

func NewService(source Source, cache Cache, thumbnails Thumbnails, queue Enqueuer, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 300
	}
	return &Service{
		source:      source,
		cache:       cache,
		thumbnails:  thumbnails,
		queue:       queue,
		recreation:  opts.Recreation,
		cacheTTL:    opts.CacheTTL,
		categorizer: opts.Categorizer,
		metrics:     opts.Metrics,
		now:         time.Now,
		log:         logger.New("NewsService"),
	}
}

// GetNews returns a feed, newest first. An empty category means the latest
// news across categories.
func (s *Service) GetNews(ctx context.Context, cat category.Category, limit int) ([]Article, error) {
	articles, err := s.feed(ctx, cat, limit)
	if err != nil {
		return nil, err
	}
	s.decorate(ctx, articles)
	return articles, nil
}

// GetArticle returns one article.
func (s *Service) GetArticle(ctx context.Context, id string) (*Article, error) {
	key := "news:article:" + id
	var a Article
	if s.cacheGet(ctx, key, &a) {
		s.decorateOne(ctx, &a)
		return &a, nil
	}

	raw, err := s.source.Article(ctx, id)
	if err != nil {
		return nil, err
	}
	a = s.transform(ctx, *raw)
	s.cacheSet(ctx, key, a, s.cacheTTL)
	s.decorateOne(ctx, &a)
	return &a, nil
}

// Warm fetches a feed so thumbnail misses get queued. It returns how many
// jobs were added.
func (s *Service) Warm(ctx context.Context, cat category.Category, limit int) (int, error) {
	if !s.recreation {
		s.log.LogDebug("Recreation disabled, nothing to warm")
		return 0, nil
	}
	articles, err := s.feed(ctx, cat, limit)
	if err != nil {
		return 0, err
	}
	return s.decorate(ctx, articles), nil
}

func feedKey(cat category.Category, limit int) string {
	name := "latest"
	if cat != "" {
		name = category.Slug(string(cat))
	}
	return fmt.Sprintf("news:feed:%s:%d", name, limit)
}

// feed returns undecorated articles: fresh cache, then the source, then the
// stale copy kept for outages.
func (s *Service) feed(ctx context.Context, cat category.Category, limit int) ([]Article, error) {
	key := feedKey(cat, limit)
	var articles []Article
	if s.cacheGet(ctx, key, &articles) {
		s.observe("fresh")
		return articles, nil
	}

	var (
		raw []SourceArticle
		err error
	)
	if cat == "" {
		raw, err = s.source.Latest(ctx, limit)
	} else {
		raw, err = s.source.ByCategory(ctx, cat, limit)
	}
	if err != nil {
		var stale []Article
		if s.cacheGet(ctx, "stale:"+key, &stale) {
			s.observe("stale")
			s.log.LogWarnf("Serving stale %s feed: %v", key, err)
			return stale, nil
		}
		s.observe("miss")
		return nil, err
	}
	s.observe("miss")

	articles = make([]Article, 0, len(raw))
	for _, r := range raw {
		articles = append(articles, s.transform(ctx, r))
	}
	s.cacheSet(ctx, key, articles, s.cacheTTL)
	s.cacheSet(ctx, "stale:"+key, articles, staleTTL)
	return articles, nil
}

func (s *Service) transform(ctx context.Context, r SourceArticle) Article {
	original := strings.TrimSpace(r.Thumbnail)
	if original == "" && r.URL != "" {
		if og, err := s.source.OGImage(ctx, r.URL); err == nil && og != "" {
			original = og
		} else if err != nil {
			s.log.LogDebugf("No og:image for article %s: %v", r.ID, err)
		}
	}
	if original == "" {
		original = PlaceholderImage
	}

	hint := "news article"
	if len(r.Images) > 0 && r.Images[0].Alt != "" {
		hint = r.Images[0].Alt
	}

	return Article{
		ID:               r.ID,
		Title:            r.Headline,
		Description:      r.Summary,
		Category:         string(s.categorize(ctx, r)),
		PublishedAt:      s.parseDate(r.PublishedDate),
		URL:              r.URL,
		ImageURL:         original,
		ImageHint:        hint,
		FullText:         markdown.FromArticleHTML(r.FullText),
		Images:           r.Images,
		Author:           r.Author,
		OriginalImageURL: original,
	}
}

// categorize maps the source label, asking the categoriser only for labels
// with no direct mapping.
func (s *Service) categorize(ctx context.Context, r SourceArticle) category.Category {
	if c, ok := category.FromUpstream(r.Category); ok {
		return c
	}
	if s.categorizer == nil || r.ID == "" {
		return category.LocalNews
	}

	key := "news:category:" + r.ID
	var cached string
	if s.cacheGet(ctx, key, &cached) {
		if c, ok := category.Parse(cached); ok {
			return c
		}
	}

	allowed := make([]string, len(category.All))
	for i, c := range category.All {
		allowed[i] = string(c)
	}
	cctx, cancel := context.WithTimeout(ctx, categorizeBudget)
	defer cancel()
	name, err := s.categorizer.Categorize(cctx, r.Headline, r.Summary, allowed)
	if err != nil {
		s.log.LogWarnf("Categorisation failed for article %s, using %s: %v", r.ID, category.LocalNews, err)
		return category.LocalNews
	}
	c, ok := category.Parse(name)
	if !ok {
		return category.LocalNews
	}
	s.cacheSet(ctx, key, string(c), categoryTTL)
	return c
}

var dateLayouts = []string{
	"2 January 2006 3:04 PM",
	"2 January 2006 15:04",
	"January 2, 2006 3:04 PM",
	"2006-01-02 15:04:05",
}

func (s *Service) parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC()
		}
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, v, sourceTZ); err == nil {
				return t.UTC()
			}
		}
	}
	return s.now().UTC()
}

// decorate picks each article's thumbnail and queues recreation for misses.
// It returns how many jobs were queued.
func (s *Service) decorate(ctx context.Context, articles []Article) int {
	queued := 0
	for i := range articles {
		if s.decorateOne(ctx, &articles[i]) {
			queued++
		}
	}
	return queued
}

func (s *Service) decorateOne(ctx context.Context, a *Article) bool {
	a.ImageURL = a.OriginalImageURL
	a.GeneratedThumbnail = false
	if !s.recreation || a.ID == "" || a.OriginalImageURL == PlaceholderImage {
		return false
	}
	if url, ok := s.thumbnails.Exists(ctx, a.ID, a.Category); ok {
		a.ImageURL = url
		a.GeneratedThumbnail = true
		return false
	}
	return s.queue.Enqueue(ctx, recreate.Request{
		ArticleID:        a.ID,
		OriginalImageURL: a.OriginalImageURL,
		Title:            a.Title,
		Category:         a.Category,
	})
}

func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	if err := s.cache.CacheGet(ctx, key, dest); err != nil {
		if !errors.Is(err, redisv8.Nil) {
			s.log.LogWarnf("Cache read %s failed: %v", key, err)
		}
		return false
	}
	return true
}

func (s *Service) cacheSet(ctx context.Context, key string, val interface{}, ttl int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.CacheSet(ctx, key, val, ttl); err != nil {
		s.log.LogWarnf("Cache write %s failed: %v", key, err)
	}
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveNewsCache(result)
	}
}
