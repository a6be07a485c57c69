package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisv8 "github.com/go-redis/redis/v8"

	"newslk/internal/core/recreate"
	"newslk/internal/logger"
)

// ErrNotFound means no record exists for the article.
var ErrNotFound = errors.New("job not found")

// Cache is the subset of the Redis service the records need.
type Cache interface {
	CacheGet(ctx context.Context, key string, dest interface{}) error
	CacheSet(ctx context.Context, key string, val interface{}, ttlSeconds int) error
	Publish(ctx context.Context, channel, message string) error
}

// Service persists recreation job records. Every write is best effort: the
// queue logs failures and carries on.
type Service struct {
	cache Cache
	now   func() time.Time
	log   *logger.Logger
}

func NewService(cache Cache) *Service {
	return &Service{cache: cache, now: time.Now, log: logger.New("JobRecords")}
}

// Get returns the latest record for an article.
func (s *Service) Get(ctx context.Context, articleID string) (*Record, error) {
	var rec Record
	if err := s.cache.CacheGet(ctx, key(articleID), &rec); err != nil {
		if errors.Is(err, redisv8.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, articleID)
		}
		return nil, fmt.Errorf("read job %s: %w", articleID, err)
	}
	return &rec, nil
}

// RecordPending starts a fresh record for a newly queued job.
func (s *Service) RecordPending(ctx context.Context, jobID string, req recreate.Request) error {
	rec := Record{
		JobID:            jobID,
		ArticleID:        req.ArticleID,
		Category:         req.Category,
		Title:            req.Title,
		OriginalImageURL: req.OriginalImageURL,
		Status:           StatusPending,
		EnqueuedAt:       s.now().UTC(),
	}
	return s.store(ctx, &rec)
}

// RecordProcessing marks the article's job as picked up by the worker.
func (s *Service) RecordProcessing(ctx context.Context, articleID string) error {
	return s.update(ctx, articleID, func(rec *Record) {
		t := s.now().UTC()
		rec.Status = StatusProcessing
		rec.StartedAt = &t
	})
}

// RecordFinished stores the outcome. A job that produced no new or cached
// thumbnail is recorded as failed.
func (s *Service) RecordFinished(ctx context.Context, articleID string, out recreate.Outcome) error {
	return s.update(ctx, articleID, func(rec *Record) {
		t := s.now().UTC()
		rec.FinishedAt = &t
		rec.Provider = out.Provider
		rec.Cached = out.Cached
		if out.Recreated || out.Cached {
			rec.Status = StatusCompleted
			rec.ResultURL = out.URL
			rec.Error = ""
			return
		}
		rec.Status = StatusFailed
		rec.Error = "no image produced, original kept"
	})
}

func (s *Service) update(ctx context.Context, articleID string, mutate func(*Record)) error {
	var rec Record
	if err := s.cache.CacheGet(ctx, key(articleID), &rec); err != nil && !errors.Is(err, redisv8.Nil) {
		return fmt.Errorf("read job %s: %w", articleID, err)
	}
	rec.ArticleID = articleID
	mutate(&rec)
	return s.store(ctx, &rec)
}

func (s *Service) store(ctx context.Context, rec *Record) error {
	if err := s.cache.CacheSet(ctx, key(rec.ArticleID), rec, ttl(rec.Status)); err != nil {
		return fmt.Errorf("write job %s: %w", rec.ArticleID, err)
	}
	// listeners only care that something changed
	if err := s.cache.Publish(ctx, key(rec.ArticleID), string(rec.Status)); err != nil {
		s.log.LogDebugf("Publish for %s failed: %v", rec.ArticleID, err)
	}
	return nil
}

func key(articleID string) string { return "recreation:job:" + articleID }

func ttl(s Status) int {
	if s.Terminal() {
		return 86400
	}
	return 3600
}
