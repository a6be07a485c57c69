package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"newslk/internal/core/category"
	"newslk/internal/logger"

	"github.com/patrickmn/go-cache"
)

// Folder holds every recreated thumbnail inside the backend.
const Folder = "generated-thumbnails"

var (
	// ErrBucketNotInitialized means the configured bucket does not exist or
	// the backend has no credentials. It is a configuration problem, not a miss.
	ErrBucketNotInitialized = errors.New("storage bucket not initialized")
	ErrEmptyPayload         = errors.New("thumbnail payload is empty")
	ErrInvalidKey           = errors.New("invalid thumbnail key")
)

// Object describes one stored thumbnail.
type Object struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Backend is a blob store addressed by slash-separated object paths.
type Backend interface {
	Name() string
	// Stat reports whether path exists and, if so, its public URL.
	// A missing object is ("", false, nil).
	Stat(ctx context.Context, path string) (string, bool, error)
	// Put writes data at path, replacing any existing object.
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	List(ctx context.Context, prefix string, limit int) ([]Object, error)
	Delete(ctx context.Context, path string) error
	Check(ctx context.Context) error
}

type Options struct {
	// MemoTTL bounds how long a positive lookup is served from memory.
	MemoTTL time.Duration
}

// Store maps (article, category) pairs onto backend objects.
type Store struct {
	backend Backend
	memo    *cache.Cache
	log     *logger.Logger
}

// Stats summarises the thumbnail folder.
type Stats struct {
	Backend    string `json:"backend"`
	Count      int    `json:"count"`
	TotalBytes int64  `json:"total_bytes"`
}

func New(backend Backend, opts Options) *Store {
	ttl := opts.MemoTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{
		backend: backend,
		memo:    cache.New(ttl, 2*ttl),
		log:     logger.New("ThumbnailStore"),
	}
}

// ObjectPath is the backend path for an article's thumbnail.
func ObjectPath(articleID, cat string) string {
	return path.Join(Folder, category.CacheKey(cat, articleID)+".png")
}

func validate(articleID, cat string) error {
	if strings.TrimSpace(articleID) == "" || strings.TrimSpace(cat) == "" {
		return fmt.Errorf("%w: article id and category are required", ErrInvalidKey)
	}
	if strings.ContainsAny(articleID, `/\`) || strings.Contains(articleID, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, articleID)
	}
	return nil
}

// Exists returns the public URL of the cached thumbnail, if any. Backend
// failures are logged and reported as a miss.
func (s *Store) Exists(ctx context.Context, articleID, cat string) (string, bool) {
	if err := validate(articleID, cat); err != nil {
		return "", false
	}
	p := ObjectPath(articleID, cat)
	if v, ok := s.memo.Get(p); ok {
		return v.(string), true
	}
	url, ok, err := s.backend.Stat(ctx, p)
	if err != nil {
		s.log.LogWarnf("Lookup of %s on %s failed: %v", p, s.backend.Name(), err)
		return "", false
	}
	if !ok {
		return "", false
	}
	s.memo.SetDefault(p, url)
	return url, true
}

// Save writes the payload for (articleID, category), overwriting any previous
// thumbnail, and returns its public URL.
func (s *Store) Save(ctx context.Context, articleID, cat string, data []byte) (string, error) {
	if err := validate(articleID, cat); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyPayload
	}
	p := ObjectPath(articleID, cat)
	url, err := s.backend.Put(ctx, p, data, contentType(data))
	if err != nil {
		s.log.ErrorWithFields(map[string]interface{}{
			"backend": s.backend.Name(),
			"path":    p,
			"bytes":   len(data),
		}).Err(err).Msg("Thumbnail upload failed")
		return "", fmt.Errorf("save %s: %w", p, err)
	}
	s.memo.SetDefault(p, url)
	s.log.LogDebugf("Saved %s (%d bytes) to %s", p, len(data), s.backend.Name())
	return url, nil
}

// Delete removes an article's thumbnail so it will be recreated.
func (s *Store) Delete(ctx context.Context, articleID, cat string) error {
	if err := validate(articleID, cat); err != nil {
		return err
	}
	p := ObjectPath(articleID, cat)
	s.memo.Delete(p)
	if err := s.backend.Delete(ctx, p); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

// List returns up to limit stored thumbnails.
func (s *Store) List(ctx context.Context, limit int) ([]Object, error) {
	if limit <= 0 {
		limit = 1000
	}
	return s.backend.List(ctx, Folder, limit)
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	objs, err := s.backend.List(ctx, Folder, 0)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Backend: s.backend.Name(), Count: len(objs)}
	for _, o := range objs {
		st.TotalBytes += o.Size
	}
	return st, nil
}

// HealthCheck verifies the backend is reachable and the bucket exists.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.backend.Check(ctx)
}

func (s *Store) BackendName() string { return s.backend.Name() }

func contentType(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/png"
}
