package recreate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"newslk/internal/core/category"
	"newslk/internal/core/provider"
	"newslk/internal/logger"
)

// Recreation methods selectable with IMAGE_RECREATION_METHOD.
const (
	MethodAIGeneration = "ai-generation"
	MethodOverlay      = "overlay"
	MethodNone         = "none"
)

const maxImageBytes = 20 << 20

// Store is the thumbnail cache the engine reads and writes.
type Store interface {
	Exists(ctx context.Context, articleID, cat string) (string, bool)
	Save(ctx context.Context, articleID, cat string, data []byte) (string, error)
}

// Generator produces an image for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, preferQuality bool) (provider.Result, bool)
}

// PromptBuilder turns an article into a generation prompt. It never fails.
type PromptBuilder interface {
	Build(ctx context.Context, imageURL, title, cat string) string
}

// Request identifies one article whose thumbnail should be recreated.
type Request struct {
	ArticleID        string `json:"articleId"`
	OriginalImageURL string `json:"originalImageUrl"`
	Title            string `json:"title"`
	Category         string `json:"category"`
}

// Outcome is the URL to serve for a request. URL is the original image
// whenever recreation did not produce a stored thumbnail.
type Outcome struct {
	URL       string `json:"url"`
	Cached    bool   `json:"cached"`
	Recreated bool   `json:"recreated"`
	Provider  string `json:"provider,omitempty"`
}

type Options struct {
	Method     string
	HTTPClient *http.Client
	// BatchSize and BatchPause throttle RecreateBatch. A negative pause
	// disables it.
	BatchSize  int
	BatchPause time.Duration
}

// Engine runs a single recreation end to end. It holds no per-article state.
type Engine struct {
	store      Store
	generator  Generator
	prompts    PromptBuilder
	method     string
	httpClient *http.Client
	batchSize  int
	batchPause time.Duration
	group      singleflight.Group
	flights    flights
	log        *logger.Logger
}

func NewEngine(store Store, generator Generator, prompts PromptBuilder, opts Options) *Engine {
	if opts.Method == "" {
		opts.Method = MethodAIGeneration
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 3
	}
	switch {
	case opts.BatchPause == 0:
		opts.BatchPause = time.Second
	case opts.BatchPause < 0:
		opts.BatchPause = 0
	}
	return &Engine{
		store:      store,
		generator:  generator,
		prompts:    prompts,
		method:     opts.Method,
		httpClient: opts.HTTPClient,
		batchSize:  opts.BatchSize,
		batchPause: opts.BatchPause,
		log:        logger.New("RecreationEngine"),
	}
}

// Method is the configured recreation method.
func (e *Engine) Method() string { return e.method }

// PreferQuality reports whether an article should try quality providers first.
func PreferQuality(title, cat string) bool {
	if c, ok := category.Parse(cat); ok && c == category.BreakingNews {
		return true
	}
	return strings.Contains(strings.ToLower(title), "breaking")
}

// Recreate returns the thumbnail URL for req. It never fails: any error
// along the way yields the original image URL. Concurrent calls for the same
// article share one run, which is cancelled only when all of them have left.
// A caller whose ctx ends first gets the original image URL.
func (e *Engine) Recreate(ctx context.Context, req Request) Outcome {
	key := category.CacheKey(req.Category, req.ArticleID)
	fctx, release := e.flights.join(ctx, key)
	defer release()

	ch := e.group.DoChan(key, func() (interface{}, error) {
		return e.recreate(fctx, req), nil
	})
	select {
	case res := <-ch:
		if res.Shared {
			e.log.LogDebugf("Joined in-flight recreation for %s", key)
		}
		return res.Val.(Outcome)
	case <-ctx.Done():
		e.log.LogDebugf("Stopped waiting on recreation for %s: %v", key, ctx.Err())
		return Outcome{URL: req.OriginalImageURL}
	}
}

func (e *Engine) recreate(ctx context.Context, req Request) Outcome {
	if url, ok := e.store.Exists(ctx, req.ArticleID, req.Category); ok {
		e.log.LogDebugf("Using cached image for article %s", req.ArticleID)
		return Outcome{URL: url, Cached: true}
	}
	original := Outcome{URL: req.OriginalImageURL}
	if e.method != MethodAIGeneration {
		return original
	}

	e.log.LogInfof("Recreating image for article %s (%s)", req.ArticleID, req.Category)
	prompt := e.prompts.Build(ctx, req.OriginalImageURL, req.Title, req.Category)

	res, ok := e.generator.Generate(ctx, prompt, PreferQuality(req.Title, req.Category))
	if !ok {
		e.log.LogWarnf("No provider produced an image for article %s, keeping original", req.ArticleID)
		return original
	}

	data, err := e.normalize(ctx, res.Image)
	if err != nil {
		e.log.LogWarnf("Generated image for article %s unusable (%s): %v", req.ArticleID, res.Provider, err)
		return original
	}

	url, err := e.store.Save(ctx, req.ArticleID, req.Category, data)
	if err != nil {
		e.log.LogErrorf("Failed to store thumbnail for article %s, keeping original: %v", req.ArticleID, err)
		return original
	}
	e.log.LogSuccessf("Recreated image for article %s via %s", req.ArticleID, res.Provider)
	return Outcome{URL: url, Recreated: true, Provider: res.Provider}
}

// normalize turns a provider image into bytes ready for the store.
func (e *Engine) normalize(ctx context.Context, img *provider.Image) ([]byte, error) {
	switch {
	case img == nil:
		return nil, errors.New("no image")
	case len(img.Data) > 0:
		return img.Data, nil
	case strings.HasPrefix(img.URL, "data:"):
		return decodeDataURL(img.URL)
	default:
		return e.fetch(ctx, img.URL)
	}
}

func decodeDataURL(u string) ([]byte, error) {
	_, payload, ok := strings.Cut(u, ",")
	if !ok {
		return nil, errors.New("malformed data url")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty data url")
	}
	return data, nil
}

func (e *Engine) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch generated image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch generated image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read generated image: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("generated image is empty")
	}
	return data, nil
}

// RecreateBatch recreates several articles, a few at a time, pausing between
// batches. The result maps article id to the URL to serve.
func (e *Engine) RecreateBatch(ctx context.Context, reqs []Request) map[string]string {
	results := make(map[string]string, len(reqs))
	for i := 0; i < len(reqs); i += e.batchSize {
		end := i + e.batchSize
		if end > len(reqs) {
			end = len(reqs)
		}
		batch := reqs[i:end]
		outcomes := make([]Outcome, len(batch))

		var g errgroup.Group
		for j, r := range batch {
			j, r := j, r
			g.Go(func() error {
				outcomes[j] = e.Recreate(ctx, r)
				return nil
			})
		}
		_ = g.Wait()

		for j, r := range batch {
			results[r.ArticleID] = outcomes[j].URL
		}

		if end < len(reqs) && e.batchPause > 0 {
			select {
			case <-ctx.Done():
				for _, r := range reqs[end:] {
					results[r.ArticleID] = r.OriginalImageURL
				}
				return results
			case <-time.After(e.batchPause):
			}
		}
	}
	return results
}
