package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newslk/internal/core/category"
	"newslk/internal/logger"
)

var (
	ErrNotFound = errors.New("article not found")
	ErrUpstream = errors.New("news source unavailable")
)

// Client talks to the Hiru News API.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     *logger.Logger
}

// NewClient aborts each request after timeout. httpClient may be nil.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    httpClient,
		log:     logger.New("NewsClient"),
	}
}

// Latest returns the newest articles across all categories.
func (c *Client) Latest(ctx context.Context, limit int) ([]SourceArticle, error) {
	return c.list(ctx, "/latest-news", url.Values{"limit": {strconv.Itoa(limit)}})
}

func (c *Client) Breaking(ctx context.Context, limit int) ([]SourceArticle, error) {
	return c.list(ctx, "/breaking-news", url.Values{"limit": {strconv.Itoa(limit)}})
}

// ByCategory returns one category's feed. Breaking news has its own endpoint.
func (c *Client) ByCategory(ctx context.Context, cat category.Category, limit int) ([]SourceArticle, error) {
	if cat == category.BreakingNews {
		return c.Breaking(ctx, limit)
	}
	return c.list(ctx, "/category/"+url.PathEscape(category.UpstreamSlug(cat)), url.Values{
		"limit":   {strconv.Itoa(limit)},
		"details": {"false"},
	})
}

// Article returns one article with its full text.
func (c *Client) Article(ctx context.Context, id string) (*SourceArticle, error) {
	var out sourceArticleResponse
	status, err := c.getJSON(ctx, "/article/"+url.PathEscape(id), url.Values{"details": {"true"}}, &out)
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if !out.Success || out.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return out.Data, nil
}

func (c *Client) list(ctx context.Context, path string, q url.Values) ([]SourceArticle, error) {
	var out sourceListResponse
	if _, err := c.getJSON(ctx, path, q, &out); err != nil {
		return nil, err
	}
	if !out.Success || out.Data == nil {
		msg := out.Error
		if msg == "" {
			msg = "unsuccessful response"
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrUpstream, path, msg)
	}
	return out.Data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, dest interface{}) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: request timeout after %v: %s", ErrUpstream, c.timeout, path)
		}
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("%w: %s returned %d", ErrUpstream, path, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(dest); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decode %s: %v", ErrUpstream, path, err)
	}
	return resp.StatusCode, nil
}

// OGImage reads the og:image (or twitter:image) of an article page.
func (c *Client) OGImage(ctx context.Context, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Scheme == "" {
		return "", fmt.Errorf("invalid page url %q", pageURL)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	setPageHeaders(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("article page returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", err
	}
	for _, sel := range []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`} {
		if v := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); v != "" {
			ref, err := url.Parse(v)
			if err != nil {
				continue
			}
			return base.ResolveReference(ref).String(), nil
		}
	}
	return "", nil
}
