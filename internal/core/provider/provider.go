package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"newslk/internal/logger"
)

var (
	// ErrNotConfigured marks a provider with missing credentials. The chain
	// skips it without counting a failure.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrRejectedPayload marks a response that is not a usable image, such as
	// a rate-limit placeholder.
	ErrRejectedPayload = errors.New("provider returned an unusable payload")
	// ErrTimeout means a submit-then-poll provider exhausted its budget.
	ErrTimeout = errors.New("provider timed out")
)

// Image is a generated image: a remote URL, inline bytes, or both.
type Image struct {
	URL         string
	Data        []byte
	ContentType string
}

// Valid reports whether the image can be persisted.
func (i *Image) Valid() bool {
	return i != nil && (i.URL != "" || len(i.Data) > 0)
}

// Tier orders providers when quality is preferred.
type Tier int

const (
	TierFast Tier = iota
	TierQuality
)

func (t Tier) String() string {
	if t == TierQuality {
		return "quality"
	}
	return "fast"
}

// Provider is one image-generation backend. Attempt returns (nil, nil) when
// the backend produced nothing; the chain treats that like an error.
type Provider interface {
	Name() string
	Tier() Tier
	Attempt(ctx context.Context, prompt string) (*Image, error)
}

// Observer receives one call per provider attempt.
type Observer interface {
	ObserveAttempt(provider, outcome string, elapsed time.Duration)
}

// Attempt outcomes reported to the Observer.
const (
	OutcomeSuccess = "success"
	OutcomeAbsent  = "absent"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Result is a successful chain run.
type Result struct {
	Image    *Image
	Provider string
}

// Chain tries providers in order until one yields a valid image.
type Chain struct {
	providers []Provider
	observer  Observer
	log       *logger.Logger
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers, log: logger.New("ProviderChain")}
}

// WithObserver attaches attempt instrumentation.
func (c *Chain) WithObserver(o Observer) *Chain {
	c.observer = o
	return c
}

// Names lists providers in declared order.
func (c *Chain) Names() []string {
	out := make([]string, len(c.providers))
	for i, p := range c.providers {
		out[i] = p.Name()
	}
	return out
}

// Order returns the attempt order. With preferQuality, quality-tier providers
// move to the front; relative order within each tier is kept.
func (c *Chain) Order(preferQuality bool) []Provider {
	ordered := make([]Provider, len(c.providers))
	copy(ordered, c.providers)
	if preferQuality {
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Tier() > ordered[j].Tier()
		})
	}
	return ordered
}

// Generate runs the chain. ok is false when every provider failed or the
// context ended first.
func (c *Chain) Generate(ctx context.Context, prompt string, preferQuality bool) (Result, bool) {
	for _, p := range c.Order(preferQuality) {
		if err := ctx.Err(); err != nil {
			c.log.LogWarnf("Generation aborted before %s: %v", p.Name(), err)
			return Result{}, false
		}

		start := time.Now()
		img, err := p.Attempt(ctx, prompt)
		elapsed := time.Since(start)

		switch {
		case errors.Is(err, ErrNotConfigured):
			c.observe(p.Name(), OutcomeSkipped, elapsed)
			c.log.LogDebugf("%s skipped: not configured", p.Name())
		case err != nil:
			c.observe(p.Name(), OutcomeError, elapsed)
			c.log.LogWarnf("%s failed after %v: %v", p.Name(), elapsed.Round(time.Millisecond), err)
		case !img.Valid():
			c.observe(p.Name(), OutcomeAbsent, elapsed)
			c.log.LogInfof("%s returned no image", p.Name())
		default:
			c.observe(p.Name(), OutcomeSuccess, elapsed)
			c.log.LogSuccessf("%s generated an image in %v", p.Name(), elapsed.Round(time.Millisecond))
			return Result{Image: img, Provider: p.Name()}, true
		}
	}
	c.log.LogWarnf("All %d providers failed", len(c.providers))
	return Result{}, false
}

func (c *Chain) observe(name, outcome string, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveAttempt(name, outcome, elapsed)
	}
}

func statusError(name string, status int, body []byte) error {
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Errorf("%s: status %d: %s", name, status, string(body))
}
