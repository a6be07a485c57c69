package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// minPollinationsBytes separates real renders from the small rate-limit
// placeholder the service returns under load.
const minPollinationsBytes = 150000

// Pollinations renders images from a prompt in a single keyless GET.
type Pollinations struct {
	client  *http.Client
	baseURL string
	width   int
	height  int
}

func NewPollinations(client *http.Client) *Pollinations {
	return &Pollinations{
		client:  defaultClient(client),
		baseURL: "https://image.pollinations.ai/prompt/",
		width:   1200,
		height:  675,
	}
}

func (p *Pollinations) Name() string { return "pollinations" }
func (p *Pollinations) Tier() Tier   { return TierFast }

func (p *Pollinations) imageURL(prompt string) string {
	return fmt.Sprintf("%s%s?width=%d&height=%d&seed=%d&nologo=true",
		p.baseURL, url.PathEscape(prompt), p.width, p.height, promptSeed(prompt))
}

func (p *Pollinations) Attempt(ctx context.Context, prompt string) (*Image, error) {
	u := p.imageURL(prompt)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pollinations: status %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !isImage(ct) {
		return nil, fmt.Errorf("%w: content type %q", ErrRejectedPayload, ct)
	}
	if resp.ContentLength > 0 && resp.ContentLength < minPollinationsBytes {
		return nil, fmt.Errorf("%w: %d bytes looks like a rate-limit image", ErrRejectedPayload, resp.ContentLength)
	}
	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if len(data) < minPollinationsBytes {
		return nil, fmt.Errorf("%w: %d bytes looks like a rate-limit image", ErrRejectedPayload, len(data))
	}
	return &Image{URL: u, Data: data, ContentType: ct}, nil
}
