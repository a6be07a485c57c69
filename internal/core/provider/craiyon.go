package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
)

// negativePrompt steers diffusion models away from copying source branding.
const negativePrompt = "logo, watermark, text, signature, branding, hiru news, hirunews, hirunews.lk, " +
	"company logo, brand mark, copyright, website url, news logo, channel logo, low quality, blurry, distorted, deformed"

// Craiyon is slow but keyless; it returns base64 JPEGs inline.
type Craiyon struct {
	client   *http.Client
	endpoint string
}

func NewCraiyon(client *http.Client) *Craiyon {
	return &Craiyon{client: defaultClient(client), endpoint: "https://api.craiyon.com/v3"}
}

func (c *Craiyon) Name() string { return "craiyon" }
func (c *Craiyon) Tier() Tier   { return TierFast }

func (c *Craiyon) Attempt(ctx context.Context, prompt string) (*Image, error) {
	payload, err := json.Marshal(map[string]string{
		"prompt":          prompt,
		"model":           "art",
		"negative_prompt": "logo, watermark, text, signature, branding",
		"version":         "c4ue22fb7kb6wlac",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := readBody(resp)
		return nil, statusError("craiyon", resp.StatusCode, data)
	}

	var out struct {
		Images []string `json:"images"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("craiyon: decode: %w", err)
	}
	if len(out.Images) == 0 || out.Images[0] == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(out.Images[0])
	if err != nil {
		return nil, fmt.Errorf("%w: craiyon image is not base64: %v", ErrRejectedPayload, err)
	}
	return &Image{Data: data, ContentType: "image/jpeg"}, nil
}
