package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HuggingFace calls the hosted SDXL inference endpoint, which answers with
// raw image bytes.
type HuggingFace struct {
	apiToken string
	client   *http.Client
	endpoint string
}

func NewHuggingFace(apiToken string, client *http.Client) *HuggingFace {
	return &HuggingFace{
		apiToken: apiToken,
		client:   defaultClient(client),
		endpoint: "https://router.huggingface.co/models/stabilityai/stable-diffusion-xl-base-1.0",
	}
}

func (h *HuggingFace) Name() string { return "huggingface" }
func (h *HuggingFace) Tier() Tier   { return TierFast }

func (h *HuggingFace) Attempt(ctx context.Context, prompt string) (*Image, error) {
	if h.apiToken == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]any{
		"inputs": prompt,
		"parameters": map[string]any{
			"negative_prompt":     "logo, watermark, text, signature, branding, hiru news, low quality, blurry",
			"width":               1024,
			"height":              576,
			"num_inference_steps": 30,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+h.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError("huggingface", resp.StatusCode, data)
	}
	ct := resp.Header.Get("Content-Type")
	if !isImage(ct) {
		return nil, fmt.Errorf("%w: content type %q", ErrRejectedPayload, ct)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &Image{Data: data, ContentType: ct}, nil
}
