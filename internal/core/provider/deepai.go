package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
)

// DeepAI is the text2img endpoint; it answers with a hosted image URL.
type DeepAI struct {
	apiKey   string
	client   *http.Client
	endpoint string
}

func NewDeepAI(apiKey string, client *http.Client) *DeepAI {
	return &DeepAI{
		apiKey:   apiKey,
		client:   defaultClient(client),
		endpoint: "https://api.deepai.org/api/text2img",
	}
}

func (d *DeepAI) Name() string { return "deepai" }
func (d *DeepAI) Tier() Tier   { return TierFast }

func (d *DeepAI) Attempt(ctx context.Context, prompt string) (*Image, error) {
	if d.apiKey == "" {
		return nil, ErrNotConfigured
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("text", prompt); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("api-key", d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := readBody(resp)
		return nil, statusError("deepai", resp.StatusCode, data)
	}

	var out struct {
		OutputURL string `json:"output_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("deepai: decode: %w", err)
	}
	if out.OutputURL == "" {
		return nil, nil
	}
	return &Image{URL: out.OutputURL}, nil
}
