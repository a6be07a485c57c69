package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"newslk/internal/logger"
)

// ReplicateModel describes one hosted model and how long to wait for it.
type ReplicateModel struct {
	Name string
	Tier Tier
	// Ref is "owner/model" for official models or "owner/model:version".
	Ref     string
	Input   map[string]any
	Timeout time.Duration
	// Wait asks the API to hold the submit request open until done.
	Wait bool
}

var (
	FluxSchnell = ReplicateModel{
		Name:    "flux-schnell",
		Tier:    TierFast,
		Ref:     "black-forest-labs/flux-schnell",
		Input:   map[string]any{"num_outputs": 1, "aspect_ratio": "16:9", "output_format": "jpg", "output_quality": 90},
		Timeout: 30 * time.Second,
		Wait:    true,
	}
	FluxDev = ReplicateModel{
		Name:    "flux-dev",
		Tier:    TierQuality,
		Ref:     "black-forest-labs/flux-dev",
		Input:   map[string]any{"num_outputs": 1, "aspect_ratio": "16:9", "output_format": "jpg", "output_quality": 95},
		Timeout: 120 * time.Second,
	}
	SDXL = ReplicateModel{
		Name: "sdxl",
		Tier: TierQuality,
		Ref:  "stability-ai/sdxl:39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b",
		Input: map[string]any{
			"negative_prompt":     negativePrompt,
			"width":               1216,
			"height":              832,
			"num_outputs":         1,
			"guidance_scale":      7.5,
			"num_inference_steps": 40,
			"scheduler":           "DPMSolverMultistep",
			"refine":              "expert_ensemble_refiner",
			"high_noise_frac":     0.8,
		},
		Timeout: 120 * time.Second,
	}
)

// Replicate submits a prediction and polls it until a terminal state or
// the model's timeout.
type Replicate struct {
	model        ReplicateModel
	apiToken     string
	client       *http.Client
	baseURL      string
	pollInterval time.Duration
	log          *logger.Logger
}

func NewReplicate(model ReplicateModel, apiToken string, client *http.Client) *Replicate {
	return &Replicate{
		model:        model,
		apiToken:     apiToken,
		client:       defaultClient(client),
		baseURL:      "https://api.replicate.com/v1",
		pollInterval: 2 * time.Second,
		log:          logger.New("Replicate"),
	}
}

func (r *Replicate) Name() string { return r.model.Name }
func (r *Replicate) Tier() Tier   { return r.model.Tier }

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

// imageURL accepts both output shapes: a single URL or a list of URLs.
func (p prediction) imageURL() string {
	if len(p.Output) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(p.Output, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	return ""
}

func (r *Replicate) Attempt(ctx context.Context, prompt string) (*Image, error) {
	if r.apiToken == "" {
		return nil, ErrNotConfigured
	}

	budget, cancel := context.WithTimeout(ctx, r.model.Timeout)
	defer cancel()

	pred, err := r.submit(budget, prompt)
	if err != nil {
		return nil, r.budgetErr(ctx, budget, err)
	}
	if pred.ID == "" && pred.Status != "succeeded" {
		return nil, fmt.Errorf("%s: submit returned no prediction id", r.model.Name)
	}
	for {
		switch pred.Status {
		case "succeeded":
			u := pred.imageURL()
			if u == "" {
				return nil, nil
			}
			return &Image{URL: u}, nil
		case "failed":
			return nil, fmt.Errorf("%s: prediction failed: %v", r.model.Name, pred.Error)
		case "canceled":
			return nil, fmt.Errorf("%s: prediction canceled", r.model.Name)
		}

		select {
		case <-budget.Done():
			return nil, r.budgetErr(ctx, budget, budget.Err())
		case <-time.After(r.pollInterval):
		}

		next, err := r.poll(budget, pred.ID)
		if err != nil {
			if budget.Err() != nil {
				return nil, r.budgetErr(ctx, budget, err)
			}
			// transient poll failures are retried until the budget runs out
			r.log.LogDebugf("%s: poll %s failed: %v", r.model.Name, pred.ID, err)
			continue
		}
		pred = next
	}
}

// budgetErr separates caller cancellation from the model's own timeout.
func (r *Replicate) budgetErr(parent, budget context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(budget.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %v", ErrTimeout, r.model.Name, r.model.Timeout)
	}
	return err
}

func (r *Replicate) submit(ctx context.Context, prompt string) (prediction, error) {
	input := make(map[string]any, len(r.model.Input)+1)
	for k, v := range r.model.Input {
		input[k] = v
	}
	input["prompt"] = prompt

	endpoint := r.baseURL + "/predictions"
	body := map[string]any{"input": input}
	if _, version, ok := strings.Cut(r.model.Ref, ":"); ok {
		body["version"] = version
	} else {
		endpoint = r.baseURL + "/models/" + r.model.Ref + "/predictions"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return prediction{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return prediction{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.model.Wait {
		req.Header.Set("Prefer", "wait")
	}
	return r.do(req)
}

func (r *Replicate) poll(ctx context.Context, id string) (prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/predictions/"+id, nil)
	if err != nil {
		return prediction{}, err
	}
	return r.do(req)
}

func (r *Replicate) do(req *http.Request) (prediction, error) {
	req.Header.Set("Authorization", "Token "+r.apiToken)
	resp, err := r.client.Do(req)
	if err != nil {
		return prediction{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := readBody(resp)
		return prediction{}, statusError(r.model.Name, resp.StatusCode, data)
	}
	var p prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return prediction{}, fmt.Errorf("%s: decode: %w", r.model.Name, err)
	}
	return p, nil
}
