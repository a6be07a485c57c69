package eino

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"

	gemini "github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"newslk/internal/logger"
	"newslk/prompts"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("gemini is not configured")

// Config represents the configuration for the Gemini-backed services
type Config struct {
	Provider    string `json:"provider"`
	APIKey      string `json:"api_key"`
	Model       string `json:"model"`
	VisionModel string `json:"vision_model"`
	ImagenModel string `json:"imagen_model"`
	// HTTPClient fetches source images for analysis.
	HTTPClient *http.Client `json:"-"`
	// Observer receives per-call timings. Optional.
	Observer CallObserver `json:"-"`
}

// Service wraps the Gemini client for vision analysis and image generation,
// and an Eino chat model for text tasks.
type Service struct {
	config       Config
	chatModel    model.BaseChatModel
	geminiClient *genai.Client
	prompts      *prompts.SystemPrompts
	httpClient   *http.Client
	tracer       *Tracer
	log          *logger.Logger
}

// ImageAnalysis is the structured description of a source photo.
type ImageAnalysis struct {
	SceneDescription  string   `json:"sceneDescription"`
	Subjects          []string `json:"subjects"`
	Composition       string   `json:"composition"`
	Lighting          string   `json:"lighting"`
	Mood              string   `json:"mood"`
	Colors            []string `json:"colors"`
	HasWatermark      bool     `json:"hasWatermark"`
	WatermarkLocation string   `json:"watermarkLocation,omitempty"`
}

// NewService creates a new service instance with proper provider initialization
func NewService(config Config) (*Service, error) {
	if config.APIKey == "" {
		return nil, ErrNotConfigured
	}
	service := newService(config)
	if err := service.initializeChatModel(); err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}
	return service, nil
}

// NewServiceWithModel creates a service around a pre-configured chat model.
// Vision and image generation stay unavailable.
func NewServiceWithModel(config Config, chatModel model.BaseChatModel) *Service {
	service := newService(config)
	service.chatModel = chatModel
	return service
}

func newService(config Config) *Service {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{
		config:     config,
		prompts:    prompts.NewSystemPrompts(),
		httpClient: httpClient,
		tracer:     NewTracer(config.Observer),
		log:        logger.New("Gemini"),
	}
}

// initializeChatModel initializes the chat model based on provider
func (s *Service) initializeChatModel() error {
	switch strings.ToLower(s.config.Provider) {
	case "", "gemini":
		return s.initializeGeminiModel()
	default:
		return fmt.Errorf("unsupported provider: %s. Supported: gemini", s.config.Provider)
	}
}

// initializeGeminiModel sets up Google Gemini as the LLM provider
func (s *Service) initializeGeminiModel() error {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: s.config.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}
	s.geminiClient = client

	geminiModel, err := gemini.NewChatModel(context.Background(), &gemini.Config{
		Client: client,
		Model:  s.config.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini chat model: %w", err)
	}
	s.chatModel = geminiModel
	return nil
}

// AnalyzeImage downloads the image and asks the vision model to describe it.
func (s *Service) AnalyzeImage(ctx context.Context, imageURL string) (*ImageAnalysis, error) {
	if s.geminiClient == nil {
		return nil, ErrNotConfigured
	}
	data, mime, err := s.fetchImage(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompts.ImageAnalysis),
			genai.NewPartFromBytes(data, mime),
		}, genai.RoleUser),
	}
	start := time.Now()
	resp, err := s.geminiClient.Models.GenerateContent(ctx, s.config.VisionModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	s.tracer.Observe("analyze", start, err)
	if err != nil {
		return nil, fmt.Errorf("gemini vision request failed: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("gemini vision returned no text")
	}
	analysis := ParseAnalysis(text)
	s.log.LogDebugf("Analyzed %s: %s", truncate(imageURL, 60), truncate(analysis.SceneDescription, 80))
	return analysis, nil
}

// GenerateImage renders a prompt with Imagen and returns the first image.
func (s *Service) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	if s.geminiClient == nil {
		return nil, "", ErrNotConfigured
	}
	start := time.Now()
	resp, err := s.geminiClient.Models.GenerateImages(ctx, s.config.ImagenModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "16:9",
		OutputMIMEType: "image/png",
	})
	s.tracer.Observe("imagen", start, err)
	if err != nil {
		return nil, "", fmt.Errorf("imagen request failed: %w", err)
	}
	for _, img := range resp.GeneratedImages {
		if img != nil && img.Image != nil && len(img.Image.ImageBytes) > 0 {
			return img.Image.ImageBytes, img.Image.MIMEType, nil
		}
	}
	return nil, "", nil
}

// Categorize asks the chat model to pick one of the allowed categories.
func (s *Service) Categorize(ctx context.Context, title, description string, allowed []string) (string, error) {
	if s.chatModel == nil {
		return "", ErrNotConfigured
	}
	messages, err := s.prompts.Categorize.Format(ctx, map[string]any{
		"categories":  strings.Join(allowed, ", "),
		"title":       title,
		"description": description,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format chat template: %w", err)
	}
	response, err := s.chatModel.Generate(s.tracer.Attach(ctx, "categorize"), messages)
	if err != nil {
		return "", fmt.Errorf("LLM generation failed: %w", err)
	}

	var out struct {
		Category string `json:"category"`
	}
	if err := parseJSON(response.Content, &out); err != nil {
		return "", fmt.Errorf("failed to parse LLM response: %w", err)
	}
	for _, c := range allowed {
		if strings.EqualFold(strings.TrimSpace(out.Category), c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("LLM picked unknown category %q", out.Category)
}

func (s *Service) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid image url: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, "", fmt.Errorf("url does not point to an image (%s)", mime)
	}
	return data, mime, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// parseJSON decodes a model reply, tolerating markdown fences and chatter
// around the object.
func parseJSON(content string, dest any) error {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if err := json.Unmarshal([]byte(content), dest); err == nil {
		return nil
	}
	if m := jsonObject.FindString(content); m != "" {
		if err := json.Unmarshal([]byte(m), dest); err == nil {
			return nil
		}
	}
	return fmt.Errorf("invalid JSON response: %s", truncate(content, 120))
}

// ParseAnalysis reads a vision reply. Replies that are not JSON still yield
// a usable description built from the raw text.
func ParseAnalysis(text string) *ImageAnalysis {
	var a ImageAnalysis
	if err := parseJSON(text, &a); err == nil {
		return &a
	}
	lower := strings.ToLower(text)
	a = ImageAnalysis{
		SceneDescription: truncate(strings.TrimSpace(text), 200),
		HasWatermark:     strings.Contains(lower, "watermark") || strings.Contains(lower, "logo"),
	}
	if strings.Contains(lower, "bottom") {
		a.WatermarkLocation = "bottom-right"
	}
	return &a
}

// truncate caps s at n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
