package recreate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"newslk/internal/core/category"
	"newslk/internal/platform/eino"
)

const maxBatchArticles = 30

// Analyzer describes an image without recreating it.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, imageURL string) (*eino.ImageAnalysis, error)
}

type Handler struct {
	engine   *Engine
	analyzer Analyzer
}

// NewHandler serves the direct recreation path. analyzer may be nil.
func NewHandler(engine *Engine, analyzer Analyzer) *Handler {
	return &Handler{engine: engine, analyzer: analyzer}
}

type recreateResponse struct {
	Success        bool   `json:"success"`
	OriginalURL    string `json:"originalUrl"`
	RecreatedURL   string `json:"recreatedUrl"`
	Method         string `json:"method"`
	ProcessingTime string `json:"processingTime"`
	Cached         bool   `json:"cached"`
	ArticleID      string `json:"articleId"`
	Category       string `json:"category"`
	Provider       string `json:"provider,omitempty"`
}

// HandleRecreate runs one recreation synchronously, bypassing the queue.
func (h *Handler) HandleRecreate(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err.Error())
	}
	if err := validate(&req); err != nil {
		return badRequest(c, "Missing required fields: originalImageUrl, articleId, title, category", err.Error())
	}

	start := time.Now()
	out := h.engine.Recreate(c.UserContext(), req)

	return c.JSON(recreateResponse{
		Success:        true,
		OriginalURL:    req.OriginalImageURL,
		RecreatedURL:   out.URL,
		Method:         h.engine.Method(),
		ProcessingTime: fmt.Sprintf("%.2fs", time.Since(start).Seconds()),
		Cached:         out.Cached,
		ArticleID:      req.ArticleID,
		Category:       req.Category,
		Provider:       out.Provider,
	})
}

// HandleBatch recreates up to maxBatchArticles articles and returns the URL to
// serve for each.
func (h *Handler) HandleBatch(c *fiber.Ctx) error {
	var body struct {
		Articles []Request `json:"articles"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body", err.Error())
	}
	if len(body.Articles) == 0 {
		return badRequest(c, "Missing required field: articles", "at least one article is required")
	}
	if len(body.Articles) > maxBatchArticles {
		return badRequest(c, "Too many articles", fmt.Sprintf("at most %d articles per batch", maxBatchArticles))
	}
	for i := range body.Articles {
		if err := validate(&body.Articles[i]); err != nil {
			return badRequest(c, fmt.Sprintf("Invalid article at index %d", i), err.Error())
		}
	}

	start := time.Now()
	results := h.engine.RecreateBatch(c.UserContext(), body.Articles)
	return c.JSON(fiber.Map{
		"success":        true,
		"results":        results,
		"processingTime": fmt.Sprintf("%.2fs", time.Since(start).Seconds()),
	})
}

// HandleAnalyze describes an image with the vision model.
func (h *Handler) HandleAnalyze(c *fiber.Ctx) error {
	imageURL := strings.TrimSpace(c.Query("imageUrl"))
	if imageURL == "" {
		return badRequest(c, "Missing required query parameter: imageUrl", "imageUrl is required")
	}
	if h.analyzer == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "Image analysis unavailable",
			"message": eino.ErrNotConfigured.Error(),
		})
	}

	analysis, err := h.analyzer.AnalyzeImage(c.UserContext(), imageURL)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, eino.ErrNotConfigured) {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"error":   "Failed to analyze image",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"imageUrl": imageURL,
		"analysis": analysis,
	})
}

// validate checks required fields and canonicalises known category names.
func validate(req *Request) error {
	var missing []string
	if strings.TrimSpace(req.OriginalImageURL) == "" {
		missing = append(missing, "originalImageUrl")
	}
	if strings.TrimSpace(req.ArticleID) == "" {
		missing = append(missing, "articleId")
	}
	if strings.TrimSpace(req.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(req.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	if strings.ContainsAny(req.ArticleID, `/\`) {
		return fmt.Errorf("invalid articleId %q", req.ArticleID)
	}
	if c, ok := category.Parse(req.Category); ok {
		req.Category = c.String()
	}
	return nil
}

func badRequest(c *fiber.Ctx, msg, detail string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   msg,
		"message": detail,
	})
}
