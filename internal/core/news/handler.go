package news

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"newslk/internal/core/category"
)

const maxLimit = 50

// TaskEnqueuer submits background tasks.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, queue string, maxRetries int) error
}

type Handler struct {
	news       *Service
	tasks      TaskEnqueuer
	maxRetries int
}

// NewHandler serves the read path. tasks may be nil, which disables the warm
// endpoint.
func NewHandler(news *Service, tasks TaskEnqueuer, maxRetries int) *Handler {
	return &Handler{news: news, tasks: tasks, maxRetries: maxRetries}
}

// HandleList serves GET /news?category=&limit=.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	var cat category.Category
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		parsed, ok := category.Parse(raw)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Unknown category",
				"message": raw + " is not a news category",
			})
		}
		cat = parsed
	}
	limit := c.QueryInt("limit", 10)
	if limit <= 0 || limit > maxLimit {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid limit",
			"message": "limit must be between 1 and 50",
		})
	}

	articles, err := h.news.GetNews(c.UserContext(), cat, limit)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "Failed to fetch news",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"category": cat,
		"count":    len(articles),
		"articles": articles,
	})
}

// HandleGet serves GET /articles/:id.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	a, err := h.news.GetArticle(c.UserContext(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": err.Error(),
		})
	case err != nil:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "Failed to fetch article",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true, "article": a})
}

// HandleWarm queues a thumbnails:warm task.
func (h *Handler) HandleWarm(c *fiber.Ctx) error {
	if h.tasks == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "Warm unavailable",
			"message": "task queue is not configured",
		})
	}
	var p WarmPayload
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&p); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Invalid request body",
				"message": err.Error(),
			})
		}
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	task, err := NewWarmTask(p)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid warm request",
			"message": err.Error(),
		})
	}
	if err := h.tasks.Enqueue(task, "default", h.maxRetries); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to queue warm task",
			"message": err.Error(),
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "Thumbnail warm queued",
	})
}
