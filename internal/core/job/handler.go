package job

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type Handler struct{ jobs *Service }

func NewHandler(jobs *Service) *Handler { return &Handler{jobs: jobs} }

// HandleGet returns the latest recreation record for an article.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("articleId")
	rec, err := h.jobs.Get(c.UserContext(), id)
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "no recreation job recorded for article " + id,
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to read job",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true, "job": rec})
}
