package queue

import "github.com/gofiber/fiber/v2"

type Handler struct{ queue *Queue }

func NewHandler(q *Queue) *Handler { return &Handler{queue: q} }

// HandleStatus reports queue depth.
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	st := h.queue.Status()
	return c.JSON(fiber.Map{
		"success": true,
		"queue":   st,
		"message": st.Message(),
	})
}
