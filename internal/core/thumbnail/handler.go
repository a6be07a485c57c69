package thumbnail

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler { return &Handler{store: store} }

// HandleStats reports how many thumbnails are cached and where.
func (h *Handler) HandleStats(c *fiber.Ctx) error {
	st, err := h.store.Stats(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to read thumbnail stats",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true, "stats": st})
}

// HandleList returns stored thumbnails.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	objs, err := h.store.List(c.UserContext(), c.QueryInt("limit", 100))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to list thumbnails",
			"message": err.Error(),
		})
	}
	if objs == nil {
		objs = []Object{}
	}
	return c.JSON(fiber.Map{"success": true, "count": len(objs), "thumbnails": objs})
}

// HandleDelete drops one cached thumbnail so the next read recreates it.
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	cat, _ := url.PathUnescape(c.Params("category"))
	id, _ := url.PathUnescape(c.Params("articleId"))

	if err := h.store.Delete(c.UserContext(), id, cat); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, ErrInvalidKey) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{
			"error":   "Failed to delete thumbnail",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true, "path": ObjectPath(id, cat)})
}
