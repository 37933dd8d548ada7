package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// GetUserID reads the authenticated user id set by the auth middleware.
// Returns 0 when the request never passed through it.
func GetUserID(c *fiber.Ctx) int64 {
	raw, _ := c.Locals("user_id").(string)
	id, _ := strconv.ParseInt(raw, 10, 64)
	return id
}
