package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

// ClientIP returns the caller address, preferring proxy headers set by
// Cloudflare or a reverse proxy.
func ClientIP(c *fiber.Ctx) string {
	if cf := strings.TrimSpace(c.Get("CF-Connecting-IP")); cf != "" {
		return cf
	}
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xr := strings.TrimSpace(c.Get("X-Real-IP")); xr != "" {
		return xr
	}
	return c.IP()
}
