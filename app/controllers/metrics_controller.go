package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// OutcomeSnapshotter reads counted completion results.
type OutcomeSnapshotter interface {
	Snapshot(ctx context.Context) (map[string]int64, error)
}

// HandleRegistrationMetrics reports completion results per kind.
func HandleRegistrationMetrics(s OutcomeSnapshotter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		totals, err := s.Snapshot(c.UserContext())
		if err != nil {
			return jsonError(c, fiber.StatusServiceUnavailable, "metrics_unavailable", "Counters could not be read")
		}
		return c.JSON(fiber.Map{"registrationOutcomes": totals})
	}
}
