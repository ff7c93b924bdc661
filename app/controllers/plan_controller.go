package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/armonyco/armonyco/internal/pkg/billing"
)

// HandlePlans lists the plans offered at signup.
func HandlePlans(c *fiber.Ctx) error {
	plans := billing.Catalog()
	out := make([]fiber.Map, 0, len(plans))
	for _, p := range plans {
		out = append(out, fiber.Map{
			"id":          p.ID,
			"name":        p.Name,
			"credits":     p.Credits,
			"priceCents":  p.PriceCents,
			"currency":    p.Currency,
			"interval":    p.Interval,
			"purchasable": p.Purchasable(),
		})
	}
	return c.JSON(fiber.Map{"plans": out})
}
