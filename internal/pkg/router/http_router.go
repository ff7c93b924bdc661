package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/armonyco/armonyco/internal/pkg/middleware"
	"github.com/armonyco/armonyco/internal/pkg/session"
)

type HttpRouter struct {
	ctrl Controllers
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session unless a store was installed already
	if session.GetSessionStore() == nil {
		session.NewSessionStore()
	}

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Billing provider webhooks (no session, signature-verified in controller)
	app.Post("/webhooks/stripe", h.ctrl.Webhook.HandleStripe)
}

func NewHttpRouter(ctrl Controllers) *HttpRouter {
	return &HttpRouter{ctrl: ctrl}
}
