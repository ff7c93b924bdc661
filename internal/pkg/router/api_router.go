package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/armonyco/armonyco/app/controllers"
	"github.com/armonyco/armonyco/internal/pkg/env"
	"github.com/armonyco/armonyco/internal/pkg/middleware"
)

type ApiRouter struct {
	ctrl Controllers
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api",
		cors.New(cors.Config{
			AllowOrigins:     env.GetEnv("CORS_ALLOWED_ORIGINS", env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000")),
			AllowCredentials: true,
		}),
		limiter.New(limiter.Config{
			Max:          env.GetEnvInt("API_RATE_LIMIT", 60),
			Expiration:   time.Minute,
			KeyGenerator: controllers.ClientIP,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error":   "rate_limited",
					"message": "Too many requests, please slow down",
				})
			},
		}),
	)
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	v1.Get("/plans", controllers.HandlePlans)

	// Signup wizard and checkout return
	reg := v1.Group("/register")
	reg.Get("/wizard", h.ctrl.Registration.HandleGetWizard)
	reg.Put("/wizard", h.ctrl.Registration.HandleSaveWizard)
	reg.Post("/checkout", h.ctrl.Registration.HandleCheckout)
	reg.Get("/complete", h.ctrl.Registration.HandleComplete)
	reg.Post("/retry", h.ctrl.Registration.HandleRetry)

	v1.Post("/payments/verify", h.ctrl.Payment.HandleVerify)
	v1.Get("/invitations/:token", h.ctrl.Collaborator.HandleShowInvitation)

	// Signed-in account
	v1.Get("/account", middleware.RequireAPISessionAuth, h.ctrl.Account.HandleMe)
	v1.Delete("/account", middleware.RequireAPISessionAuth, h.ctrl.Account.HandleDelete)
	v1.Post("/collaborators/invite", middleware.RequireAPISessionAuth, h.ctrl.Collaborator.HandleInvite)
	v1.Get("/hotels", middleware.RequireAPISessionAuth, h.ctrl.Hotel.HandleList)
}

func NewApiRouter(ctrl Controllers) *ApiRouter {
	return &ApiRouter{ctrl: ctrl}
}
