package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/armonyco/armonyco/app/controllers"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Controllers bundles the handlers the routers mount.
type Controllers struct {
	Registration *controllers.RegistrationController
	Payment      *controllers.PaymentController
	Webhook      *controllers.WebhookController
	Account      *controllers.AccountController
	Collaborator *controllers.CollaboratorController
	Hotel        *controllers.HotelController
}

func InstallRouter(app *fiber.App, ctrl Controllers) {
	// HttpRouter goes first: it installs the session store and the global
	// UserContext middleware the API auth checks rely on.
	setup(app, NewHttpRouter(ctrl), NewApiRouter(ctrl))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
