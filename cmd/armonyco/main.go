package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	stripeclient "github.com/stripe/stripe-go/v76/client"

	"github.com/armonyco/armonyco/app/controllers"
	"github.com/armonyco/armonyco/app/repository"
	"github.com/armonyco/armonyco/internal/pkg/billing"
	"github.com/armonyco/armonyco/internal/pkg/cache"
	"github.com/armonyco/armonyco/internal/pkg/database"
	"github.com/armonyco/armonyco/internal/pkg/draft"
	"github.com/armonyco/armonyco/internal/pkg/env"
	"github.com/armonyco/armonyco/internal/pkg/hcaptcha"
	"github.com/armonyco/armonyco/internal/pkg/identity"
	"github.com/armonyco/armonyco/internal/pkg/mail"
	"github.com/armonyco/armonyco/internal/pkg/metrics/counter"
	"github.com/armonyco/armonyco/internal/pkg/payment"
	"github.com/armonyco/armonyco/internal/pkg/provisioning"
	"github.com/armonyco/armonyco/internal/pkg/registration"
	"github.com/armonyco/armonyco/internal/pkg/router"
	"github.com/armonyco/armonyco/internal/pkg/session"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	session.NewSessionStore()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/armonyco to project root
		"../../../", // Fallback
	}
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
		AppName:   "armonyco",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	metrics := app.Group("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	}))
	metrics.Get("/", monitor.New())
	metrics.Get("/registrations", controllers.HandleRegistrationMetrics(counter.NewRegistrationOutcomes(cache.GetClient())))

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, buildControllers())

	return app
}

func buildControllers() router.Controllers {
	factory := repository.NewFactory(database.GetDB())
	repos := factory.GetRepositories()

	sc := stripeclient.New(env.GetEnv("STRIPE_SECRET_KEY", ""), nil)
	stripeVerifier := payment.NewStripeVerifier(sc.CheckoutSessions)

	// A separate verification service takes over when configured; the
	// verify endpoint itself always asks Stripe.
	var flowVerifier payment.Verifier = stripeVerifier
	if hc := payment.NewHTTPClientFromEnv(); hc != nil {
		log.Infof("[Startup] Verifying payments through %s", hc.BaseURL)
		flowVerifier = hc
	}

	identities := identityProvider(repos)
	drafts := draft.NewRedisStore(cache.GetClient())
	orchestrator := provisioning.New(identities, repos, env.GetEnvDuration("PROVISION_STEP_TIMEOUT", provisioning.DefaultStepTimeout))

	flow := registration.NewFlow(flowVerifier, drafts, orchestrator)
	flow.HandoffAfter = env.GetEnvDuration("REGISTRATION_HANDOFF_AFTER", registration.DefaultHandoffAfter)
	flow.ShellPath = env.GetEnv("APP_SHELL_PATH", registration.DefaultShellPath)

	billingService := billing.NewService(repos)

	registrationController := controllers.NewRegistrationController(drafts, billing.NewCheckout(sc.CheckoutSessions), flow).
		WithOutcomeRecorder(counter.NewRegistrationOutcomes(cache.GetClient()))
	if captcha := hcaptcha.NewVerifierFromEnv(); captcha != nil {
		registrationController.WithCaptcha(captcha)
	}

	return router.Controllers{
		Registration: registrationController,
		Payment:      controllers.NewPaymentController(stripeVerifier),
		Webhook:      controllers.NewWebhookController(billing.NewStripeWebhook(billingService, env.GetEnv("STRIPE_WEBHOOK_SECRET", ""))),
		Account:      controllers.NewAccountController(identities, repos).WithTransactions(factory.Transaction),
		Collaborator: controllers.NewCollaboratorController(repos, mail.NewSMTPMailerFromEnv()),
		Hotel:        controllers.NewHotelController(repos),
	}
}

func identityProvider(repos *repository.Repositories) identity.Provider {
	switch strings.ToLower(env.GetEnv("IDENTITY_PROVIDER", "supabase")) {
	case "local":
		log.Info("[Startup] Using local identity store")
		return identity.NewLocalProvider(repos.User)
	default:
		client := identity.NewSupabaseClientFromEnv()
		if client.BaseURL == "" {
			log.Warn("[Startup] SUPABASE_URL not set, falling back to local identity store")
			return identity.NewLocalProvider(repos.User)
		}
		return client
	}
}
