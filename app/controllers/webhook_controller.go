package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/armonyco/armonyco/internal/pkg/billing"
)

// WebhookHandler applies a signed provider event.
type WebhookHandler interface {
	Handle(ctx context.Context, payload []byte, signatureHeader string) (*billing.WebhookResult, error)
}

type WebhookController struct {
	stripe WebhookHandler
}

func NewWebhookController(stripe WebhookHandler) *WebhookController {
	return &WebhookController{stripe: stripe}
}

// HandleStripe receives subscription lifecycle events. Redeliveries are
// acknowledged so the provider stops retrying.
func (wc *WebhookController) HandleStripe(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	res, err := wc.stripe.Handle(c.UserContext(), payload, c.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature could not be verified")
		}
		log.Errorf("[Webhook] Stripe event failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "webhook_failed", "Webhook could not be processed")
	}
	return c.JSON(fiber.Map{
		"ok":        true,
		"duplicate": res.Duplicate,
		"updated":   res.Updated,
	})
}
