package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/armonyco/armonyco/app/models"
	"github.com/armonyco/armonyco/internal/pkg/env"
)

var (
	ErrUnknownPlan        = errors.New("unknown plan")
	ErrPlanNotPurchasable = errors.New("plan has no configured price")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
)

// SessionCreator is the part of the Stripe checkout session client used to
// start a checkout.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Checkout creates Stripe checkout sessions for the registration wizard.
type Checkout struct {
	sessions     SessionCreator
	publicDomain string
}

func NewCheckout(sessions SessionCreator) *Checkout {
	return &Checkout{
		sessions:     sessions,
		publicDomain: strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"), "/"),
	}
}

// Create opens a subscription checkout for the plan. Stripe substitutes the
// session id into the success URL on return.
func (c *Checkout) Create(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	plan, ok := FindPlan(req.PlanID)
	if !ok {
		return nil, ErrUnknownPlan
	}
	if !plan.Purchasable() {
		return nil, ErrPlanNotPurchasable
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail:     stripe.String(models.NormalizeEmail(req.Email)),
		ClientReferenceID: stripe.String(req.Reference),
		SuccessURL:        stripe.String(c.publicDomain + "/register/complete?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(c.publicDomain + "/register?canceled=1"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(plan.StripePriceID), Quantity: stripe.Int64(1)},
		},
	}
	params.Context = ctx
	params.AddMetadata("planId", plan.ID)
	params.AddMetadata("planCredits", strconv.Itoa(plan.Credits))
	params.AddMetadata("planName", plan.Name)

	cs, err := c.sessions.New(params)
	if err != nil {
		log.Errorf("[Billing] Checkout creation failed for plan %s: %v", plan.ID, err)
		return nil, err
	}
	log.Infof("[Billing] Checkout session %s created for plan %s", cs.ID, plan.ID)
	return &CheckoutResponse{SessionID: cs.ID, SessionURL: cs.URL, PlanID: plan.ID}, nil
}

// StripeWebhook verifies and applies Stripe webhook deliveries.
type StripeWebhook struct {
	service *Service
	secret  string
}

func NewStripeWebhook(service *Service, secret string) *StripeWebhook {
	return &StripeWebhook{service: service, secret: strings.TrimSpace(secret)}
}

// Handle verifies the signature, stores the event once and applies it. A
// redelivery of an event that was applied is acknowledged without applying
// it again; one whose earlier apply failed or never finished is applied now.
func (w *StripeWebhook) Handle(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	if w.secret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET is not configured")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, w.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Warnf("[Billing] Rejected Stripe webhook: %v", err)
		return nil, ErrInvalidSignature
	}

	result := &WebhookResult{EventID: event.ID, EventType: string(event.Type)}
	created, stored, err := w.service.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
	})
	if err != nil {
		return nil, err
	}
	if !created {
		if stored.ProcessedAt != nil && stored.ProcessingError == "" {
			result.Duplicate = true
			return result, nil
		}
		log.Infof("[Billing] Reapplying Stripe event %s after an unfinished delivery", event.ID)
	}

	n, applyErr := w.apply(ctx, event)
	result.Updated = n
	if err := w.service.MarkWebhookProcessed(ctx, stored.ID, applyErr); err != nil {
		log.Errorf("[Billing] Failed to mark webhook %s processed: %v", event.ID, err)
	}
	if applyErr != nil {
		return result, applyErr
	}
	return result, nil
}

func (w *StripeWebhook) apply(ctx context.Context, event stripe.Event) (int64, error) {
	switch string(event.Type) {
	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return 0, fmt.Errorf("decode subscription: %w", err)
		}
		status := string(sub.Status)
		if string(event.Type) == "customer.subscription.deleted" {
			status = models.BillingStatusCanceled
		}
		return w.service.ApplySubscriptionStatus(ctx, sub.ID, status)
	case "checkout.session.completed":
		// Accounts are provisioned when the browser returns; nothing to do.
		return 0, nil
	default:
		log.Infof("[Billing] Ignoring Stripe event %s (%s)", event.ID, event.Type)
		return 0, nil
	}
}
