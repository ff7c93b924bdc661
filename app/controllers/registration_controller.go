package controllers

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/armonyco/armonyco/internal/pkg/billing"
	"github.com/armonyco/armonyco/internal/pkg/draft"
	"github.com/armonyco/armonyco/internal/pkg/provisioning"
	"github.com/armonyco/armonyco/internal/pkg/registration"
	"github.com/armonyco/armonyco/internal/pkg/session"
)

// CheckoutStarter opens a hosted checkout for a plan.
type CheckoutStarter interface {
	Create(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutResponse, error)
}

// CompletionRunner drives the return from checkout.
type CompletionRunner interface {
	Run(ctx context.Context, scope, sessionID string) registration.Outcome
	Retry(ctx context.Context, scope, sessionID string) registration.Outcome
}

// CaptchaVerifier checks a bot-protection token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// OutcomeRecorder counts completion results by kind.
type OutcomeRecorder interface {
	Add(ctx context.Context, field string) error
}

// RegistrationController handles the signup wizard and its completion.
type RegistrationController struct {
	drafts   draft.Store
	checkout CheckoutStarter
	flow     CompletionRunner
	validate *validator.Validate

	captcha  CaptchaVerifier
	outcomes OutcomeRecorder
}

func NewRegistrationController(drafts draft.Store, checkout CheckoutStarter, flow CompletionRunner) *RegistrationController {
	return &RegistrationController{
		drafts:   drafts,
		checkout: checkout,
		flow:     flow,
		validate: validator.New(),
	}
}

// WithCaptcha requires a valid X-Captcha-Token on checkout.
func (rc *RegistrationController) WithCaptcha(v CaptchaVerifier) *RegistrationController {
	rc.captcha = v
	return rc
}

func (rc *RegistrationController) WithOutcomeRecorder(r OutcomeRecorder) *RegistrationController {
	rc.outcomes = r
	return rc
}

type retryRequest struct {
	SessionID string `json:"sessionId"`
}

// HandleCheckout validates the finished wizard, opens a checkout and keeps
// the draft for the return trip. The draft is stored only once the checkout
// exists.
func (rc *RegistrationController) HandleCheckout(c *fiber.Ctx) error {
	var d draft.RegistrationDraft
	if err := c.BodyParser(&d); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if err := rc.validate.Struct(&d); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_draft", validationMessage(err))
	}
	if rc.captcha != nil {
		if err := rc.captcha.Verify(c.UserContext(), c.Get("X-Captcha-Token"), ClientIP(c)); err != nil {
			log.Infof("[Registration] Captcha rejected for %s: %v", ClientIP(c), err)
			return jsonError(c, fiber.StatusBadRequest, "captcha_failed", "Please complete the captcha")
		}
	}

	plan, ok := billing.FindPlan(d.Plan.ID)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "unknown_plan", "Selected plan does not exist")
	}
	d.Plan = draft.Plan{ID: plan.ID, Credits: plan.Credits, Name: plan.Name}

	scope, err := session.Scope(c)
	if err != nil {
		log.Errorf("[Registration] Session unavailable: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "session_unavailable", "Session could not be created")
	}

	res, err := rc.checkout.Create(c.UserContext(), billing.CheckoutRequest{Email: d.Email, PlanID: plan.ID, Reference: draft.Reference(scope)})
	if err != nil {
		if errors.Is(err, billing.ErrPlanNotPurchasable) || errors.Is(err, billing.ErrUnknownPlan) {
			return jsonError(c, fiber.StatusBadRequest, "plan_unavailable", "Selected plan cannot be purchased right now")
		}
		return jsonError(c, fiber.StatusBadGateway, "checkout_failed", "Payment page could not be opened")
	}

	d.CheckoutSessionID = res.SessionID
	if err := rc.drafts.Save(c.UserContext(), scope, &d); err != nil {
		log.Errorf("[Registration] Failed to store draft for %s: %v", scope, err)
		return jsonError(c, fiber.StatusInternalServerError, "draft_unavailable", "Registration data could not be saved")
	}

	return c.JSON(res)
}

// HandleSaveWizard stores the in-progress wizard; fields may still be empty.
func (rc *RegistrationController) HandleSaveWizard(c *fiber.Ctx) error {
	var d draft.RegistrationDraft
	if err := c.BodyParser(&d); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	scope, err := session.Scope(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "session_unavailable", "Session could not be created")
	}
	d.CheckoutSessionID = ""
	if err := rc.drafts.SaveWizard(c.UserContext(), scope, &d); err != nil {
		log.Errorf("[Registration] Failed to store wizard for %s: %v", scope, err)
		return jsonError(c, fiber.StatusInternalServerError, "draft_unavailable", "Registration data could not be saved")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleGetWizard returns the in-progress wizard without the password.
func (rc *RegistrationController) HandleGetWizard(c *fiber.Ctx) error {
	scope, err := session.Scope(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "session_unavailable", "Session could not be created")
	}
	d, err := rc.drafts.LoadWizard(c.UserContext(), scope)
	if err != nil {
		if errors.Is(err, draft.ErrDraftNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "No registration in progress")
		}
		return jsonError(c, fiber.StatusInternalServerError, "draft_unavailable", "Registration data could not be loaded")
	}
	d.Password = ""
	return c.JSON(d)
}

// HandleComplete is the checkout return target.
func (rc *RegistrationController) HandleComplete(c *fiber.Ctx) error {
	scope, err := session.Scope(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "session_unavailable", "Session could not be created")
	}
	out := rc.flow.Run(c.UserContext(), scope, c.Query("session_id"))
	return rc.respond(c, out)
}

// HandleRetry replays completion for the same checkout session.
func (rc *RegistrationController) HandleRetry(c *fiber.Ctx) error {
	var req retryRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	scope, err := session.Scope(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "session_unavailable", "Session could not be created")
	}
	out := rc.flow.Retry(c.UserContext(), scope, req.SessionID)
	return rc.respond(c, out)
}

func (rc *RegistrationController) respond(c *fiber.Ctx, out registration.Outcome) error {
	if rc.outcomes != nil {
		field := string(out.State)
		if out.Kind != "" {
			field = out.Kind
		}
		if err := rc.outcomes.Add(c.UserContext(), field); err != nil {
			log.Warnf("[Registration] Failed to count outcome %s: %v", field, err)
		}
	}
	if out.State == registration.StateSuccess {
		if err := session.SetAuthenticated(c, out.UserID, out.Email); err != nil {
			log.Errorf("[Registration] Account %s created but session could not be marked: %v", out.UserID, err)
		}
	}
	return c.Status(outcomeStatus(out)).JSON(out)
}

func outcomeStatus(out registration.Outcome) int {
	if out.State == registration.StateSuccess {
		return fiber.StatusOK
	}
	switch out.Kind {
	case registration.KindMissingSessionID, registration.KindInvalidSessionID:
		return fiber.StatusBadRequest
	case registration.KindVerificationTransportError:
		return fiber.StatusBadGateway
	case registration.KindPaymentNotVerified:
		return fiber.StatusPaymentRequired
	case registration.KindDraftMissing, registration.KindDraftExpired:
		return fiber.StatusGone
	case string(provisioning.KindInvalidDraft):
		return fiber.StatusUnprocessableEntity
	case string(provisioning.KindTimeout):
		return fiber.StatusGatewayTimeout
	case string(provisioning.KindPaymentSessionUsed):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fe.Namespace() + " failed on " + fe.Tag()
	}
	return "Invalid registration data"
}
