package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/armonyco/armonyco/internal/pkg/payment"
)

// PaymentController exposes server-side checkout verification.
type PaymentController struct {
	verifier payment.Verifier
}

func NewPaymentController(verifier payment.Verifier) *PaymentController {
	return &PaymentController{verifier: verifier}
}

type verifyRequest struct {
	SessionID string `json:"sessionId"`
}

// HandleVerify answers whether a checkout session was paid. It never
// changes any state.
func (pc *PaymentController) HandleVerify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if err := payment.ValidateSessionID(req.SessionID); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_session_id", err.Error())
	}

	res, err := pc.verifier.Verify(c.UserContext(), req.SessionID)
	if err != nil {
		var te *payment.TransportError
		if errors.As(err, &te) {
			status := te.StatusCode
			if status == 0 {
				status = fiber.StatusBadGateway
			}
			code := te.Code
			if code == "" {
				code = "verification_failed"
			}
			return jsonError(c, status, code, te.Error())
		}
		log.Errorf("[Payment] Verification of %s failed: %v", req.SessionID, err)
		return jsonError(c, fiber.StatusBadGateway, "verification_failed", "Payment could not be verified")
	}
	return c.JSON(res)
}
