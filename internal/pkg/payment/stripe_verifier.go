package payment

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v76"
)

// SessionGetter is the part of the Stripe checkout session client used here.
type SessionGetter interface {
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeVerifier queries Stripe directly. It holds the secret key and must
// only run server side.
type StripeVerifier struct {
	sessions SessionGetter
}

func NewStripeVerifier(sessions SessionGetter) *StripeVerifier {
	return &StripeVerifier{sessions: sessions}
}

func (v *StripeVerifier) Verify(ctx context.Context, sessionID string) (*VerificationResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, &TransportError{StatusCode: http.StatusBadRequest, Code: "invalid_session_id", Message: err.Error(), Err: err}
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")
	params.AddExpand("customer")

	cs, err := v.sessions.Get(sessionID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}

	result := fromCheckoutSession(cs)
	result.SessionID = sessionID
	log.Infof("[Payment] Verified session %s: status=%s verified=%t", sessionID, result.PaymentStatus, result.Verified)
	return result, nil
}

func fromCheckoutSession(cs *stripe.CheckoutSession) *VerificationResult {
	status := string(cs.PaymentStatus)
	out := &VerificationResult{
		Verified:      IsVerifiedStatus(status),
		PaymentStatus: status,
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		Metadata:      cs.Metadata,

		ClientReferenceID: cs.ClientReferenceID,
	}
	if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
		out.CustomerEmail = cs.CustomerDetails.Email
	} else {
		out.CustomerEmail = cs.CustomerEmail
	}
	if cs.Customer != nil {
		out.StripeCustomerID = cs.Customer.ID
	}
	if cs.Subscription != nil && cs.Subscription.ID != "" {
		id := cs.Subscription.ID
		out.StripeSubscriptionID = &id
	}
	return out
}

func mapStripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		msg := se.Msg
		if se.HTTPStatusCode == http.StatusNotFound || se.Code == stripe.ErrorCodeResourceMissing {
			msg = "payment session not found"
		}
		if msg == "" {
			msg = "payment provider request failed"
		}
		log.Warnf("[Payment] Stripe error: status=%d code=%s msg=%s", se.HTTPStatusCode, se.Code, se.Msg)
		return &TransportError{StatusCode: se.HTTPStatusCode, Code: string(se.Code), Message: msg, Err: err}
	}
	log.Errorf("[Payment] Stripe request failed: %v", err)
	return &TransportError{StatusCode: http.StatusBadGateway, Message: "could not reach payment provider", Err: err}
}
