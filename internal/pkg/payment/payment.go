// Package payment confirms that a checkout session was paid before any
// account is created for it.
package payment

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

const (
	StatusPaid              = "paid"
	StatusUnpaid            = "unpaid"
	StatusNoPaymentRequired = "no_payment_required"
)

const maxSessionIDLength = 255

var sessionIDPattern = regexp.MustCompile(`^cs_[A-Za-z0-9_]+$`)

// ErrInvalidSessionID is returned before any call is made for an id that
// cannot be a checkout session id.
var ErrInvalidSessionID = errors.New("invalid payment session identifier")

// VerificationResult is the server's view of a checkout session. Verified is
// the only field that gates provisioning.
type VerificationResult struct {
	Verified             bool              `json:"verified"`
	PaymentStatus        string            `json:"paymentStatus"`
	CustomerEmail        string            `json:"customerEmail,omitempty"`
	StripeCustomerID     string            `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID *string           `json:"stripeSubscriptionId"`
	AmountTotal          int64             `json:"amountTotal,omitempty"`
	Currency             string            `json:"currency,omitempty"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	ClientReferenceID    string            `json:"clientReferenceId,omitempty"`

	// SessionID is not part of the wire payload; callers fill it in.
	SessionID string `json:"-"`
}

// Verifier checks a session. Implementations never mutate state and never
// cache, so calling Verify on every retry is safe. Any returned error means
// the check itself could not be completed.
type Verifier interface {
	Verify(ctx context.Context, sessionID string) (*VerificationResult, error)
}

// TransportError is a failed verification call with a message fit for users.
type TransportError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "payment verification failed"
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidateSessionID rejects ids that are empty, too long or not shaped like
// a checkout session id.
func ValidateSessionID(sessionID string) error {
	id := strings.TrimSpace(sessionID)
	if id == "" || len(id) > maxSessionIDLength || !sessionIDPattern.MatchString(id) {
		return ErrInvalidSessionID
	}
	return nil
}

// IsVerifiedStatus reports whether a checkout payment status proves payment.
func IsVerifiedStatus(status string) bool {
	return status == StatusPaid || status == StatusNoPaymentRequired
}
