// Package registration drives the return from checkout: it verifies the
// payment, provisions the account from the saved draft and reports an
// Outcome the browser can render.
package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/armonyco/armonyco/internal/pkg/draft"
	"github.com/armonyco/armonyco/internal/pkg/payment"
	"github.com/armonyco/armonyco/internal/pkg/provisioning"
)

const (
	DefaultHandoffAfter = 3 * time.Second
	DefaultShellPath    = "/app"
)

// Error kinds raised by the flow itself. Provisioning failures keep the kind
// reported by the orchestrator.
const (
	KindMissingSessionID           = "missing_session_id"
	KindInvalidSessionID           = "invalid_session_id"
	KindVerificationTransportError = "verification_transport_error"
	KindPaymentNotVerified         = "payment_not_verified"
	KindDraftMissing               = "draft_missing"
	KindDraftExpired               = "draft_expired"
	KindDraftUnavailable           = "draft_unavailable"
)

// Action is what the browser should offer next.
type Action string

const (
	ActionHandoff             Action = "handoff"
	ActionRetry               Action = "retry"
	ActionGoHome              Action = "go_home"
	ActionRestartRegistration Action = "restart_registration"
)

// Provisioner is the account creation step.
type Provisioner interface {
	Provision(ctx context.Context, d *draft.RegistrationDraft, v *payment.VerificationResult) provisioning.Result
}

// Outcome is the terminal result of an attempt.
type Outcome struct {
	State         State  `json:"state"`
	Kind          string `json:"kind,omitempty"`
	Message       string `json:"message"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	Retryable     bool   `json:"retryable"`
	Action        Action `json:"action"`

	// Charged tells the user whether the payment went through.
	// NoDuplicateCharge is set when a retry re-checks the same session.
	Charged           bool `json:"charged"`
	NoDuplicateCharge bool `json:"noDuplicateCharge"`

	UserID         string        `json:"-"`
	Email          string        `json:"-"`
	HandoffAfter   time.Duration `json:"-"`
	HandoffAfterMs int64         `json:"handoffAfterMs,omitempty"`
	RedirectTo     string        `json:"redirectTo,omitempty"`

	// Joined is set when this call attached to an attempt already running
	// for the same scope instead of starting its own.
	Joined bool    `json:"joined,omitempty"`
	Trail  []State `json:"trail"`
}

// Flow runs at most one attempt per scope at a time.
type Flow struct {
	verifier    payment.Verifier
	drafts      draft.Store
	provisioner Provisioner

	HandoffAfter time.Duration
	ShellPath    string
	Now          func() time.Time

	group singleflight.Group
}

func NewFlow(verifier payment.Verifier, drafts draft.Store, provisioner Provisioner) *Flow {
	return &Flow{
		verifier:     verifier,
		drafts:       drafts,
		provisioner:  provisioner,
		HandoffAfter: DefaultHandoffAfter,
		ShellPath:    DefaultShellPath,
		Now:          time.Now,
	}
}

type attemptResult struct {
	leader  string
	outcome Outcome
}

// Run completes registration for scope using the session id from the return
// URL. A call for a scope with an attempt in flight waits for that attempt
// and returns its outcome with Joined set.
func (f *Flow) Run(ctx context.Context, scope, sessionID string) Outcome {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		m := newMachine()
		return f.fail(m, KindMissingSessionID, "missing session identifier", false, ActionGoHome, false)
	}
	if err := payment.ValidateSessionID(sessionID); err != nil {
		m := newMachine()
		return f.fail(m, KindInvalidSessionID, "invalid payment session identifier", false, ActionGoHome, false)
	}

	token := uuid.NewString()
	v, _, _ := f.group.Do(scope, func() (any, error) {
		return attemptResult{leader: token, outcome: f.attempt(ctx, scope, sessionID)}, nil
	})
	res := v.(attemptResult)
	out := res.outcome
	out.Trail = append([]State(nil), out.Trail...)
	out.Joined = res.leader != token
	return out
}

// Retry replays the flow for the same session. The session is re-verified,
// never re-charged.
func (f *Flow) Retry(ctx context.Context, scope, sessionID string) Outcome {
	return f.Run(ctx, scope, sessionID)
}

func (f *Flow) attempt(ctx context.Context, scope, sessionID string) Outcome {
	m := newMachine()

	verification, err := f.verifier.Verify(ctx, sessionID)
	if err == nil && verification == nil {
		err = errors.New("empty verification result")
	}
	if err != nil {
		log.Warnf("[Registration] Verification failed for %s: %v", sessionID, err)
		return f.fail(m, KindVerificationTransportError, transportMessage(err), true, ActionRetry, false)
	}
	if verification.SessionID == "" {
		verification.SessionID = sessionID
	}
	if !verification.Verified {
		out := f.fail(m, KindPaymentNotVerified, fmt.Sprintf("payment not completed (status: %s)", verification.PaymentStatus), true, ActionRetry, false)
		out.PaymentStatus = verification.PaymentStatus
		return out
	}

	d, err := f.drafts.Load(ctx, scope)
	switch {
	case errors.Is(err, draft.ErrDraftNotFound):
		return f.fail(m, KindDraftMissing, "registration data not found, please register again", false, ActionRestartRegistration, true)
	case err != nil:
		log.Errorf("[Registration] Draft store unavailable for %s: %v", scope, err)
		return f.fail(m, KindDraftUnavailable, "registration data could not be loaded", true, ActionRetry, true)
	}
	if draft.IsExpired(d, f.Now()) {
		f.clear(ctx, scope)
		return f.fail(m, KindDraftExpired, "registration data has expired, please register again", false, ActionRestartRegistration, true)
	}
	if !paysFor(verification, d, scope) {
		log.Warnf("[Registration] Session %s does not belong to the draft of scope %s", sessionID, scope)
		return f.fail(m, KindPaymentNotVerified, "this payment does not belong to this registration", false, ActionRestartRegistration, false)
	}

	m.to(StateCreatingAccount)
	res := f.provisioner.Provision(ctx, d, verification)
	if !res.Success {
		kind, msg := string(provisioning.KindIdentityCreationFailed), "could not create account"
		if res.Err != nil {
			kind, msg = string(res.Err.Kind), res.Err.Message
			switch res.Err.Kind {
			case provisioning.KindInvalidDraft:
				return f.fail(m, kind, msg, false, ActionRestartRegistration, true)
			case provisioning.KindPaymentSessionUsed:
				return f.fail(m, kind, msg, false, ActionGoHome, true)
			}
		}
		return f.fail(m, kind, msg, true, ActionRetry, true)
	}

	f.clear(ctx, scope)
	m.to(StateSuccess)
	log.Infof("[Registration] Account %s ready for scope %s", res.UserID, scope)
	return Outcome{
		State:          m.state,
		Message:        "account created",
		PaymentStatus:  verification.PaymentStatus,
		Action:         ActionHandoff,
		Charged:        true,
		UserID:         res.UserID,
		Email:          strings.ToLower(strings.TrimSpace(d.Email)),
		HandoffAfter:   f.HandoffAfter,
		HandoffAfterMs: f.HandoffAfter.Milliseconds(),
		RedirectTo:     f.ShellPath,
		Trail:          m.trail,
	}
}

// fail moves the attempt to the error state. Once the payment is verified
// every failure was charged. A retry re-checks the same session, so it never
// charges twice.
func (f *Flow) fail(m *machine, kind, msg string, retryable bool, action Action, charged bool) Outcome {
	m.to(StateError)
	return Outcome{
		State:             m.state,
		Kind:              kind,
		Message:           msg,
		Retryable:         retryable,
		Action:            action,
		Charged:           charged,
		NoDuplicateCharge: retryable,
		Trail:             m.trail,
	}
}

func (f *Flow) clear(ctx context.Context, scope string) {
	if err := f.drafts.Clear(ctx, scope); err != nil {
		log.Warnf("[Registration] Failed to clear draft for %s: %v", scope, err)
	}
}

// paysFor reports whether the verified session is the checkout opened for
// this draft in this scope.
func paysFor(v *payment.VerificationResult, d *draft.RegistrationDraft, scope string) bool {
	if d.CheckoutSessionID == "" || d.CheckoutSessionID != v.SessionID {
		return false
	}
	return v.ClientReferenceID == "" || v.ClientReferenceID == draft.Reference(scope)
}

func transportMessage(err error) string {
	var te *payment.TransportError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	return "payment verification failed"
}
