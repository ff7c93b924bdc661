package provisioning

import "fmt"

// Kind classifies a provisioning failure.
type Kind string

const (
	KindInvalidDraft           Kind = "invalid_draft"
	KindPaymentNotVerified     Kind = "payment_not_verified"
	KindPaymentSessionUsed     Kind = "payment_session_used"
	KindIdentityCreationFailed Kind = "identity_creation_failed"
	KindDependentRecordFailed  Kind = "dependent_record_failed"
	KindRollbackFailed         Kind = "rollback_failed"
	KindTimeout                Kind = "timeout"
)

// Resources written after the identity exists.
const (
	ResourceProfile        = "profile"
	ResourceOrganization   = "organization"
	ResourceBillingDetails = "billing_details"
)

const (
	stepIdentity = "identity"
	stepLookup   = "identity_lookup"
	stepSession  = "session_lookup"
	stepMarker   = "pending_marker"
	stepRollback = "rollback"
)

// Error is a structured provisioning failure. Rollback is diagnostic only and
// never changes Kind or Message.
type Error struct {
	Kind     Kind
	Field    string
	Resource string
	Step     string
	Message  string
	Err      error
	Rollback *Error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the outcome of one Provision call.
type Result struct {
	Success bool
	UserID  string
	// Reused is set when the identity an interrupted attempt created for the
	// same checkout session was adopted instead of creating a new one.
	Reused bool
	Err    *Error
}

func failed(err *Error) Result {
	return Result{Err: err}
}
