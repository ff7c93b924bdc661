// Package provisioning turns a verified payment and a registration draft into
// an identity with its profile, organization and billing records.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/armonyco/armonyco/app/models"
	"github.com/armonyco/armonyco/app/repository"
	"github.com/armonyco/armonyco/internal/pkg/draft"
	"github.com/armonyco/armonyco/internal/pkg/identity"
	"github.com/armonyco/armonyco/internal/pkg/payment"
)

const (
	DefaultStepTimeout = 15 * time.Second
	MinPasswordLength  = 6
)

var errStepTimeout = errors.New("step timed out")

// Orchestrator runs the ordered provisioning steps. It keeps no state between
// calls and never retries on its own.
type Orchestrator struct {
	identities    identity.Provider
	profiles      repository.ProfileRepository
	organizations repository.OrganizationRepository
	billing       repository.BillingDetailsRepository
	pending       repository.PendingProvisionRepository

	stepTimeout time.Duration
	validate    *validator.Validate
}

func New(identities identity.Provider, repos *repository.Repositories, stepTimeout time.Duration) *Orchestrator {
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}
	return &Orchestrator{
		identities:    identities,
		profiles:      repos.Profile,
		organizations: repos.Organization,
		billing:       repos.Billing,
		pending:       repos.Pending,
		stepTimeout:   stepTimeout,
		validate:      validator.New(),
	}
}

// Provision creates the account. A checkout session pays for one account
// only. When a dependent record fails, the identity created for this session
// is deleted once before returning.
func (o *Orchestrator) Provision(ctx context.Context, d *draft.RegistrationDraft, v *payment.VerificationResult) Result {
	if err := o.checkPreconditions(d, v); err != nil {
		return failed(err)
	}
	if perr := o.checkSessionUnused(ctx, v.SessionID); perr != nil {
		return failed(perr)
	}

	user, reused, perr := o.obtainIdentity(ctx, d, v.SessionID)
	if perr != nil {
		return failed(perr)
	}

	if perr := o.writeRecords(ctx, user.ID, d, v); perr != nil {
		perr.Rollback = o.rollback(ctx, user.ID, v.SessionID)
		log.Errorf("[Provisioning] %s failed for %s: %v", perr.Resource, user.ID, perr.Err)
		return Result{UserID: user.ID, Reused: reused, Err: perr}
	}

	if err := o.pending.Delete(context.WithoutCancel(ctx), v.SessionID); err != nil {
		log.Warnf("[Provisioning] Failed to clear pending marker of %s: %v", v.SessionID, err)
	}
	log.Infof("[Provisioning] Account %s provisioned (plan=%s reused=%t)", user.ID, d.Plan.ID, reused)
	return Result{Success: true, UserID: user.ID, Reused: reused}
}

func (o *Orchestrator) checkPreconditions(d *draft.RegistrationDraft, v *payment.VerificationResult) *Error {
	if d == nil {
		return &Error{Kind: KindInvalidDraft, Message: "registration data is missing"}
	}
	email := strings.TrimSpace(d.Email)
	if email == "" {
		return &Error{Kind: KindInvalidDraft, Field: "email", Message: "email is required"}
	}
	if err := o.validate.Var(email, "email,max=200"); err != nil {
		return &Error{Kind: KindInvalidDraft, Field: "email", Message: "email is not a valid address"}
	}
	if len(d.Password) < MinPasswordLength {
		return &Error{Kind: KindInvalidDraft, Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	if v == nil || !v.Verified || strings.TrimSpace(v.SessionID) == "" {
		return &Error{Kind: KindPaymentNotVerified, Message: "payment has not been verified"}
	}
	return nil
}

func (o *Orchestrator) checkSessionUnused(ctx context.Context, sessionID string) *Error {
	err := o.step(ctx, func(sctx context.Context) error {
		_, err := o.billing.GetByCheckoutSessionID(sctx, sessionID)
		return err
	})
	switch {
	case err == nil:
		log.Warnf("[Provisioning] Checkout session %s already paid for an account", sessionID)
		return &Error{Kind: KindPaymentSessionUsed, Step: stepSession, Message: "this payment has already been used for an account"}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case errors.Is(err, errStepTimeout):
		return &Error{Kind: KindTimeout, Step: stepSession, Message: "payment lookup timed out", Err: err}
	default:
		return &Error{Kind: KindIdentityCreationFailed, Step: stepSession, Message: "could not create account", Err: err}
	}
}

// obtainIdentity creates the identity and records it against the checkout
// session. An existing identity is adopted only when an earlier attempt for
// the same session recorded it under the draft's email; any other existing
// identity belongs to someone else.
func (o *Orchestrator) obtainIdentity(ctx context.Context, d *draft.RegistrationDraft, sessionID string) (*identity.User, bool, *Error) {
	var user *identity.User
	err := o.step(ctx, func(sctx context.Context) error {
		var err error
		user, err = o.identities.CreateUser(sctx, d.Email, d.Password)
		return err
	})
	if err == nil {
		if perr := o.markPending(ctx, user.ID, sessionID); perr != nil {
			perr.Rollback = o.rollback(ctx, user.ID, sessionID)
			return nil, false, perr
		}
		return user, false, nil
	}
	if errors.Is(err, errStepTimeout) {
		return nil, false, &Error{Kind: KindTimeout, Step: stepIdentity, Message: "account creation timed out", Err: err}
	}
	if !errors.Is(err, identity.ErrUserExists) {
		log.Errorf("[Provisioning] Identity creation failed: %v", err)
		return nil, false, &Error{Kind: KindIdentityCreationFailed, Step: stepIdentity, Message: "could not create account", Err: err}
	}

	var recorded *identity.User
	lookupErr := o.step(ctx, func(sctx context.Context) error {
		marker, err := o.pending.GetBySessionID(sctx, sessionID)
		if err != nil {
			return err
		}
		recorded, err = o.identities.GetUser(sctx, marker.UserID)
		return err
	})
	switch {
	case lookupErr == nil && models.NormalizeEmail(recorded.Email) == models.NormalizeEmail(d.Email):
		log.Warnf("[Provisioning] Adopting identity %s left by an earlier attempt for %s", recorded.ID, sessionID)
		return recorded, true, nil
	case lookupErr == nil, errors.Is(lookupErr, gorm.ErrRecordNotFound), errors.Is(lookupErr, identity.ErrUserNotFound):
		return nil, false, &Error{Kind: KindIdentityCreationFailed, Step: stepIdentity, Message: "email already registered", Err: identity.ErrUserExists}
	case errors.Is(lookupErr, errStepTimeout):
		return nil, false, &Error{Kind: KindTimeout, Step: stepLookup, Message: "account lookup timed out", Err: lookupErr}
	default:
		return nil, false, &Error{Kind: KindIdentityCreationFailed, Step: stepLookup, Message: "email already registered", Err: lookupErr}
	}
}

func (o *Orchestrator) markPending(ctx context.Context, userID, sessionID string) *Error {
	err := o.step(ctx, func(sctx context.Context) error {
		return o.pending.Put(sctx, &models.PendingProvision{CheckoutSessionID: sessionID, UserID: userID})
	})
	if err == nil {
		return nil
	}
	log.Errorf("[Provisioning] Failed to record identity %s for %s: %v", userID, sessionID, err)
	if errors.Is(err, errStepTimeout) {
		return &Error{Kind: KindTimeout, Step: stepMarker, Message: "account creation timed out", Err: err}
	}
	return &Error{Kind: KindIdentityCreationFailed, Step: stepMarker, Message: "could not create account", Err: err}
}

// writeRecords runs the dependent writes strictly in order. Each is an upsert
// keyed by the identity id, so a retry overwrites what a failed attempt left.
func (o *Orchestrator) writeRecords(ctx context.Context, userID string, d *draft.RegistrationDraft, v *payment.VerificationResult) *Error {
	profile := &models.Profile{
		UserID:    userID,
		Email:     models.NormalizeEmail(d.Email),
		FirstName: strings.TrimSpace(d.FirstName),
		LastName:  strings.TrimSpace(d.LastName),
		Phone:     strings.TrimSpace(d.Phone),
		Role:      models.ROLE_OWNER,
	}
	if err := o.step(ctx, func(sctx context.Context) error { return o.profiles.Upsert(sctx, profile) }); err != nil {
		return recordError(ResourceProfile, err)
	}

	if d.Organization.HasData() {
		org := &models.Organization{
			OwnerUserID: userID,
			Name:        strings.TrimSpace(d.Organization.BusinessName),
			VATNumber:   strings.TrimSpace(d.Organization.VATNumber),
			TaxCode:     strings.TrimSpace(d.Organization.TaxCode),
			Address:     strings.TrimSpace(d.Organization.Address),
			City:        strings.TrimSpace(d.Organization.City),
			PostalCode:  strings.TrimSpace(d.Organization.PostalCode),
			Country:     strings.ToUpper(strings.TrimSpace(d.Organization.Country)),
		}
		if err := o.step(ctx, func(sctx context.Context) error { return o.organizations.Upsert(sctx, org) }); err != nil {
			return recordError(ResourceOrganization, err)
		}
	}

	details := &models.BillingDetails{
		UserID:                  userID,
		PlanID:                  d.Plan.ID,
		PlanName:                d.Plan.Name,
		PlanCredits:             d.Plan.Credits,
		StripeCustomerID:        v.StripeCustomerID,
		StripeSubscriptionID:    v.StripeSubscriptionID,
		StripeCheckoutSessionID: v.SessionID,
		SubscriptionStatus:      models.BillingStatusActive,
		AmountTotal:             v.AmountTotal,
		Currency:                v.Currency,
	}
	if err := o.step(ctx, func(sctx context.Context) error { return o.billing.Upsert(sctx, details) }); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &Error{Kind: KindPaymentSessionUsed, Resource: ResourceBillingDetails, Step: ResourceBillingDetails, Message: "this payment has already been used for an account", Err: err}
		}
		return recordError(ResourceBillingDetails, err)
	}
	return nil
}

func recordError(resource string, err error) *Error {
	if errors.Is(err, errStepTimeout) {
		return &Error{Kind: KindTimeout, Resource: resource, Step: resource, Message: fmt.Sprintf("saving %s timed out", strings.ReplaceAll(resource, "_", " ")), Err: err}
	}
	return &Error{Kind: KindDependentRecordFailed, Resource: resource, Step: resource, Message: fmt.Sprintf("could not save %s", strings.ReplaceAll(resource, "_", " ")), Err: err}
}

// rollback deletes the identity exactly once, then its pending marker. It
// runs detached from the caller's cancellation so an abandoned request still
// cleans up. The marker stays when the delete fails so a retry can adopt the
// identity.
func (o *Orchestrator) rollback(ctx context.Context, userID, sessionID string) *Error {
	dctx := context.WithoutCancel(ctx)
	err := o.step(dctx, func(sctx context.Context) error {
		return o.identities.DeleteUser(sctx, userID)
	})
	if err != nil {
		log.Errorf("[Provisioning] rollback_failed: identity %s could not be deleted: %v", userID, err)
		return &Error{Kind: KindRollbackFailed, Step: stepRollback, Message: "could not remove partially created account", Err: err}
	}
	log.Warnf("[Provisioning] Rolled back identity %s", userID)
	if err := o.step(dctx, func(sctx context.Context) error { return o.pending.Delete(sctx, sessionID) }); err != nil {
		log.Warnf("[Provisioning] Failed to clear pending marker of %s: %v", sessionID, err)
	}
	return nil
}

// step runs fn with the per-step timeout. A call that ignores its context is
// abandoned once the deadline passes.
func (o *Orchestrator) step(ctx context.Context, fn func(context.Context) error) error {
	sctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(sctx) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(sctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %v", errStepTimeout, err)
		}
		return err
	case <-sctx.Done():
		if ctx.Err() == nil {
			return errStepTimeout
		}
		return ctx.Err()
	}
}
