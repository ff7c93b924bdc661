// Package draft persists in-progress registration data across the redirect to
// the payment page and back.
package draft

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// MaxAge is how long a pending draft stays usable after it was saved.
const MaxAge = 24 * time.Hour

const (
	pendingKeyPrefix = "registration:pending:"
	wizardKeyPrefix  = "registration:wizard:"
)

// ErrDraftNotFound is returned by Load when no usable draft exists. A payload
// that cannot be decoded is reported the same way.
var ErrDraftNotFound = errors.New("registration draft not found")

// Organization is the optional business part of a draft.
type Organization struct {
	BusinessName string `json:"businessName" validate:"omitempty,max=200"`
	VATNumber    string `json:"vatNumber" validate:"omitempty,max=50"`
	TaxCode      string `json:"taxCode" validate:"omitempty,max=50"`
	Address      string `json:"address" validate:"omitempty,max=255"`
	City         string `json:"city" validate:"omitempty,max=100"`
	PostalCode   string `json:"postalCode" validate:"omitempty,max=20"`
	Country      string `json:"country" validate:"omitempty,len=2"`
}

// HasData reports whether the organization step was filled in.
func (o Organization) HasData() bool {
	return strings.TrimSpace(o.BusinessName) != ""
}

// Plan is the selection made on the pricing step.
type Plan struct {
	ID      string `json:"planId" validate:"required,max=50"`
	Credits int    `json:"planCredits" validate:"gte=0"`
	Name    string `json:"planName" validate:"max=100"`
}

// RegistrationDraft is everything the wizard collected. The password is kept
// because the identity can only be created after payment is verified.
type RegistrationDraft struct {
	Email        string       `json:"email" validate:"required,email,max=200"`
	Password     string       `json:"password" validate:"required,min=6,max=72"`
	FirstName    string       `json:"firstName" validate:"max=100"`
	LastName     string       `json:"lastName" validate:"max=100"`
	Phone        string       `json:"phone" validate:"max=50"`
	Organization Organization `json:"organization"`
	Plan         Plan         `json:"plan"`
	Timestamp    int64        `json:"timestamp"`

	// CheckoutSessionID is the checkout opened for this draft. Only that
	// session can complete it.
	CheckoutSessionID string `json:"checkoutSessionId,omitempty"`
}

// SavedAt returns the save time recorded in Timestamp (Unix milliseconds).
func (d *RegistrationDraft) SavedAt() time.Time {
	return time.UnixMilli(d.Timestamp)
}

// IsExpired reports whether the draft is older than MaxAge at now. A draft
// exactly MaxAge old is still valid.
func IsExpired(d *RegistrationDraft, now time.Time) bool {
	if d == nil {
		return true
	}
	return now.Sub(d.SavedAt()) > MaxAge
}

// Store is durable, single-writer draft storage scoped to one browser
// session. Save overwrites; Clear is idempotent.
type Store interface {
	Save(ctx context.Context, scope string, d *RegistrationDraft) error
	Load(ctx context.Context, scope string) (*RegistrationDraft, error)
	Clear(ctx context.Context, scope string) error
	SaveWizard(ctx context.Context, scope string, d *RegistrationDraft) error
	LoadWizard(ctx context.Context, scope string) (*RegistrationDraft, error)
}

// Reference is the opaque value handed to the payment provider to tie a
// checkout back to its scope without revealing the scope itself.
func Reference(scope string) string {
	sum := sha256.Sum256([]byte("registration:" + scope))
	return hex.EncodeToString(sum[:16])
}

// PendingKey is the well-known key of the post-redirect draft of a scope.
func PendingKey(scope string) string {
	return pendingKeyPrefix + scope
}

// WizardKey is the key of the pre-payment in-progress wizard of a scope.
func WizardKey(scope string) string {
	return wizardKeyPrefix + scope
}

func encode(d *RegistrationDraft, now time.Time) ([]byte, error) {
	stamped := *d
	stamped.Timestamp = now.UnixMilli()
	d.Timestamp = stamped.Timestamp
	return json.Marshal(&stamped)
}

func decode(raw []byte) (*RegistrationDraft, error) {
	var d RegistrationDraft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, ErrDraftNotFound
	}
	if d.Timestamp == 0 {
		return nil, ErrDraftNotFound
	}
	return &d, nil
}
