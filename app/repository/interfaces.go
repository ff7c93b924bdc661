package repository

import (
	"context"

	"github.com/armonyco/armonyco/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the operations of the local identity store
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// ProfileRepository defines the operations on personal profiles
type ProfileRepository interface {
	Upsert(ctx context.Context, profile *models.Profile) error
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

// OrganizationRepository defines the operations on organizations
type OrganizationRepository interface {
	Upsert(ctx context.Context, org *models.Organization) error
	GetByOwner(ctx context.Context, userID string) (*models.Organization, error)
	DeleteByOwner(ctx context.Context, userID string) error
}

// BillingDetailsRepository defines the operations on billing details
type BillingDetailsRepository interface {
	Upsert(ctx context.Context, details *models.BillingDetails) error
	GetByUserID(ctx context.Context, userID string) (*models.BillingDetails, error)
	GetByCheckoutSessionID(ctx context.Context, sessionID string) (*models.BillingDetails, error)
	UpdateStatusBySubscriptionID(ctx context.Context, subscriptionID, status string) (int64, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

// PendingProvisionRepository tracks identities created for a checkout
// session whose account is not complete yet
type PendingProvisionRepository interface {
	Put(ctx context.Context, p *models.PendingProvision) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.PendingProvision, error)
	Delete(ctx context.Context, sessionID string) error
}

// InvitationRepository defines the operations on collaborator invitations
type InvitationRepository interface {
	Upsert(ctx context.Context, inv *models.Invitation) error
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
}

// HotelRepository defines read access to an organization's properties
type HotelRepository interface {
	ListByOrganization(ctx context.Context, organizationID uint, offset, limit int) ([]models.Hotel, error)
}

// WebhookEventRepository persists provider webhook deliveries
type WebhookEventRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Profile      ProfileRepository
	Organization OrganizationRepository
	Billing      BillingDetailsRepository
	Pending      PendingProvisionRepository
	Invitation   InvitationRepository
	Hotel        HotelRepository
	Webhook      WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Profile:      NewProfileRepository(db),
		Organization: NewOrganizationRepository(db),
		Billing:      NewBillingDetailsRepository(db),
		Pending:      NewPendingProvisionRepository(db),
		Invitation:   NewInvitationRepository(db),
		Hotel:        NewHotelRepository(db),
		Webhook:      NewWebhookEventRepository(db),
	}
}
