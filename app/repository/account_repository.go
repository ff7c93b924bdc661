package repository

import (
	"context"

	"github.com/armonyco/armonyco/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a profile repository backed by GORM.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email",
			"first_name",
			"last_name",
			"phone",
			"role",
			"updated_at",
		}),
	}).Create(profile).Error
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) DeleteByUserID(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Profile{}).Error
}

type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates an organization repository backed by GORM.
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Upsert(ctx context.Context, org *models.Organization) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"vat_number",
			"tax_code",
			"address",
			"city",
			"postal_code",
			"country",
			"updated_at",
		}),
	}).Create(org).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.WithContext(ctx).Where("owner_user_id = ?", org.OwnerUserID).First(org).Error
}

func (r *organizationRepository) GetByOwner(ctx context.Context, userID string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).Where("owner_user_id = ?", userID).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) DeleteByOwner(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("owner_user_id = ?", userID).Delete(&models.Organization{}).Error
}

type billingDetailsRepository struct {
	db *gorm.DB
}

// NewBillingDetailsRepository creates a billing details repository backed by GORM.
func NewBillingDetailsRepository(db *gorm.DB) BillingDetailsRepository {
	return &billingDetailsRepository{db: db}
}

func (r *billingDetailsRepository) Upsert(ctx context.Context, details *models.BillingDetails) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id",
			"plan_name",
			"plan_credits",
			"stripe_customer_id",
			"stripe_subscription_id",
			"stripe_checkout_session_id",
			"subscription_status",
			"amount_total",
			"currency",
			"updated_at",
		}),
	}).Create(details).Error; err != nil {
		return err
	}

	return r.db.WithContext(ctx).Where("user_id = ?", details.UserID).First(details).Error
}

func (r *billingDetailsRepository) GetByUserID(ctx context.Context, userID string) (*models.BillingDetails, error) {
	var b models.BillingDetails
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *billingDetailsRepository) GetByCheckoutSessionID(ctx context.Context, sessionID string) (*models.BillingDetails, error) {
	var b models.BillingDetails
	if err := r.db.WithContext(ctx).Where("stripe_checkout_session_id = ?", sessionID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *billingDetailsRepository) UpdateStatusBySubscriptionID(ctx context.Context, subscriptionID, status string) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.BillingDetails{}).
		Where("stripe_subscription_id = ?", subscriptionID).
		Update("subscription_status", status)
	return tx.RowsAffected, tx.Error
}

func (r *billingDetailsRepository) DeleteByUserID(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.BillingDetails{}).Error
}

type pendingProvisionRepository struct {
	db *gorm.DB
}

// NewPendingProvisionRepository creates a pending provision repository backed by GORM.
func NewPendingProvisionRepository(db *gorm.DB) PendingProvisionRepository {
	return &pendingProvisionRepository{db: db}
}

// Put records the identity for the session. An existing marker for the same
// session is left untouched so a second identity can never claim it.
func (r *pendingProvisionRepository) Put(ctx context.Context, p *models.PendingProvision) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "checkout_session_id"}},
		DoNothing: true,
	}).Create(p).Error
}

func (r *pendingProvisionRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.PendingProvision, error) {
	var p models.PendingProvision
	if err := r.db.WithContext(ctx).Where("checkout_session_id = ?", sessionID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pendingProvisionRepository) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Where("checkout_session_id = ?", sessionID).Delete(&models.PendingProvision{}).Error
}
