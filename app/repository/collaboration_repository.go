package repository

import (
	"context"
	"time"

	"github.com/armonyco/armonyco/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type invitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates an invitation repository backed by GORM.
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

// Upsert creates the invitation or refreshes token and expiry of an existing
// one for the same organization and email.
func (r *invitationRepository) Upsert(ctx context.Context, inv *models.Invitation) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"},
			{Name: "email"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"role",
			"invited_by_user_id",
			"token",
			"expires_at",
			"updated_at",
		}),
	}).Create(inv).Error; err != nil {
		return err
	}

	return r.db.WithContext(ctx).Where("organization_id = ? AND email = ?", inv.OrganizationID, inv.Email).First(inv).Error
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

type hotelRepository struct {
	db *gorm.DB
}

// NewHotelRepository creates a hotel repository backed by GORM.
func NewHotelRepository(db *gorm.DB) HotelRepository {
	return &hotelRepository{db: db}
}

func (r *hotelRepository) ListByOrganization(ctx context.Context, organizationID uint, offset, limit int) ([]models.Hotel, error) {
	var hotels []models.Hotel
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("name ASC").
		Offset(offset).Limit(limit).
		Find(&hotels).Error
	return hotels, err
}

type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a webhook event repository backed by GORM.
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) CreateIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.WithContext(ctx).Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
