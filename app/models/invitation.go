package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// InvitationTTL is how long a collaborator invitation can be accepted.
const InvitationTTL = 7 * 24 * time.Hour

// Invitation is a pending collaborator invite into an organization.
type Invitation struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	OrganizationID  uint       `gorm:"not null;index:ux_invitations_org_email,unique,priority:1" json:"organization_id"`
	Email           string     `gorm:"type:varchar(200);not null;index:ux_invitations_org_email,unique,priority:2" json:"email" validate:"required,email,max=200"`
	Role            string     `gorm:"type:varchar(30);not null;default:'collaborator'" json:"role" validate:"oneof=collaborator owner"`
	InvitedByUserID string     `gorm:"type:varchar(36);not null" json:"invited_by_user_id"`
	Token           string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	ExpiresAt       time.Time  `gorm:"not null" json:"expires_at"`
	AcceptedAt      *time.Time `gorm:"type:timestamp;default:null" json:"accepted_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// GenerateToken creates a random token and resets the expiry window.
func (i *Invitation) GenerateToken(now time.Time) error {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	i.Token = hex.EncodeToString(b)
	i.ExpiresAt = now.Add(InvitationTTL)
	return nil
}

// IsExpired reports whether the invitation can no longer be accepted.
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
