package models

import "time"

// PendingProvision records the identity created for a checkout session until
// the account behind it is complete. Only an identity recorded here may be
// adopted or removed by a later attempt for the same session.
type PendingProvision struct {
	CheckoutSessionID string    `gorm:"type:varchar(191);primaryKey" json:"checkout_session_id"`
	UserID            string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}
