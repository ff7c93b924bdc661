package models

import "time"

// Billing provider constants used across billing-related models.
const (
	BillingProviderStripe = "stripe"
)

const (
	BillingStatusActive     = "active"
	BillingStatusTrialing   = "trialing"
	BillingStatusPastDue    = "past_due"
	BillingStatusCanceled   = "canceled"
	BillingStatusIncomplete = "incomplete"
	BillingStatusUnpaid     = "unpaid"
	BillingStatusPaused     = "paused"
)

// BillingDetails links an identity to its plan and the Stripe objects that
// paid for it. A checkout session pays for exactly one identity.
type BillingDetails struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	UserID                  string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"user_id"`
	PlanID                  string    `gorm:"type:varchar(50);not null" json:"plan_id"`
	PlanName                string    `gorm:"type:varchar(100)" json:"plan_name"`
	PlanCredits             int       `gorm:"not null;default:0" json:"plan_credits"`
	StripeCustomerID        string    `gorm:"type:varchar(191);index" json:"stripe_customer_id"`
	StripeSubscriptionID    *string   `gorm:"type:varchar(191);index" json:"stripe_subscription_id,omitempty"`
	StripeCheckoutSessionID string    `gorm:"type:varchar(191);uniqueIndex" json:"stripe_checkout_session_id"`
	SubscriptionStatus      string    `gorm:"type:varchar(32);not null;default:'active'" json:"subscription_status"`
	AmountTotal             int64     `gorm:"default:0" json:"amount_total"`
	Currency                string    `gorm:"type:varchar(3)" json:"currency"`
	CreatedAt               time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsEntitled reports whether the subscription currently grants access.
func (b *BillingDetails) IsEntitled() bool {
	switch b.SubscriptionStatus {
	case BillingStatusActive, BillingStatusTrialing, BillingStatusPastDue:
		return true
	default:
		return false
	}
}
