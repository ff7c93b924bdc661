package models

import "time"

// Organization is the business behind an account (hotel group, property
// manager). One organization per owning identity.
type Organization struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerUserID string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"owner_user_id"`
	Name        string    `gorm:"type:varchar(200);not null" json:"name"`
	VATNumber   string    `gorm:"column:vat_number;type:varchar(50)" json:"vat_number"`
	TaxCode     string    `gorm:"type:varchar(50)" json:"tax_code"`
	Address     string    `gorm:"type:varchar(255)" json:"address"`
	City        string    `gorm:"type:varchar(100)" json:"city"`
	PostalCode  string    `gorm:"type:varchar(20)" json:"postal_code"`
	Country     string    `gorm:"type:varchar(2)" json:"country"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
