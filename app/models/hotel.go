package models

import "time"

// Hotel is a property operated by an organization.
type Hotel struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	Name           string    `gorm:"type:varchar(200);not null" json:"name"`
	City           string    `gorm:"type:varchar(100)" json:"city"`
	Country        string    `gorm:"type:varchar(2)" json:"country"`
	Rooms          int       `gorm:"default:0" json:"rooms"`
	PMSProvider    string    `gorm:"column:pms_provider;type:varchar(50)" json:"pms_provider"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
