package models

import "time"

const (
	ROLE_OWNER        = "owner"
	ROLE_COLLABORATOR = "collaborator"
)

// Profile holds the personal data of an identity. The identity id is the
// primary key so repeated writes for the same identity overwrite in place.
type Profile struct {
	UserID    string    `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	Email     string    `gorm:"type:varchar(200);index" json:"email"`
	FirstName string    `gorm:"type:varchar(100)" json:"first_name"`
	LastName  string    `gorm:"type:varchar(100)" json:"last_name"`
	Phone     string    `gorm:"type:varchar(50)" json:"phone"`
	Role      string    `gorm:"type:varchar(30);default:'owner'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FullName joins first and last name, skipping empty parts.
func (p *Profile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}
