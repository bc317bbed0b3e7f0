package domain

import (
	"time"
)

// Organization is a B2B tenant. Every user and document belongs to exactly
// one organization, and org-scoped queries must filter on it.
type Organization struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:text;not null" json:"name" validate:"required"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Users     []User     `gorm:"foreignKey:OrgID" json:"users,omitempty"`
	Documents []Document `gorm:"foreignKey:OrgID" json:"documents,omitempty"`
}

func (Organization) TableName() string { return "organizations" }
