package domain

import (
	"time"
)

type User struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string `gorm:"type:text;not null;uniqueIndex" json:"username" validate:"required"`
	Email    string `gorm:"type:text;not null;uniqueIndex" json:"email" validate:"required,email"`

	OrgID        uint          `gorm:"not null;index" json:"org_id" validate:"required"`
	Organization *Organization `gorm:"foreignKey:OrgID;references:ID" json:"organization,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	OwnedDocuments []Document `gorm:"foreignKey:OwnerID" json:"owned_documents,omitempty"`
}

func (User) TableName() string { return "users" }
