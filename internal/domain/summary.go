package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Summary is tool/agent output attached to a document. Immutable by
// convention: there is no update path.
type Summary struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	Document   *Document `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`

	Content         string  `gorm:"type:text;not null" json:"content" validate:"required"`
	SummaryType     string  `gorm:"size:50;not null" json:"summary_type" validate:"required"`
	ToolAgent       string  `gorm:"size:100;not null" json:"tool_agent" validate:"required"`
	ConfidenceScore float64 `gorm:"type:decimal(5,4);check:confidence_score >= 0 AND confidence_score <= 1" json:"confidence_score" validate:"gte=0,lte=1"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Summary) TableName() string { return "summaries" }

func (s *Summary) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
