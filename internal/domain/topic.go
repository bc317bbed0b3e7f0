package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Topic is a node in the global topic hierarchy extracted from document
// content. parent_topic_id builds the hierarchy; deleting a parent detaches
// children rather than removing them.
type Topic struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:100;not null;uniqueIndex" json:"name" validate:"required"`

	Description string         `gorm:"type:text" json:"description"`
	Keywords    datatypes.JSON `gorm:"type:json" json:"keywords"`

	ParentTopicID *uuid.UUID `gorm:"type:uuid" json:"parent_topic_id,omitempty"`
	ParentTopic   *Topic     `gorm:"constraint:OnDelete:SET NULL;foreignKey:ParentTopicID;references:ID" json:"parent_topic,omitempty"`

	ExtractionMethod string   `gorm:"size:50" json:"extraction_method"`
	GlobalImportance *float64 `gorm:"type:decimal(5,4);check:global_importance IS NULL OR (global_importance >= 0 AND global_importance <= 1)" json:"global_importance,omitempty" validate:"omitempty,gte=0,lte=1"`
	CreatedByTool    string   `gorm:"size:100" json:"created_by_tool"`
	IsActive         bool     `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Topic) TableName() string { return "topics" }

func (t *Topic) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// DocumentTopic links a document to a topic with the extractor's relevance
// score. The (document_id, topic_id) pair is unique.
type DocumentTopic struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	DocumentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_document_topics_doc_topic,priority:1" json:"document_id"`
	Document   *Document `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`

	TopicID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_document_topics_doc_topic,priority:2;index" json:"topic_id"`
	Topic   *Topic    `gorm:"constraint:OnDelete:CASCADE;foreignKey:TopicID;references:ID" json:"topic,omitempty"`

	RelevanceScore  float64        `gorm:"type:decimal(5,4);not null;check:relevance_score >= 0 AND relevance_score <= 1" json:"relevance_score" validate:"gte=0,lte=1"`
	Context         datatypes.JSON `gorm:"type:json" json:"context"`
	ExtractedByTool string         `gorm:"size:100;not null" json:"extracted_by_tool" validate:"required"`

	ExtractedAt time.Time `gorm:"not null" json:"extracted_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (DocumentTopic) TableName() string { return "document_topics" }

func (dt *DocumentTopic) BeforeCreate(_ *gorm.DB) error {
	if dt.ID == uuid.Nil {
		dt.ID = uuid.New()
	}
	return nil
}
