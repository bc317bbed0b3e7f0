package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document lifecycle statuses.
const (
	DocumentStatusDraft     = "draft"
	DocumentStatusPublished = "published"
	DocumentStatusArchived  = "archived"
	DocumentStatusDeleted   = "deleted"
)

// Content-processing statuses set by the external pipeline.
const (
	ProcessingStatusPending    = "pending"
	ProcessingStatusProcessing = "processing"
	ProcessingStatusComplete   = "complete"
	ProcessingStatusError      = "error"
)

// Document is the core stored artifact. version increases by exactly one per
// tracked update; the pre-update state lands in document_versions.
type Document struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title   string    `gorm:"type:text;not null" json:"title" validate:"required"`
	Content string    `gorm:"type:text" json:"content"`

	OwnerID uint  `gorm:"not null;index" json:"owner_id" validate:"required"`
	Owner   *User `gorm:"foreignKey:OwnerID;references:ID" json:"owner,omitempty"`

	OrgID        uint          `gorm:"not null;index;index:idx_documents_org_created,priority:1" json:"org_id" validate:"required"`
	Organization *Organization `gorm:"foreignKey:OrgID;references:ID" json:"organization,omitempty"`

	DocumentType     string `gorm:"size:50;not null" json:"document_type" validate:"required"`
	Status           string `gorm:"size:20;not null;default:'draft'" json:"status" validate:"omitempty,oneof=draft published archived deleted"`
	Version          int    `gorm:"not null;default:1" json:"version" validate:"omitempty,gt=0"`
	FileFormat       string `gorm:"size:50" json:"file_format"`
	SizeBytes        int64  `gorm:"column:size_bytes" json:"size_bytes"`
	WordCount        int    `gorm:"column:word_count" json:"word_count"`
	ProcessingStatus string `gorm:"size:50;default:'pending'" json:"processing_status" validate:"omitempty,oneof=pending processing complete error"`
	Source           string `gorm:"size:100" json:"source"`
	ContentHash      *string `gorm:"size:64;uniqueIndex" json:"content_hash,omitempty"`
	ExternalRefID    string `gorm:"size:100" json:"external_ref_id"`

	Metadata datatypes.JSON `gorm:"column:metadata;type:json" json:"metadata"`

	CreatedAt time.Time `gorm:"not null;index:idx_documents_org_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Versions  []DocumentVersion `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"versions,omitempty"`
	Summaries []Summary         `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"summaries,omitempty"`
	Topics    []DocumentTopic   `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"topics,omitempty"`
}

func (Document) TableName() string { return "documents" }

func (d *Document) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DocumentVersion is an immutable snapshot of a document's state before a
// tracked update. Never mutated; cascades away with its parent document.
type DocumentVersion struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	DocumentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_document_versions_doc_version,priority:1" json:"document_id"`
	Document   *Document `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`

	Version int    `gorm:"not null;uniqueIndex:idx_document_versions_doc_version,priority:2;check:version > 0" json:"version"`
	Title   string `gorm:"type:text;not null" json:"title"`
	Content string `gorm:"type:text;not null" json:"content"`
	Status  string `gorm:"size:20;not null" json:"status"`

	ModifiedByID uint  `gorm:"not null" json:"modified_by_id"`
	ModifiedBy   *User `gorm:"foreignKey:ModifiedByID;references:ID" json:"modified_by,omitempty"`

	ChangeDescription string         `gorm:"type:text" json:"change_description"`
	Metadata          datatypes.JSON `gorm:"type:json" json:"metadata"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (DocumentVersion) TableName() string { return "document_versions" }

func (v *DocumentVersion) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
