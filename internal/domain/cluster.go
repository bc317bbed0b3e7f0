package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentCluster groups documents produced by an external clustering run.
type DocumentCluster struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:255;not null" json:"name" validate:"required"`

	Description string         `gorm:"type:text" json:"description"`
	Algorithm   string         `gorm:"size:100" json:"algorithm"`
	Metadata    datatypes.JSON `gorm:"type:json" json:"metadata"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Members []DocumentClusterMember `gorm:"foreignKey:ClusterID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

func (DocumentCluster) TableName() string { return "document_clusters" }

func (c *DocumentCluster) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// DocumentClusterMember ties a document to a cluster. A document may belong
// to many clusters but has at most one with is_primary_cluster set; the
// cluster repository demotes the previous primary inside the same
// transaction that promotes a new one.
type DocumentClusterMember struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ClusterID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_cluster_members_cluster_doc,priority:1" json:"cluster_id"`
	Cluster   *DocumentCluster `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClusterID;references:ID" json:"cluster,omitempty"`

	DocumentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cluster_members_cluster_doc,priority:2;index" json:"document_id"`
	Document   *Document `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`

	MembershipScore  float64 `gorm:"type:decimal(5,4);not null;check:membership_score >= 0 AND membership_score <= 1" json:"membership_score" validate:"gte=0,lte=1"`
	IsPrimaryCluster bool    `gorm:"not null;default:false" json:"is_primary_cluster"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (DocumentClusterMember) TableName() string { return "document_cluster_members" }

func (m *DocumentClusterMember) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
