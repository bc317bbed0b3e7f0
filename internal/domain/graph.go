package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GraphNode is a node in the graph overlay. A node may reference a document;
// deleting the document nulls the reference instead of removing the node.
type GraphNode struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	NodeType string    `gorm:"size:50;not null;index" json:"node_type" validate:"required"`
	Name     string    `gorm:"size:255;not null" json:"name" validate:"required"`

	Description string         `gorm:"type:text" json:"description"`
	Properties  datatypes.JSON `gorm:"type:json" json:"properties"`

	DocumentID *uuid.UUID `gorm:"type:uuid;index" json:"document_id,omitempty"`
	Document   *Document  `gorm:"constraint:OnDelete:SET NULL;foreignKey:DocumentID;references:ID" json:"document,omitempty"`

	CreatedByTool string `gorm:"size:100;not null" json:"created_by_tool" validate:"required"`
	IsActive      bool   `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (GraphNode) TableName() string { return "graph_nodes" }

func (n *GraphNode) BeforeCreate(_ *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// GraphRelationship is a typed, weighted edge between two graph nodes.
// Directed edges are traversed source to target only; undirected edges are
// traversed both ways.
type GraphRelationship struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	SourceNodeID uuid.UUID  `gorm:"type:uuid;not null;index" json:"source_node_id"`
	SourceNode   *GraphNode `gorm:"constraint:OnDelete:CASCADE;foreignKey:SourceNodeID;references:ID" json:"source_node,omitempty"`

	TargetNodeID uuid.UUID  `gorm:"type:uuid;not null;index" json:"target_node_id"`
	TargetNode   *GraphNode `gorm:"constraint:OnDelete:CASCADE;foreignKey:TargetNodeID;references:ID" json:"target_node,omitempty"`

	RelationshipType string `gorm:"size:50;not null" json:"relationship_type" validate:"required"`
	IsDirected       bool   `gorm:"not null;default:true" json:"is_directed"`

	Weight          *float64 `gorm:"type:decimal(10,5);check:weight IS NULL OR weight > 0" json:"weight,omitempty" validate:"omitempty,gt=0"`
	ConfidenceScore *float64 `gorm:"type:decimal(5,4);check:confidence_score IS NULL OR (confidence_score >= 0 AND confidence_score <= 1)" json:"confidence_score,omitempty" validate:"omitempty,gte=0,lte=1"`

	Properties datatypes.JSON `gorm:"type:json" json:"properties"`

	CreatedByTool string `gorm:"size:100;not null" json:"created_by_tool" validate:"required"`
	IsActive      bool   `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (GraphRelationship) TableName() string { return "graph_relationships" }

func (r *GraphRelationship) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
