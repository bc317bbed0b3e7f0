package repos

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/axai-ai/docstore/internal/data/dberr"
	types "github.com/axai-ai/docstore/internal/domain"
	"github.com/axai-ai/docstore/internal/pkg/dbctx"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

type GraphNodeRepo interface {
	FindByID(dc dbctx.Context, id any) (*types.GraphNode, error)
	FindMany(dc dbctx.Context, criteria map[string]any, opts QueryOptions) ([]*types.GraphNode, error)
	Create(dc dbctx.Context, node *types.GraphNode) error
	Update(dc dbctx.Context, id any, patch map[string]any) (*types.GraphNode, error)
	Delete(dc dbctx.Context, id any) (bool, error)
	Count(dc dbctx.Context, criteria map[string]any) (int64, error)
	FindByDocument(dc dbctx.Context, documentID uuid.UUID) ([]*types.GraphNode, error)
	FindByType(dc dbctx.Context, nodeType string, opts QueryOptions) ([]*types.GraphNode, error)
	EnsureNode(dc dbctx.Context, node *types.GraphNode) (*types.GraphNode, error)
	Deactivate(dc dbctx.Context, id uuid.UUID) (bool, error)
}

type graphNodeRepo struct {
	*Base[types.GraphNode]
}

func NewGraphNodeRepo(db *gorm.DB, baseLog *logger.Logger) GraphNodeRepo {
	return &graphNodeRepo{Base: NewBase[types.GraphNode]("graph_node", db, baseLog)}
}

func (r *graphNodeRepo) FindByDocument(dc dbctx.Context, documentID uuid.UUID) ([]*types.GraphNode, error) {
	return r.FindMany(dc, map[string]any{"document_id": documentID}, QueryOptions{})
}

func (r *graphNodeRepo) FindByType(dc dbctx.Context, nodeType string, opts QueryOptions) ([]*types.GraphNode, error) {
	return r.FindMany(dc, map[string]any{"node_type": nodeType, "is_active": true}, opts)
}

// EnsureNode returns the active node with the same type and name on the same
// document, creating it when absent. Extraction tools re-run against a
// document without piling up duplicate nodes.
func (r *graphNodeRepo) EnsureNode(dc dbctx.Context, node *types.GraphNode) (*types.GraphNode, error) {
	if err := validate.Struct(node); err != nil {
		return nil, fmt.Errorf("%w: %v", dberr.ErrValidation, err)
	}
	q := r.conn(dc).
		Where("node_type = ? AND name = ? AND is_active = ?", node.NodeType, node.Name, true)
	if node.DocumentID != nil {
		q = q.Where("document_id = ?", *node.DocumentID)
	} else {
		q = q.Where("document_id IS NULL")
	}
	var existing types.GraphNode
	err := q.First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dberr.Translate(err)
	}
	if err := r.Base.Create(dc, node); err != nil {
		return nil, err
	}
	return node, nil
}

// Deactivate soft-removes a node so traversals skip it while history stays.
func (r *graphNodeRepo) Deactivate(dc dbctx.Context, id uuid.UUID) (bool, error) {
	res := r.conn(dc).Model(&types.GraphNode{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return false, dberr.Translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

type GraphRelationshipRepo interface {
	FindByID(dc dbctx.Context, id any) (*types.GraphRelationship, error)
	FindMany(dc dbctx.Context, criteria map[string]any, opts QueryOptions) ([]*types.GraphRelationship, error)
	Create(dc dbctx.Context, rel *types.GraphRelationship) error
	Update(dc dbctx.Context, id any, patch map[string]any) (*types.GraphRelationship, error)
	Delete(dc dbctx.Context, id any) (bool, error)
	Count(dc dbctx.Context, criteria map[string]any) (int64, error)
	FindActiveByNodes(dc dbctx.Context, nodeIDs []uuid.UUID) ([]*types.GraphRelationship, error)
	Deactivate(dc dbctx.Context, id uuid.UUID) (bool, error)
}

type graphRelationshipRepo struct {
	*Base[types.GraphRelationship]
}

func NewGraphRelationshipRepo(db *gorm.DB, baseLog *logger.Logger) GraphRelationshipRepo {
	return &graphRelationshipRepo{Base: NewBase[types.GraphRelationship]("graph_relationship", db, baseLog)}
}

func (r *graphRelationshipRepo) Create(dc dbctx.Context, rel *types.GraphRelationship) error {
	if rel.SourceNodeID == rel.TargetNodeID {
		return fmt.Errorf("%w: relationship source and target must differ", dberr.ErrValidation)
	}
	return r.Base.Create(dc, rel)
}

// FindActiveByNodes loads the active edges touching any of the given nodes,
// in either direction. Used by the relatedness traversal to expand one hop.
func (r *graphRelationshipRepo) FindActiveByNodes(dc dbctx.Context, nodeIDs []uuid.UUID) ([]*types.GraphRelationship, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}
	var rels []*types.GraphRelationship
	if err := r.conn(dc).
		Where("is_active = ?", true).
		Where("source_node_id IN ? OR target_node_id IN ?", nodeIDs, nodeIDs).
		Find(&rels).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return rels, nil
}

func (r *graphRelationshipRepo) Deactivate(dc dbctx.Context, id uuid.UUID) (bool, error) {
	res := r.conn(dc).Model(&types.GraphRelationship{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return false, dberr.Translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}
