package repos

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/axai-ai/docstore/internal/data/dberr"
	types "github.com/axai-ai/docstore/internal/domain"
	"github.com/axai-ai/docstore/internal/pkg/dbctx"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

type ClusterRepo interface {
	FindByID(dc dbctx.Context, id any) (*types.DocumentCluster, error)
	FindMany(dc dbctx.Context, criteria map[string]any, opts QueryOptions) ([]*types.DocumentCluster, error)
	Create(dc dbctx.Context, cluster *types.DocumentCluster) error
	Update(dc dbctx.Context, id any, patch map[string]any) (*types.DocumentCluster, error)
	Delete(dc dbctx.Context, id any) (bool, error)
	Count(dc dbctx.Context, criteria map[string]any) (int64, error)
	AddMember(dc dbctx.Context, member *types.DocumentClusterMember) error
	RemoveMember(dc dbctx.Context, clusterID, documentID uuid.UUID) (bool, error)
	FindMembers(dc dbctx.Context, clusterID uuid.UUID, opts QueryOptions) ([]*types.DocumentClusterMember, error)
	FindPrimaryCluster(dc dbctx.Context, documentID uuid.UUID) (*types.DocumentCluster, error)
}

type clusterRepo struct {
	*Base[types.DocumentCluster]
}

func NewClusterRepo(db *gorm.DB, baseLog *logger.Logger) ClusterRepo {
	return &clusterRepo{Base: NewBase[types.DocumentCluster]("cluster", db, baseLog)}
}

// AddMember inserts a membership row. When the new member is marked primary,
// any existing primary membership for the same document is demoted in the
// same transaction so a document never holds two primaries.
func (r *clusterRepo) AddMember(dc dbctx.Context, member *types.DocumentClusterMember) error {
	if err := validate.Struct(member); err != nil {
		return fmt.Errorf("%w: %v", dberr.ErrValidation, err)
	}

	insert := func(inner dbctx.Context) error {
		if member.IsPrimaryCluster {
			if err := r.conn(inner).
				Model(&types.DocumentClusterMember{}).
				Where("document_id = ? AND is_primary_cluster = ?", member.DocumentID, true).
				Update("is_primary_cluster", false).Error; err != nil {
				return dberr.Translate(err)
			}
		}
		if err := r.conn(inner).Create(member).Error; err != nil {
			return dberr.Translate(err)
		}
		return nil
	}

	// Reuse the ambient transaction when there is one; otherwise open our
	// own so demote and insert commit together.
	if dc.Tx != nil {
		return insert(dc)
	}
	return r.Transaction(dc.Ctx, insert)
}

func (r *clusterRepo) RemoveMember(dc dbctx.Context, clusterID, documentID uuid.UUID) (bool, error) {
	res := r.conn(dc).
		Where("cluster_id = ? AND document_id = ?", clusterID, documentID).
		Delete(&types.DocumentClusterMember{})
	if res.Error != nil {
		return false, dberr.Translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *clusterRepo) FindMembers(dc dbctx.Context, clusterID uuid.UUID, opts QueryOptions) ([]*types.DocumentClusterMember, error) {
	q := applyOptions(r.conn(dc).Where("cluster_id = ?", clusterID), opts)
	var members []*types.DocumentClusterMember
	if err := q.Find(&members).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return members, nil
}

func (r *clusterRepo) FindPrimaryCluster(dc dbctx.Context, documentID uuid.UUID) (*types.DocumentCluster, error) {
	var member types.DocumentClusterMember
	err := r.conn(dc).
		Where("document_id = ? AND is_primary_cluster = ?", documentID, true).
		First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, dberr.Translate(err)
	}
	return r.FindByID(dc, member.ClusterID)
}
