package repos

import (
	"gorm.io/gorm"

	"github.com/axai-ai/docstore/internal/data/dberr"
	types "github.com/axai-ai/docstore/internal/domain"
	"github.com/axai-ai/docstore/internal/pkg/dbctx"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

type OrganizationRepo interface {
	FindByID(dc dbctx.Context, id any) (*types.Organization, error)
	FindMany(dc dbctx.Context, criteria map[string]any, opts QueryOptions) ([]*types.Organization, error)
	Create(dc dbctx.Context, org *types.Organization) error
	Update(dc dbctx.Context, id any, patch map[string]any) (*types.Organization, error)
	Delete(dc dbctx.Context, id any) (bool, error)
	Count(dc dbctx.Context, criteria map[string]any) (int64, error)
	FindByName(dc dbctx.Context, name string) (*types.Organization, error)
}

type organizationRepo struct {
	*Base[types.Organization]
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return &organizationRepo{Base: NewBase[types.Organization]("organization", db, baseLog)}
}

func (r *organizationRepo) FindByName(dc dbctx.Context, name string) (*types.Organization, error) {
	var org types.Organization
	if err := r.conn(dc).Where("name = ?", name).First(&org).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, dberr.Translate(err)
	}
	return &org, nil
}
