package repos

import (
	"gorm.io/gorm"

	"github.com/axai-ai/docstore/internal/data/dberr"
	types "github.com/axai-ai/docstore/internal/domain"
	"github.com/axai-ai/docstore/internal/pkg/dbctx"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

type UserRepo interface {
	FindByID(dc dbctx.Context, id any) (*types.User, error)
	FindMany(dc dbctx.Context, criteria map[string]any, opts QueryOptions) ([]*types.User, error)
	Create(dc dbctx.Context, user *types.User) error
	Update(dc dbctx.Context, id any, patch map[string]any) (*types.User, error)
	Delete(dc dbctx.Context, id any) (bool, error)
	Count(dc dbctx.Context, criteria map[string]any) (int64, error)
	FindByUsername(dc dbctx.Context, username string) (*types.User, error)
	FindByEmail(dc dbctx.Context, email string) (*types.User, error)
	FindByOrganization(dc dbctx.Context, orgID uint, opts QueryOptions) ([]*types.User, error)
}

type userRepo struct {
	*Base[types.User]
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{Base: NewBase[types.User]("user", db, baseLog)}
}

func (r *userRepo) FindByUsername(dc dbctx.Context, username string) (*types.User, error) {
	return r.findOne(dc, "username = ?", username)
}

func (r *userRepo) FindByEmail(dc dbctx.Context, email string) (*types.User, error) {
	return r.findOne(dc, "email = ?", email)
}

func (r *userRepo) FindByOrganization(dc dbctx.Context, orgID uint, opts QueryOptions) ([]*types.User, error) {
	return r.FindMany(dc, map[string]any{"org_id": orgID}, opts)
}

func (r *userRepo) findOne(dc dbctx.Context, query string, args ...any) (*types.User, error) {
	var user types.User
	if err := r.conn(dc).Where(query, args...).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, dberr.Translate(err)
	}
	return &user, nil
}
