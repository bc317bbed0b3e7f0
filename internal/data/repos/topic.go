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

type TopicRepo interface {
	FindByID(dc dbctx.Context, id any) (*types.Topic, error)
	FindMany(dc dbctx.Context, criteria map[string]any, opts QueryOptions) ([]*types.Topic, error)
	Create(dc dbctx.Context, topic *types.Topic) error
	Update(dc dbctx.Context, id any, patch map[string]any) (*types.Topic, error)
	Delete(dc dbctx.Context, id any) (bool, error)
	Count(dc dbctx.Context, criteria map[string]any) (int64, error)
	FindByName(dc dbctx.Context, name string) (*types.Topic, error)
	FindRoots(dc dbctx.Context, opts QueryOptions) ([]*types.Topic, error)
	FindChildren(dc dbctx.Context, parentID uuid.UUID, opts QueryOptions) ([]*types.Topic, error)
	AttachDocument(dc dbctx.Context, link *types.DocumentTopic) error
	DetachDocument(dc dbctx.Context, documentID, topicID uuid.UUID) (bool, error)
	FindDocumentLinks(dc dbctx.Context, topicID uuid.UUID, opts QueryOptions) ([]*types.DocumentTopic, error)
}

type topicRepo struct {
	*Base[types.Topic]
}

func NewTopicRepo(db *gorm.DB, baseLog *logger.Logger) TopicRepo {
	return &topicRepo{Base: NewBase[types.Topic]("topic", db, baseLog)}
}

func (r *topicRepo) FindByName(dc dbctx.Context, name string) (*types.Topic, error) {
	var topic types.Topic
	if err := r.conn(dc).Where("name = ?", name).First(&topic).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, dberr.Translate(err)
	}
	return &topic, nil
}

func (r *topicRepo) FindRoots(dc dbctx.Context, opts QueryOptions) ([]*types.Topic, error) {
	q := applyOptions(r.conn(dc).Where("parent_topic_id IS NULL"), opts)
	var topics []*types.Topic
	if err := q.Find(&topics).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return topics, nil
}

func (r *topicRepo) FindChildren(dc dbctx.Context, parentID uuid.UUID, opts QueryOptions) ([]*types.Topic, error) {
	return r.FindMany(dc, map[string]any{"parent_topic_id": parentID}, opts)
}

// AttachDocument links a document to a topic. Re-linking the same pair is
// ErrDuplicateEntry from the unique index.
func (r *topicRepo) AttachDocument(dc dbctx.Context, link *types.DocumentTopic) error {
	if err := validate.Struct(link); err != nil {
		return fmt.Errorf("%w: %v", dberr.ErrValidation, err)
	}
	if err := r.conn(dc).Create(link).Error; err != nil {
		return dberr.Translate(err)
	}
	return nil
}

func (r *topicRepo) DetachDocument(dc dbctx.Context, documentID, topicID uuid.UUID) (bool, error) {
	res := r.conn(dc).
		Where("document_id = ? AND topic_id = ?", documentID, topicID).
		Delete(&types.DocumentTopic{})
	if res.Error != nil {
		return false, dberr.Translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *topicRepo) FindDocumentLinks(dc dbctx.Context, topicID uuid.UUID, opts QueryOptions) ([]*types.DocumentTopic, error) {
	q := applyOptions(r.conn(dc).Where("topic_id = ?", topicID), opts)
	var links []*types.DocumentTopic
	if err := q.Find(&links).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return links, nil
}
