package repos

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/axai-ai/docstore/internal/data/cache"
	types "github.com/axai-ai/docstore/internal/domain"
	"github.com/axai-ai/docstore/internal/pkg/dbctx"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

// cachedDocumentRepo wraps a DocumentRepo with read-through TTL caching.
// Reads inside a transaction bypass the cache entirely: uncommitted state
// must be neither served from nor written into it. Every write invalidates
// the repository's whole key space.
type cachedDocumentRepo struct {
	inner DocumentRepo
	store cache.Store
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachedDocumentRepo(inner DocumentRepo, store cache.Store, ttl time.Duration, baseLog *logger.Logger) DocumentRepo {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &cachedDocumentRepo{
		inner: inner,
		store: store,
		ttl:   ttl,
		log:   baseLog.With("repo", "document_cached"),
	}
}

const cachedRepoName = "document"

// cachedRead serves dest from the store when possible, otherwise runs fetch
// and stores the result. Cache failures degrade to the fetch path.
func cachedRead[T any](c *cachedDocumentRepo, dc dbctx.Context, method string, fetch func() (T, error), args ...any) (T, error) {
	var zero T
	if dc.Tx != nil || c.store == nil {
		return fetch()
	}
	key := cache.Key(cachedRepoName, method, args...)
	if raw, ok := c.store.Get(dc.Ctx, key); ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		c.log.Warn("dropping undecodable cache entry", "method", method)
	}
	result, err := fetch()
	if err != nil {
		return zero, err
	}
	if raw, err := json.Marshal(result); err == nil {
		c.store.Set(dc.Ctx, key, raw, c.ttl)
	}
	return result, nil
}

func (c *cachedDocumentRepo) invalidate(dc dbctx.Context) {
	if c.store != nil {
		c.store.InvalidatePrefix(dc.Ctx, cache.Prefix(cachedRepoName))
	}
}

func (c *cachedDocumentRepo) FindByID(dc dbctx.Context, id any) (*types.Document, error) {
	return cachedRead(c, dc, "FindByID", func() (*types.Document, error) {
		return c.inner.FindByID(dc, id)
	}, id)
}

func (c *cachedDocumentRepo) FindMany(dc dbctx.Context, criteria map[string]any, opts QueryOptions) ([]*types.Document, error) {
	return cachedRead(c, dc, "FindMany", func() ([]*types.Document, error) {
		return c.inner.FindMany(dc, criteria, opts)
	}, criteria, opts)
}

func (c *cachedDocumentRepo) Count(dc dbctx.Context, criteria map[string]any) (int64, error) {
	return cachedRead(c, dc, "Count", func() (int64, error) {
		return c.inner.Count(dc, criteria)
	}, criteria)
}

func (c *cachedDocumentRepo) FindByOrganization(dc dbctx.Context, orgID uint, opts FindDocumentsOptions) ([]*types.Document, error) {
	return cachedRead(c, dc, "FindByOrganization", func() ([]*types.Document, error) {
		return c.inner.FindByOrganization(dc, orgID, opts)
	}, orgID, opts)
}

func (c *cachedDocumentRepo) FindByOwner(dc dbctx.Context, ownerID uint, opts FindDocumentsOptions) ([]*types.Document, error) {
	return cachedRead(c, dc, "FindByOwner", func() ([]*types.Document, error) {
		return c.inner.FindByOwner(dc, ownerID, opts)
	}, ownerID, opts)
}

func (c *cachedDocumentRepo) FindByStatus(dc dbctx.Context, orgID uint, status string, opts FindDocumentsOptions) ([]*types.Document, error) {
	return cachedRead(c, dc, "FindByStatus", func() ([]*types.Document, error) {
		return c.inner.FindByStatus(dc, orgID, status, opts)
	}, orgID, status, opts)
}

func (c *cachedDocumentRepo) FindByContentHash(dc dbctx.Context, contentHash string) (*types.Document, error) {
	return cachedRead(c, dc, "FindByContentHash", func() (*types.Document, error) {
		return c.inner.FindByContentHash(dc, contentHash)
	}, contentHash)
}

func (c *cachedDocumentRepo) Search(dc dbctx.Context, orgID uint, query string, opts FindDocumentsOptions) ([]*types.Document, error) {
	return cachedRead(c, dc, "Search", func() ([]*types.Document, error) {
		return c.inner.Search(dc, orgID, query, opts)
	}, orgID, query, opts)
}

func (c *cachedDocumentRepo) FindByTopic(dc dbctx.Context, topicID uuid.UUID, opts FindDocumentsOptions) ([]*types.Document, error) {
	return cachedRead(c, dc, "FindByTopic", func() ([]*types.Document, error) {
		return c.inner.FindByTopic(dc, topicID, opts)
	}, topicID, opts)
}

func (c *cachedDocumentRepo) FindRelatedDocuments(dc dbctx.Context, documentID uuid.UUID, maxDepth int) ([]*types.Document, error) {
	return cachedRead(c, dc, "FindRelatedDocuments", func() ([]*types.Document, error) {
		return c.inner.FindRelatedDocuments(dc, documentID, maxDepth)
	}, documentID, maxDepth)
}

func (c *cachedDocumentRepo) FindVersions(dc dbctx.Context, documentID uuid.UUID) ([]*types.DocumentVersion, error) {
	return cachedRead(c, dc, "FindVersions", func() ([]*types.DocumentVersion, error) {
		return c.inner.FindVersions(dc, documentID)
	}, documentID)
}

func (c *cachedDocumentRepo) FindSummaries(dc dbctx.Context, documentID uuid.UUID) ([]*types.Summary, error) {
	return cachedRead(c, dc, "FindSummaries", func() ([]*types.Summary, error) {
		return c.inner.FindSummaries(dc, documentID)
	}, documentID)
}

func (c *cachedDocumentRepo) Create(dc dbctx.Context, doc *types.Document) error {
	if err := c.inner.Create(dc, doc); err != nil {
		return err
	}
	c.invalidate(dc)
	return nil
}

func (c *cachedDocumentRepo) Update(dc dbctx.Context, id any, patch map[string]any) (*types.Document, error) {
	doc, err := c.inner.Update(dc, id, patch)
	if err != nil {
		return nil, err
	}
	c.invalidate(dc)
	return doc, nil
}

func (c *cachedDocumentRepo) Delete(dc dbctx.Context, id any) (bool, error) {
	deleted, err := c.inner.Delete(dc, id)
	if err != nil {
		return false, err
	}
	if deleted {
		c.invalidate(dc)
	}
	return deleted, nil
}

func (c *cachedDocumentRepo) CreateWithSummary(dc dbctx.Context, doc *types.Document, summary *types.Summary) error {
	if err := c.inner.CreateWithSummary(dc, doc, summary); err != nil {
		return err
	}
	c.invalidate(dc)
	return nil
}

func (c *cachedDocumentRepo) AddSummary(dc dbctx.Context, summary *types.Summary) error {
	if err := c.inner.AddSummary(dc, summary); err != nil {
		return err
	}
	c.invalidate(dc)
	return nil
}

func (c *cachedDocumentRepo) UpdateWithVersion(dc dbctx.Context, id uuid.UUID, patch map[string]any, modifiedByID uint, changeDescription string) (*types.Document, error) {
	doc, err := c.inner.UpdateWithVersion(dc, id, patch, modifiedByID, changeDescription)
	if err != nil {
		return nil, err
	}
	c.invalidate(dc)
	return doc, nil
}
