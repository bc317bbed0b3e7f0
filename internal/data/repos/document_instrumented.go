package repos

import (
	"time"

	"github.com/google/uuid"

	types "github.com/axai-ai/docstore/internal/domain"
	"github.com/axai-ai/docstore/internal/observability"
	"github.com/axai-ai/docstore/internal/pkg/dbctx"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

// instrumentedDocumentRepo records per-operation counts, errors and latency
// around an inner DocumentRepo, and logs operations slower than the
// configured threshold.
type instrumentedDocumentRepo struct {
	inner   DocumentRepo
	metrics *observability.Metrics
	log     *logger.Logger
}

func NewInstrumentedDocumentRepo(inner DocumentRepo, metrics *observability.Metrics, baseLog *logger.Logger) DocumentRepo {
	if inner == nil {
		return nil
	}
	return &instrumentedDocumentRepo{
		inner:   inner,
		metrics: metrics,
		log:     baseLog.With("repo", "document_instrumented"),
	}
}

func (s *instrumentedDocumentRepo) observe(operation string, err error, dur time.Duration) {
	s.metrics.ObserveRepoOp(cachedRepoName, operation, err, dur)
	if threshold := s.metrics.SlowOpThreshold(); threshold > 0 && dur.Seconds() > threshold {
		s.log.Warn("slow repository operation", "operation", operation, "duration_ms", dur.Milliseconds())
	}
}

func (s *instrumentedDocumentRepo) FindByID(dc dbctx.Context, id any) (*types.Document, error) {
	start := time.Now()
	out, err := s.inner.FindByID(dc, id)
	s.observe("FindByID", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) FindMany(dc dbctx.Context, criteria map[string]any, opts QueryOptions) ([]*types.Document, error) {
	start := time.Now()
	out, err := s.inner.FindMany(dc, criteria, opts)
	s.observe("FindMany", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) Create(dc dbctx.Context, doc *types.Document) error {
	start := time.Now()
	err := s.inner.Create(dc, doc)
	s.observe("Create", err, time.Since(start))
	return err
}

func (s *instrumentedDocumentRepo) Update(dc dbctx.Context, id any, patch map[string]any) (*types.Document, error) {
	start := time.Now()
	out, err := s.inner.Update(dc, id, patch)
	s.observe("Update", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) Delete(dc dbctx.Context, id any) (bool, error) {
	start := time.Now()
	out, err := s.inner.Delete(dc, id)
	s.observe("Delete", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) Count(dc dbctx.Context, criteria map[string]any) (int64, error) {
	start := time.Now()
	out, err := s.inner.Count(dc, criteria)
	s.observe("Count", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) FindByOrganization(dc dbctx.Context, orgID uint, opts FindDocumentsOptions) ([]*types.Document, error) {
	start := time.Now()
	out, err := s.inner.FindByOrganization(dc, orgID, opts)
	s.observe("FindByOrganization", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) FindByOwner(dc dbctx.Context, ownerID uint, opts FindDocumentsOptions) ([]*types.Document, error) {
	start := time.Now()
	out, err := s.inner.FindByOwner(dc, ownerID, opts)
	s.observe("FindByOwner", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) FindByStatus(dc dbctx.Context, orgID uint, status string, opts FindDocumentsOptions) ([]*types.Document, error) {
	start := time.Now()
	out, err := s.inner.FindByStatus(dc, orgID, status, opts)
	s.observe("FindByStatus", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) FindByContentHash(dc dbctx.Context, contentHash string) (*types.Document, error) {
	start := time.Now()
	out, err := s.inner.FindByContentHash(dc, contentHash)
	s.observe("FindByContentHash", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) Search(dc dbctx.Context, orgID uint, query string, opts FindDocumentsOptions) ([]*types.Document, error) {
	start := time.Now()
	out, err := s.inner.Search(dc, orgID, query, opts)
	s.observe("Search", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) FindByTopic(dc dbctx.Context, topicID uuid.UUID, opts FindDocumentsOptions) ([]*types.Document, error) {
	start := time.Now()
	out, err := s.inner.FindByTopic(dc, topicID, opts)
	s.observe("FindByTopic", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) FindRelatedDocuments(dc dbctx.Context, documentID uuid.UUID, maxDepth int) ([]*types.Document, error) {
	start := time.Now()
	out, err := s.inner.FindRelatedDocuments(dc, documentID, maxDepth)
	s.observe("FindRelatedDocuments", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) FindVersions(dc dbctx.Context, documentID uuid.UUID) ([]*types.DocumentVersion, error) {
	start := time.Now()
	out, err := s.inner.FindVersions(dc, documentID)
	s.observe("FindVersions", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) CreateWithSummary(dc dbctx.Context, doc *types.Document, summary *types.Summary) error {
	start := time.Now()
	err := s.inner.CreateWithSummary(dc, doc, summary)
	s.observe("CreateWithSummary", err, time.Since(start))
	return err
}

func (s *instrumentedDocumentRepo) AddSummary(dc dbctx.Context, summary *types.Summary) error {
	start := time.Now()
	err := s.inner.AddSummary(dc, summary)
	s.observe("AddSummary", err, time.Since(start))
	return err
}

func (s *instrumentedDocumentRepo) FindSummaries(dc dbctx.Context, documentID uuid.UUID) ([]*types.Summary, error) {
	start := time.Now()
	out, err := s.inner.FindSummaries(dc, documentID)
	s.observe("FindSummaries", err, time.Since(start))
	return out, err
}

func (s *instrumentedDocumentRepo) UpdateWithVersion(dc dbctx.Context, id uuid.UUID, patch map[string]any, modifiedByID uint, changeDescription string) (*types.Document, error) {
	start := time.Now()
	out, err := s.inner.UpdateWithVersion(dc, id, patch, modifiedByID, changeDescription)
	s.observe("UpdateWithVersion", err, time.Since(start))
	return out, err
}
