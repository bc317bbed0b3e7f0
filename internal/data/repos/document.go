package repos

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/axai-ai/docstore/internal/data/dberr"
	types "github.com/axai-ai/docstore/internal/domain"
	"github.com/axai-ai/docstore/internal/pkg/dbctx"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

// MaxTraversalDepth caps FindRelatedDocuments regardless of what the caller
// asks for.
const MaxTraversalDepth = 3

// FindDocumentsOptions tunes document list reads.
type FindDocumentsOptions struct {
	Limit            int
	Offset           int
	IncludeSummaries bool
	IncludeTopics    bool
}

type DocumentRepo interface {
	FindByID(dc dbctx.Context, id any) (*types.Document, error)
	FindMany(dc dbctx.Context, criteria map[string]any, opts QueryOptions) ([]*types.Document, error)
	Create(dc dbctx.Context, doc *types.Document) error
	Update(dc dbctx.Context, id any, patch map[string]any) (*types.Document, error)
	Delete(dc dbctx.Context, id any) (bool, error)
	Count(dc dbctx.Context, criteria map[string]any) (int64, error)

	FindByOrganization(dc dbctx.Context, orgID uint, opts FindDocumentsOptions) ([]*types.Document, error)
	FindByOwner(dc dbctx.Context, ownerID uint, opts FindDocumentsOptions) ([]*types.Document, error)
	FindByStatus(dc dbctx.Context, orgID uint, status string, opts FindDocumentsOptions) ([]*types.Document, error)
	FindByContentHash(dc dbctx.Context, contentHash string) (*types.Document, error)
	Search(dc dbctx.Context, orgID uint, query string, opts FindDocumentsOptions) ([]*types.Document, error)
	FindByTopic(dc dbctx.Context, topicID uuid.UUID, opts FindDocumentsOptions) ([]*types.Document, error)
	FindRelatedDocuments(dc dbctx.Context, documentID uuid.UUID, maxDepth int) ([]*types.Document, error)
	FindVersions(dc dbctx.Context, documentID uuid.UUID) ([]*types.DocumentVersion, error)

	CreateWithSummary(dc dbctx.Context, doc *types.Document, summary *types.Summary) error
	AddSummary(dc dbctx.Context, summary *types.Summary) error
	FindSummaries(dc dbctx.Context, documentID uuid.UUID) ([]*types.Summary, error)
	UpdateWithVersion(dc dbctx.Context, id uuid.UUID, patch map[string]any, modifiedByID uint, changeDescription string) (*types.Document, error)
}

type documentRepo struct {
	*Base[types.Document]
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{Base: NewBase[types.Document]("document", db, baseLog)}
}

// listQuery applies the canonical document ordering: newest first, with id
// as a stable tie-break for equal timestamps.
func (r *documentRepo) listQuery(dc dbctx.Context, opts FindDocumentsOptions) *gorm.DB {
	q := r.conn(dc).Order("documents.created_at DESC").Order("documents.id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if opts.IncludeSummaries {
		q = q.Preload("Summaries")
	}
	if opts.IncludeTopics {
		q = q.Preload("Topics")
	}
	return q
}

func (r *documentRepo) FindByOrganization(dc dbctx.Context, orgID uint, opts FindDocumentsOptions) ([]*types.Document, error) {
	var docs []*types.Document
	if err := r.listQuery(dc, opts).Where("org_id = ?", orgID).Find(&docs).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return docs, nil
}

func (r *documentRepo) FindByOwner(dc dbctx.Context, ownerID uint, opts FindDocumentsOptions) ([]*types.Document, error) {
	var docs []*types.Document
	if err := r.listQuery(dc, opts).Where("owner_id = ?", ownerID).Find(&docs).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return docs, nil
}

func (r *documentRepo) FindByStatus(dc dbctx.Context, orgID uint, status string, opts FindDocumentsOptions) ([]*types.Document, error) {
	var docs []*types.Document
	if err := r.listQuery(dc, opts).
		Where("org_id = ? AND status = ?", orgID, status).
		Find(&docs).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return docs, nil
}

func (r *documentRepo) FindByContentHash(dc dbctx.Context, contentHash string) (*types.Document, error) {
	var doc types.Document
	if err := r.conn(dc).Where("content_hash = ?", contentHash).First(&doc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, dberr.Translate(err)
	}
	return &doc, nil
}

// Search matches title or content case-insensitively, always scoped to one
// organization. The query string is treated as a literal, not a pattern.
func (r *documentRepo) Search(dc dbctx.Context, orgID uint, query string, opts FindDocumentsOptions) ([]*types.Document, error) {
	pattern := "%" + escapeLike(query) + "%"
	q := r.listQuery(dc, opts).Where("org_id = ?", orgID)
	// SQLite LIKE has no default escape character, so the clause is explicit
	// on every dialect.
	if r.DB().Dialector.Name() == "postgres" {
		q = q.Where(`title ILIKE ? ESCAPE '\' OR content ILIKE ? ESCAPE '\'`, pattern, pattern)
	} else {
		lower := strings.ToLower(pattern)
		q = q.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\'`, lower, lower)
	}
	var docs []*types.Document
	if err := q.Find(&docs).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return docs, nil
}

func (r *documentRepo) FindByTopic(dc dbctx.Context, topicID uuid.UUID, opts FindDocumentsOptions) ([]*types.Document, error) {
	var docs []*types.Document
	if err := r.listQuery(dc, opts).
		Joins("JOIN document_topics ON document_topics.document_id = documents.id").
		Where("document_topics.topic_id = ?", topicID).
		Find(&docs).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return docs, nil
}

// FindRelatedDocuments walks the graph overlay outward from the given
// document's nodes, breadth-first, up to maxDepth hops (capped at
// MaxTraversalDepth). Directed edges are followed source to target only;
// undirected edges both ways; inactive nodes and edges are skipped. The
// result is the distinct documents reachable through visited nodes, the
// starting document excluded.
func (r *documentRepo) FindRelatedDocuments(dc dbctx.Context, documentID uuid.UUID, maxDepth int) ([]*types.Document, error) {
	if maxDepth <= 0 || maxDepth > MaxTraversalDepth {
		maxDepth = MaxTraversalDepth
	}

	var startNodes []*types.GraphNode
	if err := r.conn(dc).
		Where("document_id = ? AND is_active = ?", documentID, true).
		Find(&startNodes).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	if len(startNodes) == 0 {
		return []*types.Document{}, nil
	}

	visited := make(map[uuid.UUID]bool, len(startNodes))
	frontier := make([]uuid.UUID, 0, len(startNodes))
	for _, n := range startNodes {
		visited[n.ID] = true
		frontier = append(frontier, n.ID)
	}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var edges []*types.GraphRelationship
		if err := r.conn(dc).
			Where("is_active = ?", true).
			Where("source_node_id IN ? OR target_node_id IN ?", frontier, frontier).
			Find(&edges).Error; err != nil {
			return nil, dberr.Translate(err)
		}

		inFrontier := make(map[uuid.UUID]bool, len(frontier))
		for _, id := range frontier {
			inFrontier[id] = true
		}

		next := make([]uuid.UUID, 0)
		for _, e := range edges {
			if inFrontier[e.SourceNodeID] && !visited[e.TargetNodeID] {
				visited[e.TargetNodeID] = true
				next = append(next, e.TargetNodeID)
			}
			if !e.IsDirected && inFrontier[e.TargetNodeID] && !visited[e.SourceNodeID] {
				visited[e.SourceNodeID] = true
				next = append(next, e.SourceNodeID)
			}
		}
		frontier = next
	}

	nodeIDs := make([]uuid.UUID, 0, len(visited))
	for id := range visited {
		nodeIDs = append(nodeIDs, id)
	}

	var docs []*types.Document
	if err := r.conn(dc).
		Joins("JOIN graph_nodes ON graph_nodes.document_id = documents.id").
		Where("graph_nodes.id IN ?", nodeIDs).
		Where("graph_nodes.is_active = ?", true).
		Where("documents.id <> ?", documentID).
		Distinct("documents.*").
		Order("documents.created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return docs, nil
}

func (r *documentRepo) FindVersions(dc dbctx.Context, documentID uuid.UUID) ([]*types.DocumentVersion, error) {
	var versions []*types.DocumentVersion
	if err := r.conn(dc).
		Where("document_id = ?", documentID).
		Order("version DESC").
		Find(&versions).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return versions, nil
}

// CreateWithSummary persists a document and its first summary as one unit.
// Either both rows commit or neither does.
func (r *documentRepo) CreateWithSummary(dc dbctx.Context, doc *types.Document, summary *types.Summary) error {
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %v", dberr.ErrValidation, err)
	}

	create := func(inner dbctx.Context) error {
		if err := r.conn(inner).Create(doc).Error; err != nil {
			return dberr.Translate(err)
		}
		summary.DocumentID = doc.ID
		if err := validate.Struct(summary); err != nil {
			return fmt.Errorf("%w: %v", dberr.ErrValidation, err)
		}
		if err := r.conn(inner).Create(summary).Error; err != nil {
			return dberr.Translate(err)
		}
		return nil
	}

	if dc.Tx != nil {
		return create(dc)
	}
	return r.Transaction(dc.Ctx, create)
}

func (r *documentRepo) AddSummary(dc dbctx.Context, summary *types.Summary) error {
	if err := validate.Struct(summary); err != nil {
		return fmt.Errorf("%w: %v", dberr.ErrValidation, err)
	}
	if err := r.conn(dc).Create(summary).Error; err != nil {
		return dberr.Translate(err)
	}
	return nil
}

func (r *documentRepo) FindSummaries(dc dbctx.Context, documentID uuid.UUID) ([]*types.Summary, error) {
	var summaries []*types.Summary
	if err := r.conn(dc).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Find(&summaries).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return summaries, nil
}

// UpdateWithVersion applies a tracked update: the document row is locked,
// its pre-update state is snapshotted into document_versions under the
// current version number, and the patch is applied with version bumped by
// exactly one. The caller's patch must not set version itself.
func (r *documentRepo) UpdateWithVersion(dc dbctx.Context, id uuid.UUID, patch map[string]any, modifiedByID uint, changeDescription string) (*types.Document, error) {
	if _, ok := patch["version"]; ok {
		return nil, fmt.Errorf("%w: version is managed by the repository", dberr.ErrValidation)
	}

	var updated *types.Document
	apply := func(inner dbctx.Context) error {
		q := r.conn(inner)
		if r.DB().Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var current types.Document
		if err := q.Where("id = ?", id).First(&current).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return dberr.ErrNotFound
			}
			return dberr.Translate(err)
		}

		snapshot := types.DocumentVersion{
			DocumentID:        current.ID,
			Version:           current.Version,
			Title:             current.Title,
			Content:           current.Content,
			Status:            current.Status,
			ModifiedByID:      modifiedByID,
			ChangeDescription: changeDescription,
			Metadata:          current.Metadata,
		}
		if err := r.conn(inner).Create(&snapshot).Error; err != nil {
			return dberr.Translate(err)
		}

		fields := make(map[string]any, len(patch)+1)
		for k, v := range patch {
			fields[k] = v
		}
		fields["version"] = current.Version + 1
		if err := r.conn(inner).
			Model(&types.Document{}).
			Where("id = ?", id).
			Updates(fields).Error; err != nil {
			return dberr.Translate(err)
		}

		var reloaded types.Document
		if err := r.conn(inner).Where("id = ?", id).First(&reloaded).Error; err != nil {
			return dberr.Translate(err)
		}
		updated = &reloaded
		return nil
	}

	var err error
	if dc.Tx != nil {
		err = apply(dc)
	} else {
		err = r.Transaction(dc.Ctx, apply)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// escapeLike neutralizes LIKE metacharacters in user-supplied search text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
