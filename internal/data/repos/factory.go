package repos

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/axai-ai/docstore/internal/data/cache"
	"github.com/axai-ai/docstore/internal/observability"
	"github.com/axai-ai/docstore/internal/platform/envutil"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

// Factory hands out repositories, one instance per type for the lifetime of
// the factory. The document repository comes fully composed: instrumentation
// wrapping caching wrapping the plain repository.
type Factory struct {
	db      *gorm.DB
	store   cache.Store
	metrics *observability.Metrics
	log     *logger.Logger

	mu       sync.Mutex
	document DocumentRepo
	orgs     OrganizationRepo
	users    UserRepo
	topics   TopicRepo
	nodes    GraphNodeRepo
	edges    GraphRelationshipRepo
	clusters ClusterRepo
}

func NewFactory(db *gorm.DB, store cache.Store, metrics *observability.Metrics, baseLog *logger.Logger) *Factory {
	return &Factory{db: db, store: store, metrics: metrics, log: baseLog}
}

func (f *Factory) Document() DocumentRepo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.document == nil {
		ttl := envutil.Duration("CACHE_TTL", 60*time.Second)
		repo := NewDocumentRepo(f.db, f.log)
		if f.store != nil {
			repo = NewCachedDocumentRepo(repo, f.store, ttl, f.log)
		}
		f.document = NewInstrumentedDocumentRepo(repo, f.metrics, f.log)
	}
	return f.document
}

func (f *Factory) Organization() OrganizationRepo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orgs == nil {
		f.orgs = NewOrganizationRepo(f.db, f.log)
	}
	return f.orgs
}

func (f *Factory) User() UserRepo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users == nil {
		f.users = NewUserRepo(f.db, f.log)
	}
	return f.users
}

func (f *Factory) Topic() TopicRepo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.topics == nil {
		f.topics = NewTopicRepo(f.db, f.log)
	}
	return f.topics
}

func (f *Factory) GraphNode() GraphNodeRepo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nodes == nil {
		f.nodes = NewGraphNodeRepo(f.db, f.log)
	}
	return f.nodes
}

func (f *Factory) GraphRelationship() GraphRelationshipRepo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.edges == nil {
		f.edges = NewGraphRelationshipRepo(f.db, f.log)
	}
	return f.edges
}

func (f *Factory) Cluster() ClusterRepo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clusters == nil {
		f.clusters = NewClusterRepo(f.db, f.log)
	}
	return f.clusters
}
