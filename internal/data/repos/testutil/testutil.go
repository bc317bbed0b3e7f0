// Package testutil provides the shared database and fixtures for repository
// tests. By default tests run against an in-memory SQLite database; set
// TEST_POSTGRES_DSN to exercise the Postgres paths (locking, ILIKE,
// SQLSTATE translation) against a real server.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/axai-ai/docstore/internal/data/db"
	types "github.com/axai-ai/docstore/internal/domain"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

var (
	dbOnce sync.Once
	shared *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns the shared test database with the full schema built. The
// handle is shared across the package; tests isolate themselves with Tx.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		cfg := &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		}
		if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
			shared, dbErr = gorm.Open(postgres.Open(dsn), cfg)
		} else {
			// _foreign_keys turns on constraint enforcement per connection;
			// without it SQLite ignores the declared cascades entirely.
			shared, dbErr = gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=on"), cfg)
		}
		if dbErr != nil {
			return
		}
		builder := db.NewSchemaBuilder(shared, logger.NewNop())
		dbErr = builder.BuildCompleteSchema(context.Background())
	})

	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return shared
}

// Tx begins a transaction that rolls back when the test finishes, so tests
// never leak rows into the shared database.
func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func SeedOrg(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Organization {
	tb.Helper()
	org := &types.Organization{Name: name}
	if err := tx.WithContext(ctx).Create(org).Error; err != nil {
		tb.Fatalf("seed org: %v", err)
	}
	return org
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uint, username string) *types.User {
	tb.Helper()
	u := &types.User{
		Username: username,
		Email:    username + "@example.com",
		OrgID:    orgID,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID, ownerID uint, title string) *types.Document {
	tb.Helper()
	doc := &types.Document{
		Title:        title,
		Content:      "body of " + title,
		OwnerID:      ownerID,
		OrgID:        orgID,
		DocumentType: "report",
		Status:       types.DocumentStatusDraft,
		Version:      1,
	}
	if err := tx.WithContext(ctx).Create(doc).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return doc
}

func SeedTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Topic {
	tb.Helper()
	topic := &types.Topic{Name: name, IsActive: true}
	if err := tx.WithContext(ctx).Create(topic).Error; err != nil {
		tb.Fatalf("seed topic: %v", err)
	}
	return topic
}

func SeedGraphNode(tb testing.TB, ctx context.Context, tx *gorm.DB, doc *types.Document, name string) *types.GraphNode {
	tb.Helper()
	node := &types.GraphNode{
		NodeType:      "document",
		Name:          name,
		CreatedByTool: "test",
		IsActive:      true,
	}
	if doc != nil {
		node.DocumentID = &doc.ID
	}
	if err := tx.WithContext(ctx).Create(node).Error; err != nil {
		tb.Fatalf("seed graph node: %v", err)
	}
	return node
}

func SeedEdge(tb testing.TB, ctx context.Context, tx *gorm.DB, source, target *types.GraphNode, directed bool) *types.GraphRelationship {
	tb.Helper()
	rel := &types.GraphRelationship{
		SourceNodeID:     source.ID,
		TargetNodeID:     target.ID,
		RelationshipType: "references",
		IsDirected:       directed,
		CreatedByTool:    "test",
		IsActive:         true,
	}
	if err := tx.WithContext(ctx).Create(rel).Error; err != nil {
		tb.Fatalf("seed edge: %v", err)
	}
	return rel
}
