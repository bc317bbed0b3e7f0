package repos

import (
	"context"
	"testing"
	"time"

	"github.com/axai-ai/docstore/internal/data/cache"
	"github.com/axai-ai/docstore/internal/data/repos/testutil"
	types "github.com/axai-ai/docstore/internal/domain"
	"github.com/axai-ai/docstore/internal/pkg/dbctx"
)

func TestCachedDocumentRepoReadThrough(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dc := dbctx.New(ctx)

	org := testutil.SeedOrg(t, ctx, db, "cache-rt-org")
	owner := testutil.SeedUser(t, ctx, db, org.ID, "cache-rt-user")
	doc := testutil.SeedDocument(t, ctx, db, org.ID, owner.ID, "cache-rt-doc")
	t.Cleanup(func() {
		db.Delete(doc)
		db.Delete(owner)
		db.Delete(org)
	})

	store := cache.NewMemory(100)
	repo := NewCachedDocumentRepo(NewDocumentRepo(db, testutil.Logger(t)), store, time.Minute, testutil.Logger(t))

	for i := 0; i < 2; i++ {
		docs, err := repo.FindByOrganization(dc, org.ID, FindDocumentsOptions{})
		if err != nil {
			t.Fatalf("FindByOrganization #%d: %v", i+1, err)
		}
		if len(docs) != 1 || docs[0].ID != doc.ID {
			t.Fatalf("FindByOrganization #%d = %+v", i+1, docs)
		}
	}

	stats := store.Stats()
	if stats.Hits != 1 {
		t.Fatalf("cache hits = %d, want 1 (second read served from cache)", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Fatalf("cache misses = %d, want 1", stats.Misses)
	}
}

func TestCachedDocumentRepoInvalidatesOnWrite(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dc := dbctx.New(ctx)

	org := testutil.SeedOrg(t, ctx, db, "cache-inv-org")
	owner := testutil.SeedUser(t, ctx, db, org.ID, "cache-inv-user")
	t.Cleanup(func() {
		db.Where("org_id = ?", org.ID).Delete(&types.Document{})
		db.Delete(owner)
		db.Delete(org)
	})

	store := cache.NewMemory(100)
	repo := NewCachedDocumentRepo(NewDocumentRepo(db, testutil.Logger(t)), store, time.Minute, testutil.Logger(t))

	docs, err := repo.FindByOrganization(dc, org.ID, FindDocumentsOptions{})
	if err != nil {
		t.Fatalf("warm read: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("warm read = %+v, want empty", docs)
	}

	newDoc := &types.Document{
		Title: "cache-inv-doc", OwnerID: owner.ID, OrgID: org.ID, DocumentType: "report",
	}
	if err := repo.Create(dc, newDoc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	docs, err = repo.FindByOrganization(dc, org.ID, FindDocumentsOptions{})
	if err != nil {
		t.Fatalf("read after write: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != newDoc.ID {
		t.Fatal("write did not invalidate the cached list")
	}
}

func TestCachedDocumentRepoBypassesCacheInTransaction(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dc := dbctx.WithTx(ctx, tx)

	org := testutil.SeedOrg(t, ctx, tx, "cache-tx-org")
	owner := testutil.SeedUser(t, ctx, tx, org.ID, "cache-tx-user")
	testutil.SeedDocument(t, ctx, tx, org.ID, owner.ID, "cache-tx-doc")

	store := cache.NewMemory(100)
	repo := NewCachedDocumentRepo(NewDocumentRepo(db, testutil.Logger(t)), store, time.Minute, testutil.Logger(t))

	if _, err := repo.FindByOrganization(dc, org.ID, FindDocumentsOptions{}); err != nil {
		t.Fatalf("FindByOrganization: %v", err)
	}
	if stats := store.Stats(); stats.Entries != 0 || stats.Hits != 0 || stats.Misses != 0 {
		t.Fatalf("transactional read touched the cache: %+v", stats)
	}
}
