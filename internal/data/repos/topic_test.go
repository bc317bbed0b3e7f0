package repos

import (
	"context"
	"errors"
	"testing"

	"github.com/axai-ai/docstore/internal/data/dberr"
	"github.com/axai-ai/docstore/internal/data/repos/testutil"
	types "github.com/axai-ai/docstore/internal/domain"
	"github.com/axai-ai/docstore/internal/pkg/dbctx"
)

func TestTopicHierarchy(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dc := dbctx.WithTx(ctx, tx)

	repo := NewTopicRepo(db, testutil.Logger(t))

	root := &types.Topic{Name: "hier-finance", IsActive: true}
	if err := repo.Create(dc, root); err != nil {
		t.Fatalf("Create root: %v", err)
	}
	child := &types.Topic{Name: "hier-accounting", ParentTopicID: &root.ID, IsActive: true}
	if err := repo.Create(dc, child); err != nil {
		t.Fatalf("Create child: %v", err)
	}

	roots, err := repo.FindRoots(dc, QueryOptions{})
	if err != nil {
		t.Fatalf("FindRoots: %v", err)
	}
	var sawRoot bool
	for _, topic := range roots {
		if topic.ID == root.ID {
			sawRoot = true
		}
		if topic.ID == child.ID {
			t.Fatal("child topic listed as root")
		}
	}
	if !sawRoot {
		t.Fatal("root topic missing from FindRoots")
	}

	children, err := repo.FindChildren(dc, root.ID, QueryOptions{})
	if err != nil {
		t.Fatalf("FindChildren: %v", err)
	}
	if len(children) != 1 || children[0].ID != child.ID {
		t.Fatalf("FindChildren = %+v", children)
	}
}

func TestTopicUniqueName(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dc := dbctx.WithTx(context.Background(), tx)

	repo := NewTopicRepo(db, testutil.Logger(t))
	if err := repo.Create(dc, &types.Topic{Name: "unique-topic", IsActive: true}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(dc, &types.Topic{Name: "unique-topic", IsActive: true})
	if !errors.Is(err, dberr.ErrDuplicateEntry) {
		t.Fatalf("duplicate name err = %v, want ErrDuplicateEntry", err)
	}
}

func TestTopicAttachDetachDocument(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dc := dbctx.WithTx(ctx, tx)

	org := testutil.SeedOrg(t, ctx, tx, "attach-org")
	owner := testutil.SeedUser(t, ctx, tx, org.ID, "attach-user")
	doc := testutil.SeedDocument(t, ctx, tx, org.ID, owner.ID, "attach-doc")
	topic := testutil.SeedTopic(t, ctx, tx, "attach-topic")

	repo := NewTopicRepo(db, testutil.Logger(t))
	link := &types.DocumentTopic{
		DocumentID: doc.ID, TopicID: topic.ID, RelevanceScore: 0.8, ExtractedByTool: "test",
	}
	if err := repo.AttachDocument(dc, link); err != nil {
		t.Fatalf("AttachDocument: %v", err)
	}

	err := repo.AttachDocument(dc, &types.DocumentTopic{
		DocumentID: doc.ID, TopicID: topic.ID, RelevanceScore: 0.9, ExtractedByTool: "test",
	})
	if !errors.Is(err, dberr.ErrDuplicateEntry) {
		t.Fatalf("re-attach err = %v, want ErrDuplicateEntry", err)
	}

	links, err := repo.FindDocumentLinks(dc, topic.ID, QueryOptions{})
	if err != nil {
		t.Fatalf("FindDocumentLinks: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("link count = %d, want 1", len(links))
	}

	detached, err := repo.DetachDocument(dc, doc.ID, topic.ID)
	if err != nil {
		t.Fatalf("DetachDocument: %v", err)
	}
	if !detached {
		t.Fatal("DetachDocument should report true")
	}
}
