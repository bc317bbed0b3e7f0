package repos

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/axai-ai/docstore/internal/data/dberr"
	"github.com/axai-ai/docstore/internal/data/repos/testutil"
	types "github.com/axai-ai/docstore/internal/domain"
	"github.com/axai-ai/docstore/internal/pkg/dbctx"
)

func TestEnsureNodeIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dc := dbctx.WithTx(ctx, tx)

	org := testutil.SeedOrg(t, ctx, tx, "graph-org")
	owner := testutil.SeedUser(t, ctx, tx, org.ID, "graph-user")
	doc := testutil.SeedDocument(t, ctx, tx, org.ID, owner.ID, "graph-doc")

	repo := NewGraphNodeRepo(db, testutil.Logger(t))

	first, err := repo.EnsureNode(dc, &types.GraphNode{
		NodeType:      "concept",
		Name:          "databases",
		DocumentID:    &doc.ID,
		CreatedByTool: "extractor",
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("EnsureNode: %v", err)
	}

	second, err := repo.EnsureNode(dc, &types.GraphNode{
		NodeType:      "concept",
		Name:          "databases",
		DocumentID:    &doc.ID,
		CreatedByTool: "extractor-rerun",
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("EnsureNode rerun: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("rerun created a new node: %s vs %s", second.ID, first.ID)
	}

	count, err := repo.Count(dc, map[string]any{"node_type": "concept", "name": "databases"})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("node count = %d, want 1", count)
	}
}

func TestEnsureNodeScopedByDocument(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dc := dbctx.WithTx(ctx, tx)

	org := testutil.SeedOrg(t, ctx, tx, "graph-scope-org")
	owner := testutil.SeedUser(t, ctx, tx, org.ID, "graph-scope-user")
	docA := testutil.SeedDocument(t, ctx, tx, org.ID, owner.ID, "graph-scope-a")
	docB := testutil.SeedDocument(t, ctx, tx, org.ID, owner.ID, "graph-scope-b")

	repo := NewGraphNodeRepo(db, testutil.Logger(t))

	nodeA, err := repo.EnsureNode(dc, &types.GraphNode{
		NodeType: "concept", Name: "shared", DocumentID: &docA.ID,
		CreatedByTool: "extractor", IsActive: true,
	})
	if err != nil {
		t.Fatalf("EnsureNode docA: %v", err)
	}
	nodeB, err := repo.EnsureNode(dc, &types.GraphNode{
		NodeType: "concept", Name: "shared", DocumentID: &docB.ID,
		CreatedByTool: "extractor", IsActive: true,
	})
	if err != nil {
		t.Fatalf("EnsureNode docB: %v", err)
	}
	if nodeA.ID == nodeB.ID {
		t.Fatal("same-name nodes on different documents must be distinct")
	}
}

func TestRelationshipSelfLoopRejected(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dc := dbctx.WithTx(ctx, tx)

	org := testutil.SeedOrg(t, ctx, tx, "graph-loop-org")
	owner := testutil.SeedUser(t, ctx, tx, org.ID, "graph-loop-user")
	doc := testutil.SeedDocument(t, ctx, tx, org.ID, owner.ID, "graph-loop-doc")
	node := testutil.SeedGraphNode(t, ctx, tx, doc, "loop-node")

	repo := NewGraphRelationshipRepo(db, testutil.Logger(t))
	err := repo.Create(dc, &types.GraphRelationship{
		SourceNodeID:     node.ID,
		TargetNodeID:     node.ID,
		RelationshipType: "references",
		CreatedByTool:    "test",
		IsActive:         true,
	})
	if !errors.Is(err, dberr.ErrValidation) {
		t.Fatalf("self-loop err = %v, want ErrValidation", err)
	}
}

func TestDeactivateHidesNodeAndEdge(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dc := dbctx.WithTx(ctx, tx)

	org := testutil.SeedOrg(t, ctx, tx, "graph-deact-org")
	owner := testutil.SeedUser(t, ctx, tx, org.ID, "graph-deact-user")
	doc := testutil.SeedDocument(t, ctx, tx, org.ID, owner.ID, "graph-deact-doc")
	source := testutil.SeedGraphNode(t, ctx, tx, doc, "deact-source")
	target := testutil.SeedGraphNode(t, ctx, tx, nil, "deact-target")
	edge := testutil.SeedEdge(t, ctx, tx, source, target, true)

	nodes := NewGraphNodeRepo(db, testutil.Logger(t))
	edges := NewGraphRelationshipRepo(db, testutil.Logger(t))

	ok, err := edges.Deactivate(dc, edge.ID)
	if err != nil || !ok {
		t.Fatalf("Deactivate edge = %v, %v", ok, err)
	}
	active, err := edges.FindActiveByNodes(dc, []uuid.UUID{source.ID})
	if err != nil {
		t.Fatalf("FindActiveByNodes: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("deactivated edge still returned: %+v", active)
	}

	ok, err = nodes.Deactivate(dc, target.ID)
	if err != nil || !ok {
		t.Fatalf("Deactivate node = %v, %v", ok, err)
	}
	byType, err := nodes.FindByType(dc, "document", QueryOptions{})
	if err != nil {
		t.Fatalf("FindByType: %v", err)
	}
	for _, n := range byType {
		if n.ID == target.ID {
			t.Fatal("deactivated node still listed as active")
		}
	}
}
