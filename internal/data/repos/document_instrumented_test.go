package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/axai-ai/docstore/internal/data/repos/testutil"
	"github.com/axai-ai/docstore/internal/observability"
	"github.com/axai-ai/docstore/internal/pkg/dbctx"
)

func TestInstrumentedDocumentRepoRecordsOps(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dc := dbctx.WithTx(context.Background(), tx)

	metrics := observability.New()
	repo := NewInstrumentedDocumentRepo(NewDocumentRepo(db, testutil.Logger(t)), metrics, testutil.Logger(t))

	if _, err := repo.FindByID(dc, uuid.New()); err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if _, err := repo.Count(dc, nil); err != nil {
		t.Fatalf("Count: %v", err)
	}

	snap := metrics.Snapshot()
	if snap.RepoTotal != 2 {
		t.Fatalf("RepoTotal = %v, want 2", snap.RepoTotal)
	}
	key := `{repository="document",operation="FindByID",status="ok"}`
	if snap.Operations[key] != 1 {
		t.Fatalf("Operations[%s] = %v, want 1", key, snap.Operations[key])
	}
}

func TestInstrumentedDocumentRepoNilMetrics(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dc := dbctx.WithTx(context.Background(), tx)

	repo := NewInstrumentedDocumentRepo(NewDocumentRepo(db, testutil.Logger(t)), nil, testutil.Logger(t))
	if _, err := repo.FindByID(dc, uuid.New()); err != nil {
		t.Fatalf("FindByID with nil metrics: %v", err)
	}
}
