package observability

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestObserveRepoOpCounts(t *testing.T) {
	m := New()
	m.ObserveRepoOp("document", "FindByID", nil, 5*time.Millisecond)
	m.ObserveRepoOp("document", "FindByID", nil, 5*time.Millisecond)
	m.ObserveRepoOp("document", "Create", errors.New("boom"), 5*time.Millisecond)

	snap := m.Snapshot()
	if snap.RepoTotal != 3 {
		t.Fatalf("RepoTotal = %v, want 3", snap.RepoTotal)
	}
	if snap.RepoErrors != 1 {
		t.Fatalf("RepoErrors = %v, want 1", snap.RepoErrors)
	}
	key := `{repository="document",operation="FindByID",status="ok"}`
	if snap.Operations[key] != 2 {
		t.Fatalf("Operations[%s] = %v, want 2", key, snap.Operations[key])
	}
}

func TestObserveRepoOpSlowThreshold(t *testing.T) {
	m := New()
	m.slowOpThreshold = 0.01
	m.ObserveRepoOp("document", "Search", nil, 50*time.Millisecond)
	m.ObserveRepoOp("document", "Search", nil, time.Millisecond)

	if got := m.Snapshot().RepoSlow; got != 1 {
		t.Fatalf("RepoSlow = %v, want 1", got)
	}
}

func TestObserveTransaction(t *testing.T) {
	m := New()
	m.ObserveTransaction(nil, time.Millisecond)
	m.ObserveTransaction(errors.New("rollback"), time.Millisecond)

	snap := m.Snapshot()
	if snap.TxTotal != 2 || snap.TxErrors != 1 {
		t.Fatalf("tx counts = %v/%v, want 2/1", snap.TxTotal, snap.TxErrors)
	}

	m.Reset()
	if snap := m.Snapshot(); snap.TxTotal != 0 || snap.RepoTotal != 0 {
		t.Fatalf("counters survived Reset: %+v", snap)
	}
}

func TestWritePrometheus(t *testing.T) {
	m := New()
	m.ObserveRepoOp("document", "FindByID", nil, 5*time.Millisecond)

	var b strings.Builder
	if err := m.WritePrometheus(&b); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := b.String()
	for _, want := range []string{
		"# TYPE ds_repo_operations_total counter",
		"# TYPE ds_repo_operation_duration_seconds histogram",
		`ds_repo_operations_total{repository="document",operation="FindByID",status="ok"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q:\n%s", want, out)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRepoOp("document", "FindByID", nil, time.Millisecond)
	m.ObserveTransaction(nil, time.Millisecond)
	if err := m.WritePrometheus(&strings.Builder{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
	if snap := m.Snapshot(); snap.RepoTotal != 0 {
		t.Fatalf("nil snapshot should be zero, got %+v", snap)
	}
}
