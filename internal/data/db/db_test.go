package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/axai-ai/docstore/internal/domain"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

func openTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return gdb
}

func TestSchemaBuilderIdempotent(t *testing.T) {
	gdb := openTestDB(t, "schema_idempotent")
	builder := NewSchemaBuilder(gdb, logger.NewNop())
	ctx := context.Background()

	if err := builder.BuildCompleteSchema(ctx); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if err := builder.BuildCompleteSchema(ctx); err != nil {
		t.Fatalf("second build should be a no-op: %v", err)
	}

	for _, model := range AllModels() {
		if !gdb.Migrator().HasTable(model) {
			t.Fatalf("table missing for %T", model)
		}
	}
}

func TestSchemaBuilderDrop(t *testing.T) {
	gdb := openTestDB(t, "schema_drop")
	builder := NewSchemaBuilder(gdb, logger.NewNop())
	ctx := context.Background()

	if err := builder.BuildCompleteSchema(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := builder.DropCompleteSchema(ctx); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if gdb.Migrator().HasTable(&types.Document{}) {
		t.Fatal("documents table survived drop")
	}
	// Dropping an absent schema must not fail.
	if err := builder.DropCompleteSchema(ctx); err != nil {
		t.Fatalf("second drop: %v", err)
	}
}

func TestServiceTransactionRollback(t *testing.T) {
	gdb := openTestDB(t, "svc_tx")
	if err := NewSchemaBuilder(gdb, logger.NewNop()).BuildCompleteSchema(context.Background()); err != nil {
		t.Fatalf("build schema: %v", err)
	}
	svc := NewService(gdb, PoolConfig{CloseGracePeriod: time.Second}, logger.NewNop())
	ctx := context.Background()

	boom := errors.New("boom")
	err := svc.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&types.Organization{Name: "tx-org"}).Error; err != nil {
			return err
		}
		return boom
	})
	if err == nil {
		t.Fatal("expected error from failing transaction")
	}

	var count int64
	if err := gdb.Model(&types.Organization{}).Where("name = ?", "tx-org").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatal("row survived rolled-back transaction")
	}

	err = svc.RunInTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&types.Organization{Name: "tx-org-committed"}).Error
	})
	if err != nil {
		t.Fatalf("commit path: %v", err)
	}
	if err := gdb.Model(&types.Organization{}).Where("name = ?", "tx-org-committed").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatal("committed row missing")
	}
}

func TestServiceHealthCheckAndSession(t *testing.T) {
	gdb := openTestDB(t, "svc_health")
	svc := NewService(gdb, PoolConfig{AcquireTimeout: time.Second}, logger.NewNop())
	ctx := context.Background()

	if err := svc.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	conn, err := svc.AcquireSession(ctx)
	if err != nil {
		t.Fatalf("AcquireSession: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close session: %v", err)
	}

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.OpenConnections < 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestConnectionConfigDSN(t *testing.T) {
	cfg := ConnectionConfig{
		Host: "db.internal", Port: 5433, Database: "docs",
		Username: "svc", Password: "s3cret", Schema: "tenant_a", SSLMode: "require",
	}
	dsn := cfg.DSN()
	for _, want := range []string{"db.internal:5433", "/docs", "sslmode=require", "search_path=tenant_a", "svc:s3cret"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("DSN %q missing %q", dsn, want)
		}
	}
}
