package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/axai-ai/docstore/internal/domain"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

// Schema build step names, in execution order.
const (
	StepExtensions      = "extensions"
	StepTriggerFunction = "trigger_function"
	StepTables          = "tables"
	StepTriggers        = "triggers"
	StepComments        = "comments"
	StepIndexes         = "indexes"
)

// SchemaStepError reports which build step failed so a partially applied
// schema can be diagnosed. DDL failures are never swallowed.
type SchemaStepError struct {
	Step string
	Err  error
}

func (e *SchemaStepError) Error() string {
	return fmt.Sprintf("schema step %q failed: %v", e.Step, e.Err)
}

func (e *SchemaStepError) Unwrap() error { return e.Err }

// AllModels lists every entity in dependency order: parents before children
// so foreign keys resolve during creation, reversed for drops.
func AllModels() []any {
	return []any{
		&domain.Organization{},
		&domain.User{},
		&domain.Document{},
		&domain.DocumentVersion{},
		&domain.Summary{},
		&domain.Topic{},
		&domain.DocumentTopic{},
		&domain.GraphNode{},
		&domain.GraphRelationship{},
		&domain.DocumentCluster{},
		&domain.DocumentClusterMember{},
	}
}

// Tables carrying an updated_at column that gets the refresh trigger.
var updatedAtTables = []string{
	"organizations",
	"users",
	"documents",
	"topics",
	"document_topics",
	"graph_nodes",
	"graph_relationships",
	"document_clusters",
}

var tableComments = map[string]string{
	"organizations":            "B2B tenants; owns users and documents",
	"users":                    "Accounts scoped to one organization",
	"documents":                "Core document storage with ownership and metadata",
	"document_versions":        "Immutable pre-update snapshots of documents",
	"summaries":                "Tool/agent generated document summaries",
	"topics":                   "Hierarchical topic taxonomy",
	"document_topics":          "Document-to-topic links with relevance scores",
	"graph_nodes":              "Nodes of the document relationship graph",
	"graph_relationships":      "Typed weighted edges between graph nodes",
	"document_clusters":        "Clustering run outputs",
	"document_cluster_members": "Cluster membership with primary flag",
}

// SchemaBuilder stands up and tears down the complete physical schema from
// the declarative entity model. Every step is safe to re-run.
type SchemaBuilder struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSchemaBuilder(db *gorm.DB, log *logger.Logger) *SchemaBuilder {
	return &SchemaBuilder{db: db, log: log.With("service", "schema")}
}

func (b *SchemaBuilder) postgres() bool {
	return b.db.Dialector.Name() == "postgres"
}

// BuildCompleteSchema applies extensions, trigger function, tables,
// triggers, comments and secondary indexes, in that order. On failure the
// returned error identifies the step. PostgreSQL-only DDL is skipped on
// other dialects so the builder stays usable under the SQLite test engine.
func (b *SchemaBuilder) BuildCompleteSchema(ctx context.Context) error {
	if err := b.createExtensions(ctx); err != nil {
		return &SchemaStepError{Step: StepExtensions, Err: err}
	}
	if err := b.createTriggerFunction(ctx); err != nil {
		return &SchemaStepError{Step: StepTriggerFunction, Err: err}
	}
	if err := b.createTables(ctx); err != nil {
		return &SchemaStepError{Step: StepTables, Err: err}
	}
	if err := b.attachTriggers(ctx); err != nil {
		return &SchemaStepError{Step: StepTriggers, Err: err}
	}
	b.addComments(ctx) // best effort
	if err := b.createIndexes(ctx); err != nil {
		return &SchemaStepError{Step: StepIndexes, Err: err}
	}
	b.log.Info("schema build complete")
	return nil
}

// DropCompleteSchema removes everything BuildCompleteSchema created, in
// reverse dependency order. Also safe to re-run.
func (b *SchemaBuilder) DropCompleteSchema(ctx context.Context) error {
	if b.postgres() {
		for _, table := range updatedAtTables {
			stmt := fmt.Sprintf(`DROP TRIGGER IF EXISTS trg_%s_updated_at ON %s;`, table, table)
			if err := b.db.WithContext(ctx).Exec(stmt).Error; err != nil {
				// Trigger drops fail when the table is already gone.
				b.log.Debug("trigger drop skipped", "table", table, "error", err)
			}
		}
	}

	models := AllModels()
	for i := len(models) - 1; i >= 0; i-- {
		if !b.db.Migrator().HasTable(models[i]) {
			continue
		}
		if err := b.db.WithContext(ctx).Migrator().DropTable(models[i]); err != nil {
			return &SchemaStepError{Step: StepTables, Err: err}
		}
	}

	if b.postgres() {
		if err := b.db.WithContext(ctx).Exec(`DROP FUNCTION IF EXISTS set_updated_at();`).Error; err != nil {
			return &SchemaStepError{Step: StepTriggerFunction, Err: err}
		}
	}
	b.log.Info("schema drop complete")
	return nil
}

func (b *SchemaBuilder) createExtensions(ctx context.Context) error {
	if !b.postgres() {
		return nil
	}
	return b.db.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error
}

func (b *SchemaBuilder) createTriggerFunction(ctx context.Context) error {
	if !b.postgres() {
		return nil
	}
	return b.db.WithContext(ctx).Exec(`
		CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
		BEGIN
			NEW.updated_at = now();
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;
	`).Error
}

func (b *SchemaBuilder) createTables(ctx context.Context) error {
	return b.db.WithContext(ctx).AutoMigrate(AllModels()...)
}

func (b *SchemaBuilder) attachTriggers(ctx context.Context) error {
	if !b.postgres() {
		return nil
	}
	for _, table := range updatedAtTables {
		drop := fmt.Sprintf(`DROP TRIGGER IF EXISTS trg_%s_updated_at ON %s;`, table, table)
		if err := b.db.WithContext(ctx).Exec(drop).Error; err != nil {
			return fmt.Errorf("table %s: %w", table, err)
		}
		create := fmt.Sprintf(`
			CREATE TRIGGER trg_%s_updated_at
			BEFORE UPDATE ON %s
			FOR EACH ROW EXECUTE FUNCTION set_updated_at();
		`, table, table)
		if err := b.db.WithContext(ctx).Exec(create).Error; err != nil {
			return fmt.Errorf("table %s: %w", table, err)
		}
	}
	return nil
}

func (b *SchemaBuilder) addComments(ctx context.Context) {
	if !b.postgres() {
		return
	}
	for table, comment := range tableComments {
		stmt := fmt.Sprintf(`COMMENT ON TABLE %s IS '%s';`, table, comment)
		if err := b.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			b.log.Warn("table comment failed", "table", table, "error", err)
		}
	}
}

func (b *SchemaBuilder) createIndexes(ctx context.Context) error {
	if !b.postgres() {
		// Tag-declared indexes are created by AutoMigrate on every dialect.
		return nil
	}
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(org_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_processing_status ON documents(processing_status);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_fts ON documents
			USING gin (to_tsvector('english', coalesce(title, '') || ' ' || coalesce(content, '')));`,
		`CREATE INDEX IF NOT EXISTS idx_graph_relationships_active_source
			ON graph_relationships(source_node_id) WHERE is_active;`,
		`CREATE INDEX IF NOT EXISTS idx_graph_relationships_active_target
			ON graph_relationships(target_node_id) WHERE is_active;`,
	}
	for _, stmt := range stmts {
		if err := b.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
