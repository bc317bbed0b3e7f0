package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/axai-ai/docstore/internal/platform/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// HistoryTable records applied migration versions in strict order.
const HistoryTable = "schema_migration_history"

var verifyPattern = regexp.MustCompile(`^(\d+)_.*\.verify\.sql$`)

// Migrator applies versioned schema migrations. Each schema change ships as
// three files: NNNN_name.up.sql, NNNN_name.down.sql and NNNN_name.verify.sql;
// verify scripts run after the corresponding version has been applied.
type Migrator struct {
	db   *gorm.DB
	log  *logger.Logger
	fsys fs.FS
}

func NewMigrator(db *gorm.DB, log *logger.Logger) *Migrator {
	return &Migrator{db: db, log: log.With("service", "migrator"), fsys: migrationFS}
}

// NewMigratorWithFS overrides the embedded migration source.
func NewMigratorWithFS(db *gorm.DB, log *logger.Logger, fsys fs.FS) *Migrator {
	return &Migrator{db: db, log: log.With("service", "migrator"), fsys: fsys}
}

type migrateLogger struct {
	log *logger.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}

func (l migrateLogger) Verbose() bool { return false }

func (m *Migrator) instance() (*migrate.Migrate, error) {
	if m.db.Dialector.Name() != "postgres" {
		return nil, fmt.Errorf("migrations require postgres, got %s", m.db.Dialector.Name())
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return nil, err
	}
	driver, err := pgxmigrate.WithInstance(sqlDB, &pgxmigrate.Config{
		MigrationsTable: HistoryTable,
	})
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(m.fsys, "migrations")
	if err != nil {
		return nil, err
	}
	inst, err := migrate.NewWithInstance("iofs", src, "docstore", driver)
	if err != nil {
		return nil, err
	}
	inst.Log = migrateLogger{log: m.log}
	return inst, nil
}

// Up applies all pending migrations in version order, then runs the verify
// script of every applied version.
func (m *Migrator) Up(ctx context.Context) error {
	inst, err := m.instance()
	if err != nil {
		return err
	}
	if err := inst.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return m.Verify(ctx)
}

// Down rolls everything back in reverse version order.
func (m *Migrator) Down(ctx context.Context) error {
	_ = ctx
	inst, err := m.instance()
	if err != nil {
		return err
	}
	if err := inst.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Version reports the current migration version and dirty flag.
func (m *Migrator) Version() (uint, bool, error) {
	inst, err := m.instance()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := inst.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Verify executes the verify script of every version at or below the current
// one. A failing script fails the whole call, naming the file.
func (m *Migrator) Verify(ctx context.Context) error {
	current, _, err := m.Version()
	if err != nil {
		return err
	}
	scripts, err := m.verifyScripts()
	if err != nil {
		return err
	}
	for _, s := range scripts {
		if s.version > current {
			continue
		}
		content, err := fs.ReadFile(m.fsys, "migrations/"+s.name)
		if err != nil {
			return fmt.Errorf("read %s: %w", s.name, err)
		}
		if err := m.db.WithContext(ctx).Exec(string(content)).Error; err != nil {
			return fmt.Errorf("verification %s failed: %w", s.name, err)
		}
		m.log.Debug("migration verified", "script", s.name)
	}
	return nil
}

type verifyScript struct {
	version uint
	name    string
}

func (m *Migrator) verifyScripts() ([]verifyScript, error) {
	entries, err := fs.ReadDir(m.fsys, "migrations")
	if err != nil {
		return nil, err
	}
	var out []verifyScript
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matches := verifyPattern.FindStringSubmatch(e.Name())
		if len(matches) < 2 {
			continue
		}
		v, err := strconv.ParseUint(matches[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad migration version in %s: %w", e.Name(), err)
		}
		out = append(out, verifyScript{version: uint(v), name: e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}
