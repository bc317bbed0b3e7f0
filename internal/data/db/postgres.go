package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/axai-ai/docstore/internal/data/dberr"
	"github.com/axai-ai/docstore/internal/platform/envutil"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

// ConnectionConfig holds the parameters needed to reach the database.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

func ConnectionConfigFromEnv() ConnectionConfig {
	return ConnectionConfig{
		Host:     envutil.Str("POSTGRES_HOST", "localhost"),
		Port:     envutil.Int("POSTGRES_PORT", 5432),
		Database: envutil.Str("POSTGRES_DB", "documents"),
		Username: envutil.Str("POSTGRES_USER", "postgres"),
		Password: envutil.Str("POSTGRES_PASSWORD", ""),
		Schema:   envutil.Str("POSTGRES_SCHEMA", "public"),
		SSLMode:  envutil.Str("POSTGRES_SSL_MODE", "prefer"),
	}
}

func (c ConnectionConfig) DSN() string {
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	if c.Schema != "" && c.Schema != "public" {
		q.Set("search_path", c.Schema)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// PoolConfig sizes the underlying database/sql pool.
type PoolConfig struct {
	MaxOpen          int
	MaxIdle          int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	AcquireTimeout   time.Duration
	CloseGracePeriod time.Duration
}

func PoolConfigFromEnv() PoolConfig {
	return PoolConfig{
		MaxOpen:          envutil.Int("POOL_MAX_OPEN", 10),
		MaxIdle:          envutil.Int("POOL_MAX_IDLE", 5),
		ConnMaxLifetime:  envutil.Duration("POOL_CONN_MAX_LIFETIME", 30*time.Minute),
		ConnMaxIdleTime:  envutil.Duration("POOL_CONN_MAX_IDLE_TIME", 5*time.Minute),
		AcquireTimeout:   envutil.Duration("POOL_ACQUIRE_TIMEOUT", 30*time.Second),
		CloseGracePeriod: envutil.Duration("POOL_CLOSE_GRACE_PERIOD", 10*time.Second),
	}
}

// Service owns the connection pool and hands out sessions and transaction
// scopes. Construct one per database and inject it; there is no package
// global.
type Service struct {
	db   *gorm.DB
	pool PoolConfig
	log  *logger.Logger
}

// Open connects to PostgreSQL and configures the pool.
func Open(conn ConnectionConfig, pool PoolConfig, log *logger.Logger) (*Service, error) {
	gormDB, err := gorm.Open(postgres.Open(conn.DSN()), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, dberr.Translate(err)
	}
	svc := NewService(gormDB, pool, log)
	if err := svc.configurePool(); err != nil {
		return nil, err
	}
	log.Info("database connected",
		"host", conn.Host, "database", conn.Database,
		"max_open", pool.MaxOpen, "max_idle", pool.MaxIdle)
	return svc, nil
}

// NewService wraps an existing GORM handle. Tests use this with SQLite.
func NewService(db *gorm.DB, pool PoolConfig, log *logger.Logger) *Service {
	return &Service{db: db, pool: pool, log: log.With("service", "db")}
}

func (s *Service) configurePool() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dberr.Translate(err)
	}
	sqlDB.SetMaxOpenConns(s.pool.MaxOpen)
	sqlDB.SetMaxIdleConns(s.pool.MaxIdle)
	sqlDB.SetConnMaxLifetime(s.pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(s.pool.ConnMaxIdleTime)
	return nil
}

func (s *Service) DB() *gorm.DB { return s.db }

// AcquireSession checks a dedicated connection out of the pool, bounded by
// the configured acquire timeout. The caller must Close it.
func (s *Service) AcquireSession(ctx context.Context) (*sql.Conn, error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, dberr.Translate(err)
	}
	acquireCtx := ctx
	if s.pool.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, s.pool.AcquireTimeout)
		defer cancel()
	}
	conn, err := sqlDB.Conn(acquireCtx)
	if err != nil {
		if acquireCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: no connection within %s", dberr.ErrPoolExhausted, s.pool.AcquireTimeout)
		}
		return nil, dberr.Translate(err)
	}
	return conn, nil
}

// RunInTransaction begins a transaction, invokes fn, commits on nil return
// and rolls back otherwise. When fn's handle is itself used to open a nested
// transaction GORM falls back to savepoints, so a surrounding transaction
// (for example a test harness) is never committed from in here.
func (s *Service) RunInTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	if err != nil {
		return dberr.Translate(err)
	}
	return nil
}

// HealthCheck runs a trivial round trip. Meant for monitoring endpoints, not
// the request hot path.
func (s *Service) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return dberr.Translate(err)
	}
	return nil
}

// Stats exposes the pool counters for the metrics endpoint.
func (s *Service) Stats() (sql.DBStats, error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return sql.DBStats{}, dberr.Translate(err)
	}
	return sqlDB.Stats(), nil
}

// Close drains the pool, waiting for in-flight sessions up to the grace
// period before closing the remaining connections.
func (s *Service) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dberr.Translate(err)
	}
	deadline := time.Now().Add(s.pool.CloseGracePeriod)
	for time.Now().Before(deadline) {
		if sqlDB.Stats().InUse == 0 {
			break
		}
		select {
		case <-ctx.Done():
			s.log.Warn("close interrupted, closing with sessions in flight",
				"in_use", sqlDB.Stats().InUse)
			return sqlDB.Close()
		case <-time.After(100 * time.Millisecond):
		}
	}
	if inUse := sqlDB.Stats().InUse; inUse > 0 {
		s.log.Warn("grace period elapsed, closing with sessions in flight", "in_use", inUse)
	}
	return sqlDB.Close()
}
