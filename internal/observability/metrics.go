package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/axai-ai/docstore/internal/data/cache"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

// Metrics aggregates repository, transaction, cache and pool telemetry.
// All methods are safe on a nil receiver so call sites never need to guard.
type Metrics struct {
	repoOps      *CounterVec
	repoDuration *HistogramVec
	repoTotal    *Counter
	repoError    *Counter
	repoSlow     *Counter

	txTotal    *Counter
	txError    *Counter
	txDuration *HistogramVec

	cacheStats *GaugeVec
	pgStats    *GaugeVec

	slowOpThreshold float64
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

func slowOpThreshold() float64 {
	if v := strings.TrimSpace(os.Getenv("REPO_SLOW_OP_THRESHOLD_SECONDS")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return 1.0
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// New builds an unshared registry. Tests use this to avoid the singleton.
func New() *Metrics {
	return &Metrics{
		repoOps: NewCounterVec("ds_repo_operations_total", "Repository operations by repository/operation/status.", []string{"repository", "operation", "status"}),
		repoDuration: NewHistogramVec(
			"ds_repo_operation_duration_seconds",
			"Repository operation latency in seconds by repository/operation.",
			[]string{"repository", "operation"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		repoTotal: NewCounter("ds_repo_operations_total_all", "Total repository operations (all)."),
		repoError: NewCounter("ds_repo_operations_error_total", "Total repository operations that returned an error."),
		repoSlow:  NewCounter("ds_repo_operations_slow_total", "Total repository operations over the slow threshold."),
		txTotal:   NewCounter("ds_tx_total", "Total managed transactions."),
		txError:   NewCounter("ds_tx_error_total", "Total managed transactions that rolled back."),
		txDuration: NewHistogramVec(
			"ds_tx_duration_seconds",
			"Managed transaction duration in seconds.",
			[]string{"status"},
			[]float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		),
		cacheStats:      NewGaugeVec("ds_cache_stats", "Query cache stats.", []string{"metric"}),
		pgStats:         NewGaugeVec("ds_postgres_stats", "Postgres connection pool stats.", []string{"metric"}),
		slowOpThreshold: slowOpThreshold(),
	}
}

// ObserveRepoOp records one repository call. err may be nil.
func (m *Metrics) ObserveRepoOp(repository, operation string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	if repository == "" {
		repository = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.repoOps.Inc(repository, operation, status)
	m.repoTotal.Inc()
	if err != nil {
		m.repoError.Inc()
	}
	secs := dur.Seconds()
	if secs < 0 {
		secs = 0
	}
	if m.slowOpThreshold > 0 && secs > m.slowOpThreshold {
		m.repoSlow.Inc()
	}
	m.repoDuration.Observe(secs, repository, operation)
}

func (m *Metrics) ObserveTransaction(err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "committed"
	if err != nil {
		status = "rolled_back"
	}
	m.txTotal.Inc()
	if err != nil {
		m.txError.Inc()
	}
	m.txDuration.Observe(dur.Seconds(), status)
}

// SlowOpThreshold reports the configured slow threshold in seconds.
func (m *Metrics) SlowOpThreshold() float64 {
	if m == nil {
		return 0
	}
	return m.slowOpThreshold
}

// Snapshot is the JSON shape served by the ops endpoint.
type Snapshot struct {
	RepoTotal  float64               `json:"repo_operations_total"`
	RepoErrors float64               `json:"repo_operations_error_total"`
	RepoSlow   float64               `json:"repo_operations_slow_total"`
	TxTotal    float64               `json:"tx_total"`
	TxErrors   float64               `json:"tx_error_total"`
	Operations map[string]float64    `json:"operations"`
	Durations  map[string]DurationMs `json:"durations"`
}

type DurationMs struct {
	Count uint64  `json:"count"`
	SumMs float64 `json:"sum_ms"`
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	ops := m.repoOps.Values()
	durs := map[string]DurationMs{}
	for k, h := range m.repoDuration.Values() {
		durs[k] = DurationMs{Count: h.Count, SumMs: h.Sum * 1000}
	}
	return Snapshot{
		RepoTotal:  m.repoTotal.Value(),
		RepoErrors: m.repoError.Value(),
		RepoSlow:   m.repoSlow.Value(),
		TxTotal:    m.txTotal.Value(),
		TxErrors:   m.txError.Value(),
		Operations: ops,
		Durations:  durs,
	}
}

// Reset zeroes the operation counters and histograms. Gauges are collector
// owned and left alone.
func (m *Metrics) Reset() {
	if m == nil {
		return
	}
	m.repoOps.Reset()
	m.repoDuration.Reset()
	m.repoTotal.Reset()
	m.repoError.Reset()
	m.repoSlow.Reset()
	m.txTotal.Reset()
	m.txError.Reset()
	m.txDuration.Reset()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	if err := m.repoOps.WritePrometheus(w); err != nil {
		return err
	}
	if err := m.repoDuration.WritePrometheus(w); err != nil {
		return err
	}
	if err := m.repoTotal.WritePrometheus(w); err != nil {
		return err
	}
	if err := m.repoError.WritePrometheus(w); err != nil {
		return err
	}
	if err := m.repoSlow.WritePrometheus(w); err != nil {
		return err
	}
	if err := m.txTotal.WritePrometheus(w); err != nil {
		return err
	}
	if err := m.txError.WritePrometheus(w); err != nil {
		return err
	}
	if err := m.txDuration.WritePrometheus(w); err != nil {
		return err
	}
	if err := m.cacheStats.WritePrometheus(w); err != nil {
		return err
	}
	return m.pgStats.WritePrometheus(w)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

func (m *Metrics) StartCacheCollector(ctx context.Context, store cache.Store) {
	if m == nil || store == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := store.Stats()
				m.cacheStats.Set(float64(stats.Hits), "hits")
				m.cacheStats.Set(float64(stats.Misses), "misses")
				m.cacheStats.Set(float64(stats.Entries), "entries")
				m.cacheStats.Set(float64(stats.Evictions), "evictions")
			}
		}
	}()
}
