package snapshot

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/forgev2/forge-admin/internal/source"
)

// TableResult is the outcome of refreshing one table.
type TableResult struct {
	Rows    int    `json:"rows"`
	SavedTo string `json:"saved_to,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether the table could not be refreshed.
func (r TableResult) Failed() bool {
	return r.Error != ""
}

// Report describes one refresh run.
type Report struct {
	ID         string                 `json:"id"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Results    map[string]TableResult `json:"results"`
}

// Failures returns the names of the tables that failed, sorted.
func (r *Report) Failures() []string {
	var out []string
	for table, res := range r.Results {
		if res.Failed() {
			out = append(out, table)
		}
	}
	sort.Strings(out)
	return out
}

// Refresher pulls the configured tables from the source into the store.
type Refresher struct {
	reader      source.Reader
	store       *Store
	tables      []string
	concurrency int
	logger      *zap.Logger

	// run serializes refreshes so two runs never race on the same object.
	run  sync.Mutex
	mu   sync.RWMutex
	last *Report
	runs atomic.Int64
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithConcurrency bounds the number of tables pulled in parallel.
func WithConcurrency(n int) RefresherOption {
	return func(r *Refresher) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRefresherLogger sets the refresher logger.
func WithRefresherLogger(l *zap.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = l }
}

// NewRefresher creates a refresher for tables.
func NewRefresher(reader source.Reader, store *Store, tables []string, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		reader:      reader,
		store:       store,
		tables:      append([]string(nil), tables...),
		concurrency: 4,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tables returns the configured table names.
func (r *Refresher) Tables() []string {
	return append([]string(nil), r.tables...)
}

// RefreshAll pulls and saves every configured table. A failing table is
// recorded in the report and never stops the others.
func (r *Refresher) RefreshAll(ctx context.Context) *Report {
	r.run.Lock()
	defer r.run.Unlock()

	report := &Report{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Results:   make(map[string]TableResult, len(r.tables)),
	}
	logger := r.logger.With(zap.String("run_id", report.ID))
	logger.Info("snapshot refresh started", zap.Int("tables", len(r.tables)))

	sem := semaphore.NewWeighted(int64(r.concurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex
	record := func(table string, res TableResult) {
		mu.Lock()
		report.Results[table] = res
		mu.Unlock()
	}

	for _, table := range r.tables {
		if err := sem.Acquire(ctx, 1); err != nil {
			record(table, TableResult{Error: err.Error()})
			continue
		}

		wg.Add(1)
		go func(table string) {
			defer sem.Release(1)
			defer wg.Done()

			res := r.refreshTable(ctx, table)
			if res.Failed() {
				logger.Error("snapshot refresh failed", zap.String("table", table), zap.String("error", res.Error))
			}
			record(table, res)
		}(table)
	}
	wg.Wait()

	report.FinishedAt = time.Now().UTC()
	logger.Info("snapshot refresh finished",
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
		zap.Strings("failed", report.Failures()))

	r.mu.Lock()
	r.last = report
	r.mu.Unlock()
	r.runs.Add(1)
	return report
}

func (r *Refresher) refreshTable(ctx context.Context, table string) TableResult {
	data, err := r.reader.TableData(ctx, table)
	if err != nil {
		return TableResult{Error: err.Error()}
	}
	path, err := r.store.Save(ctx, data)
	if err != nil {
		return TableResult{Error: err.Error()}
	}
	return TableResult{Rows: len(data.Rows), SavedTo: path}
}

// LastReport returns the most recent run, or nil before the first one.
func (r *Refresher) LastReport() *Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Runs returns how many refreshes have completed.
func (r *Refresher) Runs() int64 {
	return r.runs.Load()
}
