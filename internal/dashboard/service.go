// Package dashboard owns the live dashboard: it runs fetch cycles, swaps in
// the rebuilt view and keeps the sort state beside it.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	forgeerrors "github.com/forgev2/forge-admin/internal/errors"
	"github.com/forgev2/forge-admin/internal/export"
	"github.com/forgev2/forge-admin/internal/sorting"
	"github.com/forgev2/forge-admin/internal/view"
	"github.com/forgev2/forge-admin/pkg/types"
)

// Fetcher loads one resource set per cycle.
type Fetcher interface {
	FetchAll(ctx context.Context, names ...types.ResourceName) *types.ResourceSet
}

// TableView is a derived table as rendered: sorted by the current state,
// with header indicators and display strings.
type TableView struct {
	Table   view.TableID  `json:"table"`
	Headers []view.Header `json:"headers"`
	Rows    []types.Row   `json:"rows"`
	Display [][]string    `json:"display"`
	Sort    sorting.State `json:"sort"`
}

// Service serves the most recently built dashboard.
type Service struct {
	fetcher Fetcher
	logger  *zap.Logger
	now     func() time.Time

	refresh sync.Mutex

	mu      sync.RWMutex
	current *view.Dashboard
	state   sorting.State
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a service. Nothing is fetched until the first Refresh.
func New(fetcher Fetcher, opts ...Option) *Service {
	s := &Service{fetcher: fetcher, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh runs one fetch cycle and replaces the current dashboard.
// Concurrent calls are serialized. When ctx ends during the fetch the
// partial result is returned but not kept, and an existing dashboard wins.
func (s *Service) Refresh(ctx context.Context) *view.Dashboard {
	s.refresh.Lock()
	defer s.refresh.Unlock()

	start := s.now()
	set := s.fetcher.FetchAll(ctx)
	d := view.BuildAt(set, s.now().UTC())

	if err := ctx.Err(); err != nil {
		s.logger.Warn("dashboard refresh interrupted, keeping previous build", zap.Error(err))
		s.mu.RLock()
		prev := s.current
		s.mu.RUnlock()
		if prev != nil {
			return prev
		}
		return d
	}

	s.mu.Lock()
	s.current = d
	s.mu.Unlock()

	s.logger.Info("dashboard rebuilt",
		zap.Int("users", len(d.Users)),
		zap.Int("workflows", d.Workflows.TotalWorkflows),
		zap.Duration("duration", s.now().Sub(start)))
	return d
}

// Dashboard returns the current dashboard, building it on first use. The
// first build is shared by every caller, so it does not end with the
// request that triggered it.
func (s *Service) Dashboard(ctx context.Context) *view.Dashboard {
	s.mu.RLock()
	d := s.current
	s.mu.RUnlock()
	if d != nil {
		return d
	}
	return s.Refresh(context.WithoutCancel(ctx))
}

// State returns the current sort state.
func (s *Service) State() sorting.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Toggle advances the sort for a column of a table.
func (s *Service) Toggle(ctx context.Context, table, key string) (sorting.State, error) {
	id, err := view.ParseTableID(table)
	if err != nil {
		return sorting.State{}, forgeerrors.NewValidationError(forgeerrors.CodeUnknownTable, err.Error())
	}
	if !hasColumn(s.Dashboard(ctx).Columns(id), key) {
		return sorting.State{}, forgeerrors.NewValidationError(forgeerrors.CodeInvalidRequest,
			fmt.Sprintf("table %s has no column %q", id, key))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Toggle(string(id), key)
	s.logger.Debug("sort toggled",
		zap.String("table", string(id)),
		zap.String("key", key),
		zap.String("direction", string(s.state.Direction)))
	return s.state, nil
}

// Table renders a derived table with the current sort applied.
func (s *Service) Table(ctx context.Context, table string) (*TableView, error) {
	id, err := view.ParseTableID(table)
	if err != nil {
		return nil, forgeerrors.NewValidationError(forgeerrors.CodeUnknownTable, err.Error())
	}

	d := s.Dashboard(ctx)
	state := s.State()
	t, _ := d.Sorted(id, state)
	cols := d.Columns(id)

	display := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		display[i] = view.DisplayRow(cols, row)
	}
	return &TableView{
		Table:   id,
		Headers: d.Headers(id, state),
		Rows:    t.Rows,
		Display: display,
		Sort:    state,
	}, nil
}

// Export returns the table to download as CSV, sorted as displayed. With no
// active sort on the table the rows keep projection order.
func (s *Service) Export(ctx context.Context, table string) (view.TableID, export.Table, error) {
	id, err := view.ParseTableID(table)
	if err != nil {
		return "", export.Table{}, forgeerrors.NewValidationError(forgeerrors.CodeUnknownTable, err.Error())
	}
	t, _ := s.Dashboard(ctx).Sorted(id, s.State())
	return id, t, nil
}

// Run refreshes every interval until ctx is cancelled. A non-positive
// interval disables periodic refresh.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

func hasColumn(cols []view.Column, key string) bool {
	for _, c := range cols {
		if c.Key == key {
			return true
		}
	}
	return false
}
