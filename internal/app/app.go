// Package app wires configuration into running Forge services and manages
// their lifecycle.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	httpapi "github.com/forgev2/forge-admin/internal/api/http"
	"github.com/forgev2/forge-admin/internal/config"
	"github.com/forgev2/forge-admin/internal/dashboard"
	"github.com/forgev2/forge-admin/internal/fetch"
	"github.com/forgev2/forge-admin/internal/logging"
	"github.com/forgev2/forge-admin/internal/observability"
	"github.com/forgev2/forge-admin/internal/server"
	"github.com/forgev2/forge-admin/internal/snapshot"
	"github.com/forgev2/forge-admin/internal/source"
	"github.com/forgev2/forge-admin/internal/storage"
)

// SnapshotHealthService is the gRPC health service name of the snapshot backend.
const SnapshotHealthService = "forge.snapshot"

// App manages the dashboard and snapshot service lifecycles.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	shutdown *server.ShutdownManager
	storage  storage.ObjectStorage
	source   *source.Connector

	dashboard *dashboard.Service
	stats     *observability.FetchStats
	refresher *snapshot.Refresher
	health    *server.HealthServer

	dashboardAddr net.Addr
	snapshotAddr  net.Addr
	grpcAddr      net.Addr

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New resolves and validates cfg and prepares the data directories.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return &App{cfg: cfg, logger: logging.OrNop(logger)}, nil
}

// Start starts every service enabled by the configured mode.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.shutdown = server.NewShutdownManager(server.DefaultShutdownConfig(), a.logger)
	a.shutdown.OnShutdownStart(cancel)

	if a.cfg.ShouldRunSnapshot() {
		if err := a.startSnapshotService(ctx); err != nil {
			a.abort()
			return fmt.Errorf("failed to start snapshot service: %w", err)
		}
	}

	if a.cfg.ShouldRunDashboard() {
		if err := a.startDashboardService(ctx); err != nil {
			a.abort()
			return fmt.Errorf("failed to start dashboard service: %w", err)
		}
	}

	a.logger.Info("forge started", zap.String("mode", string(a.cfg.Mode)))
	return nil
}

// initStorage opens the snapshot object store.
func (a *App) initStorage(ctx context.Context) error {
	var err error
	switch a.cfg.Storage.Type {
	case "local":
		a.storage, err = storage.NewLocalStorage(a.cfg.Storage.Path)
	case "s3":
		a.storage, err = storage.NewS3Storage(ctx, a.cfg.Storage.S3.Bucket, storage.S3Config{
			Region:   a.cfg.Storage.S3.Region,
			Endpoint: a.cfg.Storage.S3.Endpoint,
		})
	default:
		return fmt.Errorf("unsupported storage type: %s", a.cfg.Storage.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.logger.Info("storage initialized",
		zap.String("type", a.cfg.Storage.Type),
		zap.String("path", a.cfg.Storage.Path),
		zap.String("bucket", a.cfg.Storage.S3.Bucket))
	return nil
}

func (a *App) startSnapshotService(ctx context.Context) error {
	if err := a.initStorage(ctx); err != nil {
		return err
	}

	conn, err := source.Open(ctx, a.cfg.Source,
		source.WithLogger(a.logger.Named("source")),
		source.WithQueryTimeout(a.cfg.Source.QueryTimeout))
	if err != nil {
		return err
	}
	a.source = conn
	a.shutdown.RegisterCloser("source", conn)

	store := snapshot.NewStore(a.storage, snapshot.WithStoreLogger(a.logger.Named("snapshot")))
	a.refresher = snapshot.NewRefresher(conn, store, a.cfg.Snapshot.Tables,
		snapshot.WithConcurrency(a.cfg.Snapshot.Concurrency),
		snapshot.WithRefresherLogger(a.logger.Named("refresh")))

	var runner snapshot.Runner = a.refresher
	if a.cfg.GRPC.Enabled {
		a.health = server.NewHealthServer(a.cfg.GRPC.Addr, a.logger.Named("grpc"), SnapshotHealthService)
		if a.grpcAddr, err = a.health.Start(a.shutdown); err != nil {
			return fmt.Errorf("failed to start grpc health server: %w", err)
		}
		runner = &servingRunner{Refresher: a.refresher, health: a.health}
	}

	mux := http.NewServeMux()
	httpapi.NewSnapshotHandler(store, a.refresher, a.logger.Named("http")).Register(mux)
	a.snapshotAddr, err = a.serveHTTP("snapshot-http", a.cfg.HTTP.SnapshotAddr, mux)
	if err != nil {
		return err
	}

	scheduler := snapshot.NewScheduler(runner, a.cfg.Snapshot.RefreshHour, a.cfg.Snapshot.RefreshMinute,
		snapshot.WithRunOnStart(a.cfg.Snapshot.RefreshOnStart),
		snapshot.WithSchedulerLogger(a.logger.Named("scheduler")))
	if !a.cfg.Snapshot.RefreshOnStart && a.health != nil {
		a.health.SetServing(SnapshotHealthService, true)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		scheduler.Run(ctx)
	}()

	a.logger.Info("snapshot service started",
		zap.Strings("tables", a.cfg.Snapshot.Tables),
		zap.Stringer("addr", a.snapshotAddr))
	return nil
}

func (a *App) startDashboardService(ctx context.Context) error {
	a.stats = observability.NewFetchStats(24 * time.Hour)
	fetcher := fetch.New(a.cfg.Dashboard.BaseURL,
		fetch.WithTimeout(a.cfg.Dashboard.FetchTimeout),
		fetch.WithLogger(a.logger.Named("fetch")),
		fetch.WithStats(a.stats))
	a.dashboard = dashboard.New(fetcher, dashboard.WithLogger(a.logger.Named("dashboard")))

	mux := http.NewServeMux()
	httpapi.NewDashboardHandler(a.dashboard, a.stats, a.logger.Named("http")).Register(mux)

	var err error
	a.dashboardAddr, err = a.serveHTTP("dashboard-http", a.cfg.HTTP.DashboardAddr, mux)
	if err != nil {
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.dashboard.Run(ctx, a.cfg.Dashboard.RefreshInterval)
	}()

	a.logger.Info("dashboard service started",
		zap.String("base_url", a.cfg.Dashboard.BaseURL),
		zap.Stringer("addr", a.dashboardAddr))
	return nil
}

func (a *App) serveHTTP(name, addr string, mux *http.ServeMux) (net.Addr, error) {
	srv := server.NewHTTPServer(name, &http.Server{
		Addr:         addr,
		Handler:      httpapi.DefaultMiddleware(a.logger.Named("http"))(mux),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}, a.shutdown, a.logger)

	bound, err := srv.Start()
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return bound, nil
}

// Stop gracefully stops all services and releases resources.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	err := a.shutdown.Shutdown(ctx, "stop requested")
	a.waitBackground(ctx)
	a.logger.Info("forge stopped")
	return err
}

// abort unwinds a partially started app.
func (a *App) abort() {
	_ = a.shutdown.Shutdown(context.Background(), "startup failed")
	a.waitBackground(context.Background())
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

func (a *App) waitBackground(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	timeout := time.NewTimer(30 * time.Second)
	defer timeout.Stop()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("shutdown context expired before background loops finished")
	case <-timeout.C:
		a.logger.Warn("background loops did not finish in time")
	}
}

// WaitForShutdown blocks until a signal arrives or ctx is cancelled, then
// shuts down.
func (a *App) WaitForShutdown(ctx context.Context) error {
	err := a.shutdown.ListenForSignals(ctx)
	a.waitBackground(context.Background())
	return err
}

// DashboardAddr returns the bound dashboard address, or nil.
func (a *App) DashboardAddr() net.Addr { return a.dashboardAddr }

// SnapshotAddr returns the bound snapshot address, or nil.
func (a *App) SnapshotAddr() net.Addr { return a.snapshotAddr }

// GRPCAddr returns the bound gRPC health address, or nil.
func (a *App) GRPCAddr() net.Addr { return a.grpcAddr }

// servingRunner marks the snapshot backend as serving once a refresh has run.
type servingRunner struct {
	*snapshot.Refresher
	health *server.HealthServer
}

func (r *servingRunner) RefreshAll(ctx context.Context) *snapshot.Report {
	report := r.Refresher.RefreshAll(ctx)
	r.health.SetServing(SnapshotHealthService, true)
	return report
}
