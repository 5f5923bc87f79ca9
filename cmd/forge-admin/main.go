// Package main implements the unified forge-admin binary.
// It runs the dashboard API, the snapshot backend, or both, based on --mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/forgev2/forge-admin/internal/app"
	"github.com/forgev2/forge-admin/internal/config"
	"github.com/forgev2/forge-admin/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

type flags struct {
	configFile    string
	envFile       string
	dataDir       string
	mode          string
	dashboardAddr string
	snapshotAddr  string
	grpcAddr      string
	baseURL       string
	logLevel      string
}

func main() {
	var (
		f           flags
		showVersion bool
	)

	flag.StringVar(&f.configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&f.envFile, "env-file", ".env", "Path to a .env file; missing files are ignored")
	flag.StringVar(&f.dataDir, "data-dir", "", "Base directory for snapshots and exports")
	flag.StringVar(&f.mode, "mode", "", "Service mode: all, dashboard, snapshot")
	flag.StringVar(&f.dashboardAddr, "http-dashboard", "", "HTTP address for the dashboard API")
	flag.StringVar(&f.snapshotAddr, "http-snapshot", "", "HTTP address for the snapshot backend")
	flag.StringVar(&f.grpcAddr, "grpc-addr", "", "gRPC health server address")
	flag.StringVar(&f.baseURL, "base-url", "", "Snapshot backend URL the dashboard fetches from")
	flag.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "forge-admin - internal dashboard and table snapshot service\n\n")
		fmt.Fprintf(os.Stderr, "Usage: forge-admin [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  forge-admin --mode snapshot\n")
		fmt.Fprintf(os.Stderr, "  forge-admin --mode dashboard --base-url http://snapshots:8000\n")
		fmt.Fprintf(os.Stderr, "  forge-admin --config /etc/forge/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FORGE_MODE              Service mode (all, dashboard, snapshot)\n")
		fmt.Fprintf(os.Stderr, "  FORGE_SOURCE_DRIVER     Source database driver (postgres, mysql, sqlite)\n")
		fmt.Fprintf(os.Stderr, "  FORGE_SOURCE_DSN        Source database connection string\n")
		fmt.Fprintf(os.Stderr, "  TABLES                  Comma-separated tables to snapshot\n")
		fmt.Fprintf(os.Stderr, "  FORGE_STORAGE_TYPE      Snapshot storage (local, s3)\n")
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("forge-admin version %s (commit: %s)\n", version, commit)
		return
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting forge-admin",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("mode", string(cfg.Mode)),
		zap.String("data_dir", cfg.DataDir),
		zap.String("storage", cfg.Storage.Type))

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create application", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		logger.Fatal("failed to start application", zap.Error(err))
	}

	if err := application.WaitForShutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
		os.Exit(1)
	}
}

// loadConfig layers defaults or file, then .env and environment, then flags.
func loadConfig(f flags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(f.configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := config.LoadDotEnv(f.envFile); err != nil {
		return nil, err
	}
	config.LoadFromEnv(cfg)

	if f.dataDir != "" {
		cfg.DataDir = f.dataDir
	}
	if f.mode != "" {
		cfg.Mode = config.Mode(f.mode)
	}
	if f.dashboardAddr != "" {
		cfg.HTTP.DashboardAddr = f.dashboardAddr
	}
	if f.snapshotAddr != "" {
		cfg.HTTP.SnapshotAddr = f.snapshotAddr
	}
	if f.grpcAddr != "" {
		cfg.GRPC.Addr = f.grpcAddr
	}
	if f.baseURL != "" {
		cfg.Dashboard.BaseURL = f.baseURL
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, nil
}
