// Package main implements the forge-snapshot binary.
// It serves table snapshots, or with --once pulls every table a single time
// and exits, for use from an external scheduler.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/forgev2/forge-admin/internal/app"
	"github.com/forgev2/forge-admin/internal/config"
	"github.com/forgev2/forge-admin/internal/logging"
	"github.com/forgev2/forge-admin/internal/snapshot"
	"github.com/forgev2/forge-admin/internal/source"
	"github.com/forgev2/forge-admin/internal/storage"
)

func main() {
	var (
		configFile string
		envFile    string
		addr       string
		tables     string
		once       bool
	)
	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&envFile, "env-file", ".env", "Path to a .env file; missing files are ignored")
	flag.StringVar(&addr, "addr", "", "HTTP address for /data and /update-all")
	flag.StringVar(&tables, "tables", "", "Comma-separated tables to snapshot (overrides TABLES)")
	flag.BoolVar(&once, "once", false, "Refresh every table once, print the results and exit")
	flag.Parse()

	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config file: %v\n", err)
			os.Exit(1)
		}
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	config.LoadFromEnv(cfg)
	cfg.Mode = config.ModeSnapshot
	if addr != "" {
		cfg.HTTP.SnapshotAddr = addr
	}
	if tables != "" {
		cfg.Snapshot.Tables = config.SplitTables(tables)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if once {
		if err := refreshOnce(ctx, cfg, logger); err != nil {
			logger.Error("refresh failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create application", zap.Error(err))
	}
	if err := application.Start(ctx); err != nil {
		logger.Fatal("failed to start application", zap.Error(err))
	}
	if err := application.WaitForShutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
		os.Exit(1)
	}
}

func refreshOnce(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	var objects storage.ObjectStorage
	var err error
	if cfg.Storage.Type == "s3" {
		objects, err = storage.NewS3Storage(ctx, cfg.Storage.S3.Bucket, storage.S3Config{
			Region:   cfg.Storage.S3.Region,
			Endpoint: cfg.Storage.S3.Endpoint,
		})
	} else {
		objects, err = storage.NewLocalStorage(cfg.Storage.Path)
	}
	if err != nil {
		return err
	}

	conn, err := source.Open(ctx, cfg.Source, source.WithLogger(logger), source.WithQueryTimeout(cfg.Source.QueryTimeout))
	if err != nil {
		return err
	}
	defer conn.Close()

	store := snapshot.NewStore(objects, snapshot.WithStoreLogger(logger))
	report := snapshot.NewRefresher(conn, store, cfg.Snapshot.Tables,
		snapshot.WithConcurrency(cfg.Snapshot.Concurrency),
		snapshot.WithRefresherLogger(logger)).RefreshAll(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report.Results); err != nil {
		return err
	}
	if failed := report.Failures(); len(failed) > 0 {
		return fmt.Errorf("%d table(s) failed: %v", len(failed), failed)
	}
	return nil
}
