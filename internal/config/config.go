// Package config provides unified configuration for the Forge admin services.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Mode represents the service mode to run.
type Mode string

const (
	ModeAll       Mode = "all"
	ModeDashboard Mode = "dashboard"
	ModeSnapshot  Mode = "snapshot"
)

// Config holds the unified configuration for the Forge admin services.
type Config struct {
	// Mode specifies which services to run: all, dashboard, snapshot
	Mode Mode `json:"mode" yaml:"mode"`

	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	GRPC      GRPCConfig      `json:"grpc" yaml:"grpc"`
	Dashboard DashboardConfig `json:"dashboard" yaml:"dashboard"`
	Snapshot  SnapshotConfig  `json:"snapshot" yaml:"snapshot"`
	Source    SourceConfig    `json:"source" yaml:"source"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// DashboardAddr is the HTTP address for the dashboard API
	DashboardAddr string `json:"dashboard_addr" yaml:"dashboard_addr"`

	// SnapshotAddr is the HTTP address for the snapshot backend (/data, /update-all)
	SnapshotAddr string `json:"snapshot_addr" yaml:"snapshot_addr"`

	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// GRPCConfig holds gRPC server configuration.
type GRPCConfig struct {
	// Addr is the gRPC health server address
	Addr string `json:"addr" yaml:"addr"`

	// Enabled controls whether gRPC is enabled
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// DashboardConfig holds dashboard configuration.
type DashboardConfig struct {
	// BaseURL is the snapshot backend the fetcher reads /data/{resource} from
	BaseURL string `json:"base_url" yaml:"base_url"`

	// FetchTimeout bounds a single resource request. Zero means no timeout.
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout"`

	// ExportDir is where CSV exports are written
	ExportDir string `json:"export_dir" yaml:"export_dir"`

	// RefreshInterval re-runs the fetch cycle periodically. Zero disables it.
	RefreshInterval time.Duration `json:"refresh_interval" yaml:"refresh_interval"`
}

// SnapshotConfig holds snapshot backend configuration.
type SnapshotConfig struct {
	// Tables is the list of tables pulled from the source on every refresh
	Tables []string `json:"tables" yaml:"tables"`

	// RefreshHour and RefreshMinute set the daily refresh time in UTC
	RefreshHour   int `json:"refresh_hour" yaml:"refresh_hour"`
	RefreshMinute int `json:"refresh_minute" yaml:"refresh_minute"`

	// Concurrency is the number of tables pulled in parallel
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// RefreshOnStart pulls every table once at startup
	RefreshOnStart bool `json:"refresh_on_start" yaml:"refresh_on_start"`
}

// SourceConfig holds the database the snapshot backend pulls from.
type SourceConfig struct {
	// Driver is one of postgres, mysql, sqlite
	Driver string `json:"driver" yaml:"driver"`

	// DSN is the driver-specific connection string
	DSN string `json:"dsn" yaml:"dsn"`

	// QueryTimeout bounds a single table pull
	QueryTimeout time.Duration `json:"query_timeout" yaml:"query_timeout"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	Bucket   string `json:"bucket" yaml:"bucket"`
	Region   string `json:"region" yaml:"region"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" yaml:"level"`

	// Development switches to the human-readable console encoder
	Development bool `json:"development" yaml:"development"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		Mode:    ModeAll,
		DataDir: "./data/forge",
		HTTP: HTTPConfig{
			DashboardAddr: ":8080",
			SnapshotAddr:  ":8000",
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  60 * time.Second,
			IdleTimeout:   120 * time.Second,
		},
		GRPC: GRPCConfig{
			Addr:    ":9090",
			Enabled: true,
		},
		Dashboard: DashboardConfig{
			BaseURL: "http://localhost:8000",
		},
		Snapshot: SnapshotConfig{
			Tables:         nil,
			RefreshHour:    2,
			RefreshMinute:  0,
			Concurrency:    4,
			RefreshOnStart: true,
		},
		Source: SourceConfig{
			Driver:       "postgres",
			QueryTimeout: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Type: "local",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/forge"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
	if c.Dashboard.ExportDir == "" {
		c.Dashboard.ExportDir = filepath.Join(c.DataDir, "exports")
	}
	if c.Snapshot.Concurrency <= 0 {
		c.Snapshot.Concurrency = 1
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAll, ModeDashboard, ModeSnapshot:
	default:
		return fmt.Errorf("invalid mode: %s (must be all, dashboard, or snapshot)", c.Mode)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	if c.ShouldRunDashboard() && c.Dashboard.BaseURL == "" {
		return fmt.Errorf("dashboard.base_url is required")
	}

	if c.ShouldRunSnapshot() {
		switch c.Source.Driver {
		case "postgres", "mysql", "sqlite":
		default:
			return fmt.Errorf("invalid source driver: %s (must be postgres, mysql, or sqlite)", c.Source.Driver)
		}
		if c.Source.DSN == "" {
			return fmt.Errorf("source.dsn is required in %s mode", c.Mode)
		}
		if c.Snapshot.RefreshHour < 0 || c.Snapshot.RefreshHour > 23 {
			return fmt.Errorf("snapshot.refresh_hour must be between 0 and 23, got %d", c.Snapshot.RefreshHour)
		}
		if c.Snapshot.RefreshMinute < 0 || c.Snapshot.RefreshMinute > 59 {
			return fmt.Errorf("snapshot.refresh_minute must be between 0 and 59, got %d", c.Snapshot.RefreshMinute)
		}
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	return nil
}

// ShouldRunDashboard returns true if the dashboard service should run.
func (c *Config) ShouldRunDashboard() bool {
	return c.Mode == ModeAll || c.Mode == ModeDashboard
}

// ShouldRunSnapshot returns true if the snapshot backend should run.
func (c *Config) ShouldRunSnapshot() bool {
	return c.Mode == ModeAll || c.Mode == ModeSnapshot
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the FORGE_ prefix. TABLES is also honoured for
// compatibility with existing snapshot deployments.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("FORGE_MODE"); v != "" {
		cfg.Mode = Mode(v)
	}
	if v := os.Getenv("FORGE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// HTTP configuration
	if v := os.Getenv("FORGE_HTTP_DASHBOARD_ADDR"); v != "" {
		cfg.HTTP.DashboardAddr = v
	}
	if v := os.Getenv("FORGE_HTTP_SNAPSHOT_ADDR"); v != "" {
		cfg.HTTP.SnapshotAddr = v
	}

	// gRPC configuration
	if v := os.Getenv("FORGE_GRPC_ADDR"); v != "" {
		cfg.GRPC.Addr = v
	}
	if v := os.Getenv("FORGE_GRPC_ENABLED"); v != "" {
		cfg.GRPC.Enabled = v == "true" || v == "1"
	}

	// Dashboard configuration
	if v := os.Getenv("FORGE_DASHBOARD_BASE_URL"); v != "" {
		cfg.Dashboard.BaseURL = v
	}
	if v := os.Getenv("FORGE_DASHBOARD_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Dashboard.FetchTimeout = d
		}
	}
	if v := os.Getenv("FORGE_DASHBOARD_EXPORT_DIR"); v != "" {
		cfg.Dashboard.ExportDir = v
	}
	if v := os.Getenv("FORGE_DASHBOARD_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Dashboard.RefreshInterval = d
		}
	}

	// Snapshot configuration
	tables := os.Getenv("FORGE_SNAPSHOT_TABLES")
	if tables == "" {
		tables = os.Getenv("TABLES")
	}
	if tables != "" {
		cfg.Snapshot.Tables = SplitTables(tables)
	}
	if v := os.Getenv("FORGE_SNAPSHOT_REFRESH_HOUR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Snapshot.RefreshHour = n
		}
	}
	if v := os.Getenv("FORGE_SNAPSHOT_REFRESH_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Snapshot.RefreshMinute = n
		}
	}
	if v := os.Getenv("FORGE_SNAPSHOT_CONCURRENCY"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Snapshot.Concurrency)
	}
	if v := os.Getenv("FORGE_SNAPSHOT_REFRESH_ON_START"); v != "" {
		cfg.Snapshot.RefreshOnStart = v == "true" || v == "1"
	}

	// Source configuration
	if v := os.Getenv("FORGE_SOURCE_DRIVER"); v != "" {
		cfg.Source.Driver = v
	}
	if v := os.Getenv("FORGE_SOURCE_DSN"); v != "" {
		cfg.Source.DSN = v
	}

	// Storage configuration
	if v := os.Getenv("FORGE_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("FORGE_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("FORGE_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("FORGE_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("FORGE_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}

	// Log configuration
	if v := os.Getenv("FORGE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("FORGE_LOG_DEVELOPMENT"); v != "" {
		cfg.Log.Development = v == "true" || v == "1"
	}
}

// SplitTables parses a comma-separated table list, dropping blanks.
func SplitTables(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		c.Dashboard.ExportDir,
	}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
