package app

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/forgev2/forge-admin/internal/config"
)

func seedSource(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "forge.db")
	db, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE user (id TEXT, name TEXT, email TEXT)`,
		`INSERT INTO user VALUES ('u1', 'Ada', 'ada@x.io'), ('u2', 'Bob', 'bob@x.io')`,
		`CREATE TABLE subscription (id TEXT, reference_id TEXT, plan TEXT, status TEXT, stripe_customer_id TEXT)`,
		`INSERT INTO subscription VALUES ('s1', 'u1', 'pro', 'active', 'cus_1'), ('s2', 'u2', 'team', 'active', 'cus_2')`,
		`CREATE TABLE user_stats (user_id TEXT, total_api_calls INTEGER)`,
		`INSERT INTO user_stats VALUES ('u1', 5), ('u2', 7)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return dsn
}

func baseConfig(t *testing.T, mode config.Mode) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Mode = mode
	cfg.DataDir = t.TempDir()
	cfg.HTTP.DashboardAddr = "127.0.0.1:0"
	cfg.HTTP.SnapshotAddr = "127.0.0.1:0"
	cfg.GRPC.Addr = "127.0.0.1:0"
	return cfg
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestApp_SnapshotFeedsDashboard(t *testing.T) {
	ctx := context.Background()

	snapCfg := baseConfig(t, config.ModeSnapshot)
	snapCfg.Source = config.SourceConfig{Driver: "sqlite", DSN: seedSource(t)}
	snapCfg.Snapshot.Tables = []string{"user", "subscription", "user_stats"}

	snapApp, err := New(snapCfg, nil)
	require.NoError(t, err)
	require.NoError(t, snapApp.Start(ctx))
	defer snapApp.Stop(ctx)
	require.NotNil(t, snapApp.GRPCAddr())

	require.Eventually(t, func() bool { return snapApp.refresher.Runs() > 0 }, 10*time.Second, 20*time.Millisecond)

	snapURL := "http://" + snapApp.SnapshotAddr().String()
	var data struct {
		Table string                   `json:"table"`
		Rows  int                      `json:"rows"`
		Data  []map[string]interface{} `json:"data"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, snapURL+"/data/user", &data))
	require.Equal(t, 2, data.Rows)
	require.Equal(t, "Ada", data.Data[0]["name"])

	dashCfg := baseConfig(t, config.ModeDashboard)
	dashCfg.Dashboard.BaseURL = snapURL
	dashApp, err := New(dashCfg, nil)
	require.NoError(t, err)
	require.NoError(t, dashApp.Start(ctx))
	defer dashApp.Stop(ctx)
	require.Nil(t, dashApp.SnapshotAddr())

	var overview map[string]interface{}
	dashURL := "http://" + dashApp.DashboardAddr().String()
	require.Equal(t, http.StatusOK, getJSON(t, dashURL+"/v1/overview", &overview))
	require.Equal(t, float64(1), overview["pro_count"])
	require.Equal(t, float64(1), overview["team_count"])
	require.Equal(t, float64(60), overview["estimated_revenue"])
	require.Equal(t, float64(12), overview["summary"].(map[string]interface{})["total_api_calls"])
}

func TestApp_StartTwiceAndStop(t *testing.T) {
	ctx := context.Background()

	cfg := baseConfig(t, config.ModeDashboard)
	a, err := New(cfg, nil)
	require.NoError(t, err)

	require.NoError(t, a.Start(ctx))
	require.Error(t, a.Start(ctx))
	require.NoError(t, a.Stop(ctx))
	require.NoError(t, a.Stop(ctx))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := baseConfig(t, config.ModeSnapshot)
	cfg.Source.DSN = ""
	_, err := New(cfg, nil)
	require.Error(t, err)
}
