package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestShutdownManager_ClosersRunInReverse(t *testing.T) {
	t.Parallel()

	sm := NewShutdownManager(ShutdownConfig{}, nil)
	var mu sync.Mutex
	var order []string
	closer := func(name string) io.Closer {
		return CloserFunc(func() error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}
	sm.RegisterCloser("first", closer("first"))
	sm.RegisterCloser("second", closer("second"))

	started := false
	sm.OnShutdownStart(func() { started = true })

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	require.True(t, started)
	require.Equal(t, []string{"second", "first"}, order)
	require.True(t, sm.IsShuttingDown())

	// Second call is a no-op.
	require.NoError(t, sm.Shutdown(context.Background(), "again"))
	require.Len(t, order, 2)

	select {
	case <-sm.ShutdownCh():
	default:
		t.Fatal("shutdown channel not closed")
	}
}

func TestShutdownManager_JoinsCloseErrors(t *testing.T) {
	t.Parallel()

	sm := NewShutdownManager(ShutdownConfig{}, nil)
	boom := errors.New("boom")
	sm.RegisterCloser("bad", CloserFunc(func() error { return boom }))
	sm.RegisterCloser("good", CloserFunc(func() error { return nil }))

	err := sm.Shutdown(context.Background(), "test")
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "close bad")
}

func TestShutdownManager_DrainTimeout(t *testing.T) {
	t.Parallel()

	sm := NewShutdownManager(ShutdownConfig{DrainTimeout: 100 * time.Millisecond}, nil)
	require.True(t, sm.TrackRequest())
	require.Equal(t, int64(1), sm.InFlightCount())

	err := sm.Shutdown(context.Background(), "test")
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 in-flight")
	require.False(t, sm.TrackRequest())
}

func TestShutdownMiddleware(t *testing.T) {
	t.Parallel()

	sm := NewShutdownManager(ShutdownConfig{}, nil)
	h := ShutdownMiddleware(sm)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.Equal(t, int64(1), sm.InFlightCount())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, int64(0), sm.InFlightCount())

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHTTPServer_StartAndShutdown(t *testing.T) {
	t.Parallel()

	sm := NewShutdownManager(ShutdownConfig{}, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	})
	srv := NewHTTPServer("test", &http.Server{Addr: "127.0.0.1:0", Handler: mux}, sm, nil)

	addr, err := srv.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/ping")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, "pong", string(body))

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	_, err = http.Get("http://" + addr.String() + "/ping")
	require.Error(t, err)
}

func TestHealthServer(t *testing.T) {
	t.Parallel()

	sm := NewShutdownManager(ShutdownConfig{}, nil)
	hs := NewHealthServer("127.0.0.1:0", nil, "forge.snapshot")
	addr, err := hs.Start(sm)
	require.NoError(t, err)
	defer sm.Shutdown(context.Background(), "test")

	conn, err := grpc.NewClient(addr.String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "forge.snapshot"})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	hs.SetServing("forge.snapshot", true)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "forge.snapshot"})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
