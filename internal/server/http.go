package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPServer is an http.Server whose lifetime is tied to a ShutdownManager.
type HTTPServer struct {
	name     string
	server   *http.Server
	shutdown *ShutdownManager
	logger   *zap.Logger
}

// NewHTTPServer wraps srv. The handler is put behind ShutdownMiddleware.
func NewHTTPServer(name string, srv *http.Server, sm *ShutdownManager, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv.Handler = ShutdownMiddleware(sm)(srv.Handler)
	return &HTTPServer{name: name, server: srv, shutdown: sm, logger: logger}
}

// Start listens on the configured address and serves in the background.
// The server is registered for graceful shutdown. It returns the bound
// address, which differs from the configured one when port 0 was requested.
func (s *HTTPServer) Start() (net.Addr, error) {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return nil, err
	}

	s.shutdown.RegisterCloser(s.name, CloserFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}))

	go func() {
		s.logger.Info("http server listening", zap.String("server", s.name), zap.String("addr", lis.Addr().String()))
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", zap.String("server", s.name), zap.Error(err))
		}
	}()
	return lis.Addr(), nil
}
