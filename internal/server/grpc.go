package server

import (
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer exposes the standard gRPC health service so orchestrators
// can probe the snapshot backend.
type HealthServer struct {
	addr   string
	server *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewHealthServer creates a health server. Every service starts NOT_SERVING.
func NewHealthServer(addr string, logger *zap.Logger, services ...string) *HealthServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	for _, svc := range services {
		hs.SetServingStatus(svc, healthpb.HealthCheckResponse_NOT_SERVING)
	}

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	return &HealthServer{addr: addr, server: gs, health: hs, logger: logger}
}

// SetServing flips the status of service and of the overall server.
func (h *HealthServer) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(service, status)
	h.health.SetServingStatus("", status)
}

// Start listens and serves in the background, registering with sm.
func (h *HealthServer) Start(sm *ShutdownManager) (net.Addr, error) {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return nil, err
	}
	sm.RegisterCloser("grpc-health", CloserFunc(func() error {
		h.health.Shutdown()
		h.server.GracefulStop()
		return nil
	}))

	go func() {
		h.logger.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
		if err := h.server.Serve(lis); err != nil {
			h.logger.Error("grpc health server failed", zap.Error(err))
		}
	}()
	return lis.Addr(), nil
}
