package health

import (
	"context"
	"time"

	"google.golang.org/grpc"

	healthgrpc "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server wraps grpc health server
type Server struct {
	server *healthgrpc.Server
}

// NewServer creates health server using default grpc health server.
func NewServer() *Server {
	return &Server{
		server: healthgrpc.NewServer(),
	}
}

// InitService marks serviceName as serving.
func (h *Server) InitService(serviceName string) {
	h.server.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
}

// SetServing sets the status of serviceName.
func (h *Server) SetServing(serviceName string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus(serviceName, status)
}

// Monitor runs check every interval and reflects the outcome in the status of
// serviceName until ctx is done.
func (h *Server) Monitor(ctx context.Context, serviceName string, interval time.Duration, check func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.SetServing(serviceName, check(ctx) == nil)
		}
	}
}

// Shutdown sets all serving status to NOT_SERVING.
func (h *Server) Shutdown() {
	h.server.Shutdown()
}

// Resume sets all serving status to SERVING.
func (h *Server) Resume() {
	h.server.Resume()
}

// Register registers health server.
func (h *Server) Register(grpc *grpc.Server) {
	healthpb.RegisterHealthServer(grpc, h.server)
}

// Check answers a health request for serviceName in process.
func (h *Server) Check(ctx context.Context, serviceName string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := h.server.Check(ctx, &healthpb.HealthCheckRequest{Service: serviceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
