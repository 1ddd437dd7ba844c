// Package grpcapi serves the standard gRPC health protocol for the service.
package grpcapi

import (
	"errors"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-check name reported next to the overall "" entry.
const ServiceName = "uploadai.API"

// HealthServer is a gRPC server exposing grpc.health.v1 only.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	lis    net.Listener
}

// NewHealthServer listens on addr and registers the health service, initially NOT_SERVING.
func NewHealthServer(addr string) (*HealthServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	server := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(server)

	hs := &HealthServer{server: server, health: healthServer, lis: lis}
	hs.SetServing(false)
	return hs, nil
}

// Addr returns the bound listener address.
func (h *HealthServer) Addr() string { return h.lis.Addr().String() }

// SetServing flips both the overall and the named service status.
func (h *HealthServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

// Start serves in a goroutine.
func (h *HealthServer) Start() {
	go func() {
		log.Info().Str("addr", h.Addr()).Msg("gRPC health server started")
		if err := h.server.Serve(h.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error().Err(err).Msg("gRPC serve failed")
		}
	}()
}

// Stop marks the service NOT_SERVING and stops gracefully.
func (h *HealthServer) Stop() {
	log.Info().Msg("Shutting down gRPC health server")
	h.health.Shutdown()
	h.server.GracefulStop()
}
