// Package grpcserver exposes the standard gRPC health service for the
// ingest service.
//
// The overall service ("") is SERVING while the process runs. Each source
// is registered as its own service name and flips to NOT_SERVING when its
// latest run failed, so probes can tell a broken upstream from a dead pod.
package grpcserver

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"jobmate/ingest-service/internal/scraper"
)

// Server wraps a grpc.Server carrying the health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewServer registers the health service and marks every source SERVING
// until a run says otherwise.
func NewServer(sources ...string) *Server {
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	for _, src := range sources {
		hs.SetServingStatus(src, healthpb.HealthCheckResponse_SERVING)
	}

	return &Server{grpc: gs, health: hs}
}

// ReportRun updates the source's health from a finished run.
func (s *Server) ReportRun(res scraper.Result) {
	status := healthpb.HealthCheckResponse_SERVING
	if res.Err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(res.Source, status)
}

// Serve blocks accepting connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop marks everything NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
