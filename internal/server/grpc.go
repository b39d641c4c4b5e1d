package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer returns a gRPC server exposing the standard health service, traced
// with otelgrpc. The returned health server is updated by the readiness checker.
func NewGRPCServer(opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	RegisterServices(s, hs)
	return s, hs
}

// RegisterServices registers the health and reflection services with s.
func RegisterServices(s grpc.ServiceRegistrar, hs healthpb.HealthServer) {
	healthpb.RegisterHealthServer(s, hs)
	if r, ok := s.(reflection.GRPCServer); ok {
		reflection.Register(r)
	}
}
