package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const checkTimeout = 2 * time.Second

// Pinger reports database reachability. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker reports whether the policy engine can compile and evaluate.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server implements the standard grpc.health.v1.Health service. Check probes the database and
// the policy engine on every call; a failing dependency yields NOT_SERVING, never an RPC error.
type Server struct {
	healthpb.UnimplementedHealthServer
	pinger        Pinger
	policyChecker PolicyChecker
	services      map[string]bool
	logger        *zap.Logger
}

// NewServer returns a health server. pinger and policyChecker may be nil. services lists the
// service names that may be queried besides the overall "" status.
func NewServer(pinger Pinger, policyChecker PolicyChecker, logger *zap.Logger, services ...string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	known := map[string]bool{"": true}
	for _, s := range services {
		known[s] = true
	}
	return &Server{pinger: pinger, policyChecker: policyChecker, services: known, logger: logger}
}

// Check returns the serving status for Kubernetes probes and load balancers.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if !s.services[req.GetService()] {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if s.pinger != nil {
		if err := s.pinger.PingContext(ctx); err != nil {
			s.logger.Warn("health: database ping failed", zap.Error(err))
			return notServing(), nil
		}
	}
	if s.policyChecker != nil {
		if err := s.policyChecker.HealthCheck(ctx); err != nil {
			s.logger.Warn("health: policy engine check failed", zap.Error(err))
			return notServing(), nil
		}
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

func notServing() *healthpb.HealthCheckResponse {
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}
}
