package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthhandler "organizer-team/backend/internal/health/handler"
	membershiphandler "organizer-team/backend/internal/membership/handler"
	policyhandler "organizer-team/backend/internal/policy/handler"
	policyrepo "organizer-team/backend/internal/policy/repository"
	"organizer-team/backend/internal/server/interceptors"
)

// PublicMethods are callable without a Bearer token.
var PublicMethods = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
	"/grpc.health.v1.Health/List":  true,
}

// Deps holds service dependencies for gRPC handlers.
type Deps struct {
	// Membership runs the team actions.
	Membership membershiphandler.Actions
	// Authorizer answers capability checks for both services.
	Authorizer membershiphandler.Authorizer
	// PolicyRepo stores organizer policies. If nil, OrganizerPolicyService is not registered.
	PolicyRepo policyrepo.Repository
	// PolicyValidator compiles policy rules before they are stored.
	PolicyValidator policyhandler.RulesValidator
	// HealthPinger is used by the health service for readiness (e.g. *sql.DB). If nil, Check skips the DB ping.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by the health service for readiness (the OPA evaluator).
	HealthPolicyChecker healthhandler.PolicyChecker
	Logger              *zap.Logger
}

// NewGRPCServer returns a server with OpenTelemetry stats, Bearer authentication and request logging.
func NewGRPCServer(tokens interceptors.TokenValidator, logger *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(tokens, PublicMethods),
			interceptors.LoggingUnary(logger, PublicMethods),
		),
	}, opts...)
	return grpc.NewServer(opts...)
}

// RegisterServices registers the organizer team services with the given server.
//
//   - organizer.team.v1.MembershipService     → internal/membership/handler
//   - organizer.team.v1.OrganizerPolicyService → internal/policy/handler
//   - grpc.health.v1.Health                    → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	services := []string{membershiphandler.ServiceName}
	membershiphandler.RegisterMembershipServiceServer(s, membershiphandler.NewServer(deps.Membership, deps.Authorizer))
	if deps.PolicyRepo != nil {
		policyhandler.RegisterOrganizerPolicyServiceServer(s, policyhandler.NewServer(deps.PolicyRepo, deps.PolicyValidator, deps.Authorizer))
		services = append(services, policyhandler.ServiceName)
	}
	healthpb.RegisterHealthServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker, deps.Logger, services...))
}
