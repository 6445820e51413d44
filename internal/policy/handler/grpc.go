package handler

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"organizer-team/backend/internal/authz"
	"organizer-team/backend/internal/platform/grpcdesc"
	"organizer-team/backend/internal/platform/rbac"
	"organizer-team/backend/internal/policy/domain"
	"organizer-team/backend/internal/policy/repository"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "organizer.team.v1.OrganizerPolicyService"

// RulesValidator compiles Rego rules without storing them.
type RulesValidator interface {
	Validate(rules string) error
}

// OrganizerPolicyServiceServer is the server API for OrganizerPolicyService.
type OrganizerPolicyServiceServer interface {
	ListPolicies(context.Context, *ListPoliciesRequest) (*ListPoliciesResponse, error)
	CreatePolicy(context.Context, *CreatePolicyRequest) (*PolicyResponse, error)
	UpdatePolicy(context.Context, *UpdatePolicyRequest) (*PolicyResponse, error)
	DeletePolicy(context.Context, *DeletePolicyRequest) (*DeletePolicyResponse, error)
}

// ServiceDesc describes OrganizerPolicyService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrganizerPolicyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		grpcdesc.Unary(ServiceName, "ListPolicies", OrganizerPolicyServiceServer.ListPolicies),
		grpcdesc.Unary(ServiceName, "CreatePolicy", OrganizerPolicyServiceServer.CreatePolicy),
		grpcdesc.Unary(ServiceName, "UpdatePolicy", OrganizerPolicyServiceServer.UpdatePolicy),
		grpcdesc.Unary(ServiceName, "DeletePolicy", OrganizerPolicyServiceServer.DeletePolicy),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "organizer/team/v1/policy.json",
}

// Policy is the wire form of an organizer policy.
type Policy struct {
	ID          string    `json:"id"`
	OrganizerID string    `json:"organizer_id"`
	Name        string    `json:"name"`
	Rules       string    `json:"rules"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListPoliciesRequest struct {
	OrganizerID string `json:"organizer_id"`
}

type ListPoliciesResponse struct {
	Policies []*Policy `json:"policies"`
}

type CreatePolicyRequest struct {
	OrganizerID string `json:"organizer_id"`
	Name        string `json:"name"`
	Rules       string `json:"rules"`
	Enabled     bool   `json:"enabled"`
}

// UpdatePolicyRequest changes only the fields that are set.
type UpdatePolicyRequest struct {
	OrganizerID string  `json:"organizer_id"`
	ID          string  `json:"id"`
	Name        *string `json:"name,omitempty"`
	Rules       *string `json:"rules,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

type DeletePolicyRequest struct {
	OrganizerID string `json:"organizer_id"`
	ID          string `json:"id"`
}

type PolicyResponse struct {
	Policy *Policy `json:"policy"`
}

type DeletePolicyResponse struct{}

// Server implements OrganizerPolicyService. Every RPC requires the manage_settings capability in the
// request's organizer.
type Server struct {
	repo      repository.Repository
	validator RulesValidator
	authz     rbac.CapabilityChecker
	now       func() time.Time
}

// NewServer returns a new OrganizerPolicyService server.
func NewServer(repo repository.Repository, validator RulesValidator, authorizer rbac.CapabilityChecker) *Server {
	return &Server{repo: repo, validator: validator, authz: authorizer, now: time.Now}
}

// RegisterOrganizerPolicyServiceServer registers srv on s.
func RegisterOrganizerPolicyServiceServer(s grpc.ServiceRegistrar, srv OrganizerPolicyServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ListPolicies returns the organizer's policies, enabled or not.
func (s *Server) ListPolicies(ctx context.Context, req *ListPoliciesRequest) (*ListPoliciesResponse, error) {
	if err := s.require(ctx, req.OrganizerID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByOrganizer(ctx, req.OrganizerID)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to list policies")
	}
	out := make([]*Policy, 0, len(list))
	for _, p := range list {
		out = append(out, toPolicy(p))
	}
	return &ListPoliciesResponse{Policies: out}, nil
}

// CreatePolicy compiles and stores a new policy.
func (s *Server) CreatePolicy(ctx context.Context, req *CreatePolicyRequest) (*PolicyResponse, error) {
	if err := s.require(ctx, req.OrganizerID); err != nil {
		return nil, err
	}
	p := &domain.Policy{
		ID:          uuid.New().String(),
		OrganizerID: req.OrganizerID,
		Name:        strings.TrimSpace(req.Name),
		Rules:       req.Rules,
		Enabled:     req.Enabled,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.check(p); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, status.Error(codes.Internal, "failed to create policy")
	}
	return &PolicyResponse{Policy: toPolicy(p)}, nil
}

// UpdatePolicy changes name, rules or enabled flag of an existing policy.
func (s *Server) UpdatePolicy(ctx context.Context, req *UpdatePolicyRequest) (*PolicyResponse, error) {
	if err := s.require(ctx, req.OrganizerID); err != nil {
		return nil, err
	}
	p, err := s.load(ctx, req.OrganizerID, req.ID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Rules != nil {
		p.Rules = *req.Rules
	}
	if req.Enabled != nil {
		p.Enabled = *req.Enabled
	}
	if err := s.check(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, status.Error(codes.Internal, "failed to update policy")
	}
	return &PolicyResponse{Policy: toPolicy(p)}, nil
}

// DeletePolicy removes a policy.
func (s *Server) DeletePolicy(ctx context.Context, req *DeletePolicyRequest) (*DeletePolicyResponse, error) {
	if err := s.require(ctx, req.OrganizerID); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, req.OrganizerID, req.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, req.ID); err != nil {
		return nil, status.Error(codes.Internal, "failed to delete policy")
	}
	return &DeletePolicyResponse{}, nil
}

func (s *Server) require(ctx context.Context, organizerID string) error {
	_, err := rbac.RequireCapability(ctx, s.authz, organizerID, authz.CapManageSettings, rbac.Target{})
	return err
}

// load returns the policy only when it belongs to organizerID.
func (s *Server) load(ctx context.Context, organizerID, id string) (*domain.Policy, error) {
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to load policy")
	}
	if p == nil || p.OrganizerID != organizerID {
		return nil, status.Error(codes.NotFound, "policy not found")
	}
	return p, nil
}

func (s *Server) check(p *domain.Policy) error {
	if err := p.Validate(); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.validator.Validate(p.Rules); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid rules: %v", err)
	}
	return nil
}

func toPolicy(p *domain.Policy) *Policy {
	return &Policy{
		ID:          p.ID,
		OrganizerID: p.OrganizerID,
		Name:        p.Name,
		Rules:       p.Rules,
		Enabled:     p.Enabled,
		CreatedAt:   p.CreatedAt,
	}
}
