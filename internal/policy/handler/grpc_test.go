package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"organizer-team/backend/internal/authz"
	membershipdomain "organizer-team/backend/internal/membership/domain"
	"organizer-team/backend/internal/membership/service"
	"organizer-team/backend/internal/policy/domain"
	"organizer-team/backend/internal/server/interceptors"
)

// mockPolicyRepo implements repository.Repository for tests.
type mockPolicyRepo struct {
	policies  map[string]*domain.Policy
	createErr error
	listErr   error
	deleted   []string
}

func newMockPolicyRepo(ps ...*domain.Policy) *mockPolicyRepo {
	m := &mockPolicyRepo{policies: map[string]*domain.Policy{}}
	for _, p := range ps {
		m.policies[p.ID] = p
	}
	return m
}

func (m *mockPolicyRepo) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	p, ok := m.policies[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockPolicyRepo) ListByOrganizer(ctx context.Context, organizerID string) ([]*domain.Policy, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*domain.Policy
	for _, p := range m.policies {
		if p.OrganizerID == organizerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPolicyRepo) GetEnabledByOrganizer(ctx context.Context, organizerID string) ([]*domain.Policy, error) {
	return nil, nil
}

func (m *mockPolicyRepo) Create(ctx context.Context, p *domain.Policy) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.policies[p.ID] = p
	return nil
}

func (m *mockPolicyRepo) Update(ctx context.Context, p *domain.Policy) error {
	m.policies[p.ID] = p
	return nil
}

func (m *mockPolicyRepo) Delete(ctx context.Context, id string) error {
	delete(m.policies, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// mockValidator rejects rules equal to bad.
type mockValidator struct{ bad string }

func (v mockValidator) Validate(rules string) error {
	if rules == v.bad {
		return errors.New("rego_parse_error")
	}
	return nil
}

// mockAuthorizer allows only the listed callers.
type mockAuthorizer struct {
	allowed map[string]bool
	got     service.CheckRequest
}

func (a *mockAuthorizer) AuthorizeAction(ctx context.Context, req service.CheckRequest) error {
	a.got = req
	if !a.allowed[req.ActorID] {
		return membershipdomain.Unauthorized("denied")
	}
	return nil
}

const goodRules = "package organizer.team\n\ndeny contains \"no\" if input.capability == \"remove\"\n"

func newTestServer(repo *mockPolicyRepo) (*Server, *mockAuthorizer) {
	az := &mockAuthorizer{allowed: map[string]bool{"owner": true}}
	srv := NewServer(repo, mockValidator{bad: "garbage"}, az)
	srv.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return srv, az
}

func ctxFor(userID string) context.Context {
	return interceptors.WithIdentity(context.Background(), userID, "s1")
}

func TestCreatePolicy(t *testing.T) {
	repo := newMockPolicyRepo()
	srv, az := newTestServer(repo)

	resp, err := srv.CreatePolicy(ctxFor("owner"), &CreatePolicyRequest{OrganizerID: "org-1", Name: " no removals ", Rules: goodRules, Enabled: true})
	if err != nil {
		t.Fatalf("CreatePolicy: %v", err)
	}
	if resp.Policy.ID == "" || resp.Policy.Name != "no removals" || !resp.Policy.Enabled {
		t.Errorf("policy = %+v", resp.Policy)
	}
	if _, ok := repo.policies[resp.Policy.ID]; !ok {
		t.Error("policy not stored")
	}
	if az.got.Capability != authz.CapManageSettings {
		t.Errorf("capability = %q, want manage_settings", az.got.Capability)
	}
}

func TestCreatePolicy_Errors(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		req  *CreatePolicyRequest
		repo *mockPolicyRepo
		code codes.Code
	}{
		{"unauthenticated", context.Background(), &CreatePolicyRequest{OrganizerID: "org-1", Name: "n", Rules: goodRules}, newMockPolicyRepo(), codes.Unauthenticated},
		{"not allowed", ctxFor("staff"), &CreatePolicyRequest{OrganizerID: "org-1", Name: "n", Rules: goodRules}, newMockPolicyRepo(), codes.PermissionDenied},
		{"missing name", ctxFor("owner"), &CreatePolicyRequest{OrganizerID: "org-1", Rules: goodRules}, newMockPolicyRepo(), codes.InvalidArgument},
		{"invalid rules", ctxFor("owner"), &CreatePolicyRequest{OrganizerID: "org-1", Name: "n", Rules: "garbage"}, newMockPolicyRepo(), codes.InvalidArgument},
		{"store failure", ctxFor("owner"), &CreatePolicyRequest{OrganizerID: "org-1", Name: "n", Rules: goodRules}, &mockPolicyRepo{policies: map[string]*domain.Policy{}, createErr: errors.New("db")}, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(tt.repo)
			_, err := srv.CreatePolicy(tt.ctx, tt.req)
			if status.Code(err) != tt.code {
				t.Errorf("code = %v, want %v (%v)", status.Code(err), tt.code, err)
			}
		})
	}
}

func TestUpdatePolicy(t *testing.T) {
	repo := newMockPolicyRepo(&domain.Policy{ID: "p1", OrganizerID: "org-1", Name: "old", Rules: goodRules, Enabled: true})
	srv, _ := newTestServer(repo)

	disabled := false
	resp, err := srv.UpdatePolicy(ctxFor("owner"), &UpdatePolicyRequest{OrganizerID: "org-1", ID: "p1", Enabled: &disabled})
	if err != nil {
		t.Fatalf("UpdatePolicy: %v", err)
	}
	if resp.Policy.Enabled || resp.Policy.Name != "old" {
		t.Errorf("policy = %+v", resp.Policy)
	}
	if repo.policies["p1"].Enabled {
		t.Error("stored policy still enabled")
	}

	bad := "garbage"
	if _, err := srv.UpdatePolicy(ctxFor("owner"), &UpdatePolicyRequest{OrganizerID: "org-1", ID: "p1", Rules: &bad}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("bad rules code = %v, want InvalidArgument", status.Code(err))
	}
	if repo.policies["p1"].Rules != goodRules {
		t.Error("invalid rules were stored")
	}
	if _, err := srv.UpdatePolicy(ctxFor("owner"), &UpdatePolicyRequest{OrganizerID: "org-2", ID: "p1", Enabled: &disabled}); status.Code(err) != codes.NotFound {
		t.Errorf("other organizer code = %v, want NotFound", status.Code(err))
	}
}

func TestListAndDeletePolicies(t *testing.T) {
	repo := newMockPolicyRepo(
		&domain.Policy{ID: "p1", OrganizerID: "org-1", Name: "a", Rules: goodRules},
		&domain.Policy{ID: "p2", OrganizerID: "org-2", Name: "b", Rules: goodRules},
	)
	srv, _ := newTestServer(repo)

	list, err := srv.ListPolicies(ctxFor("owner"), &ListPoliciesRequest{OrganizerID: "org-1"})
	if err != nil {
		t.Fatalf("ListPolicies: %v", err)
	}
	if len(list.Policies) != 1 || list.Policies[0].ID != "p1" {
		t.Errorf("policies = %+v", list.Policies)
	}

	if _, err := srv.DeletePolicy(ctxFor("owner"), &DeletePolicyRequest{OrganizerID: "org-1", ID: "p2"}); status.Code(err) != codes.NotFound {
		t.Errorf("delete other organizer's policy code = %v, want NotFound", status.Code(err))
	}
	if _, err := srv.DeletePolicy(ctxFor("owner"), &DeletePolicyRequest{OrganizerID: "org-1", ID: "p1"}); err != nil {
		t.Fatalf("DeletePolicy: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "p1" {
		t.Errorf("deleted = %v", repo.deleted)
	}

	repo.listErr = errors.New("db")
	if _, err := srv.ListPolicies(ctxFor("owner"), &ListPoliciesRequest{OrganizerID: "org-1"}); status.Code(err) != codes.Internal {
		t.Errorf("list error code = %v, want Internal", status.Code(err))
	}
}
