package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"organizer-team/backend/internal/authz"
	"organizer-team/backend/internal/membership/domain"
	"organizer-team/backend/internal/policy/engine"
)

// MembershipReader is the read side of the membership repository.
type MembershipReader interface {
	GetByOrganizerAndUser(ctx context.Context, organizerID, userID string) (*domain.Membership, error)
	CountActiveOwners(ctx context.Context, organizerID string) (int, error)
}

// PolicyEvaluator returns organizer policy deny messages.
type PolicyEvaluator interface {
	Violations(ctx context.Context, in engine.Input) ([]string, error)
}

// CheckRequest asks whether ActorID may exercise Capability in OrganizerID.
type CheckRequest struct {
	OrganizerID  string
	ActorID      string
	Capability   authz.Capability
	TargetUserID string
	NewRole      domain.Role
	At           time.Time
}

// Verdict is the outcome of a check.
type Verdict struct {
	Allowed bool
	// DecidedBy names the strategy that decided, or "policy" when an organizer policy vetoed.
	DecidedBy  string
	Violations []string
}

// Authorizer loads current state, runs the decider and applies organizer policy vetoes.
// It answers the can question for request middleware and for features outside team management.
type Authorizer struct {
	memberships MembershipReader
	users       UserRepo
	organizers  OrganizerRepo
	decider     *authz.Decider
	policies    PolicyEvaluator
	logger      *zap.Logger
}

// NewAuthorizer returns an Authorizer using the default strategy chain. policies may be nil.
func NewAuthorizer(memberships MembershipReader, users UserRepo, organizers OrganizerRepo, policies PolicyEvaluator, logger *zap.Logger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authorizer{
		memberships: memberships,
		users:       users,
		organizers:  organizers,
		decider:     authz.NewDefaultDecider(),
		policies:    policies,
		logger:      logger,
	}
}

// Check returns the verdict for req. Missing organizer, actor or target yields NotFound.
func (a *Authorizer) Check(ctx context.Context, req CheckRequest) (Verdict, error) {
	if req.OrganizerID == "" || req.ActorID == "" {
		return Verdict{}, domain.InvalidInput("organizer id and actor id are required")
	}
	org, err := a.organizers.GetByID(ctx, req.OrganizerID)
	if err != nil {
		return Verdict{}, err
	}
	if org == nil {
		return Verdict{}, domain.NotFound("organizer %s not found", req.OrganizerID)
	}
	user, err := a.users.GetByID(ctx, req.ActorID)
	if err != nil {
		return Verdict{}, err
	}
	if user == nil {
		return Verdict{}, domain.NotFound("user %s not found", req.ActorID)
	}
	actorM, err := a.memberships.GetByOrganizerAndUser(ctx, org.ID, user.ID)
	if err != nil {
		return Verdict{}, err
	}

	var target *authz.Target
	if req.TargetUserID != "" || req.NewRole != "" {
		target = &authz.Target{NewRole: req.NewRole}
	}
	if req.TargetUserID != "" {
		tm, err := a.memberships.GetByOrganizerAndUser(ctx, org.ID, req.TargetUserID)
		if err != nil {
			return Verdict{}, err
		}
		if tm == nil {
			return Verdict{}, domain.NotFound("user %s is not a member of organizer %s", req.TargetUserID, org.ID)
		}
		target.Membership = tm
	}

	owners := 0
	if req.Capability == authz.CapRemove || req.Capability == authz.CapUpdateRole {
		if owners, err = a.memberships.CountActiveOwners(ctx, org.ID); err != nil {
			return Verdict{}, err
		}
	}

	dec, by := a.decider.Decide(authz.Request{
		Actor:      authz.Actor{UserID: user.ID, PlatformAdmin: user.IsPlatformAdmin, Membership: actorM},
		Capability: req.Capability,
		Organizer:  authz.Organizer{ID: org.ID, ActiveOwners: owners},
		Target:     target,
	})
	if dec != authz.Allow || a.policies == nil {
		return Verdict{Allowed: dec == authz.Allow, DecidedBy: by}, nil
	}

	in := engine.Input{
		Capability:     string(req.Capability),
		OrganizerID:    org.ID,
		OrganizerState: string(org.Status),
		ActiveOwners:   owners,
		ActorID:        user.ID,
		PlatformAdmin:  user.IsPlatformAdmin,
		Actor:          subject(actorM),
		NewRole:        string(req.NewRole),
		At:             req.At,
	}
	if target != nil {
		in.Target = subject(target.Membership)
	}
	violations, err := a.policies.Violations(ctx, in)
	if err != nil {
		return Verdict{}, err
	}
	if len(violations) > 0 {
		a.logger.Info("authz: organizer policy veto",
			zap.String("organizer_id", org.ID),
			zap.String("actor_id", user.ID),
			zap.String("capability", string(req.Capability)),
			zap.Strings("violations", violations),
		)
		return Verdict{Allowed: false, DecidedBy: "policy", Violations: violations}, nil
	}
	return Verdict{Allowed: true, DecidedBy: by}, nil
}

// Authorize is Check that turns a denial into an Unauthorized error.
func (a *Authorizer) Authorize(ctx context.Context, req CheckRequest) error {
	v, err := a.Check(ctx, req)
	if err != nil {
		return err
	}
	if !v.Allowed {
		return denied(req, v)
	}
	return nil
}

// AuthorizeAction is the pre-check run by the transport before a mutation. A denial by the
// last-owner guard is left to the action, which reports it as an invariant violation.
func (a *Authorizer) AuthorizeAction(ctx context.Context, req CheckRequest) error {
	v, err := a.Check(ctx, req)
	if err != nil {
		return err
	}
	if v.Allowed || v.DecidedBy == authz.LastOwnerGuard.Name() {
		return nil
	}
	return denied(req, v)
}

func denied(req CheckRequest, v Verdict) error {
	if len(v.Violations) > 0 {
		return domain.Unauthorized("%s denied: %s", req.Capability, strings.Join(v.Violations, "; "))
	}
	return domain.Unauthorized("user %s may not %s in organizer %s", req.ActorID, req.Capability, req.OrganizerID)
}

func subject(m *domain.Membership) *engine.Subject {
	if m == nil {
		return nil
	}
	return &engine.Subject{
		UserID:      m.UserID,
		Role:        string(m.Role),
		Permissions: m.Permissions.Strings(),
		Active:      m.IsActive,
		Accepted:    !m.IsPending(),
	}
}

// ActiveMembership returns the user's membership when it is active and accepted, or nil.
func (a *Authorizer) ActiveMembership(ctx context.Context, organizerID, userID string) (*domain.Membership, error) {
	m, err := a.memberships.GetByOrganizerAndUser(ctx, organizerID, userID)
	if err != nil {
		return nil, err
	}
	if !m.CanAct() {
		return nil, nil
	}
	return m, nil
}

// HasPermission reports whether the user holds p in the organizer, through role defaults or the
// overlay. Platform administrators hold every permission.
func (a *Authorizer) HasPermission(ctx context.Context, organizerID, userID string, p domain.Permission) (bool, error) {
	if !domain.IsKnownPermission(p) {
		return false, domain.InvalidPermission(string(p))
	}
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	if user.IsPlatformAdmin {
		return true, nil
	}
	m, err := a.ActiveMembership(ctx, organizerID, userID)
	if err != nil || m == nil {
		return false, err
	}
	return m.HasPermission(p), nil
}
