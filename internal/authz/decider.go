// Package authz decides whether an identified actor may perform a team operation on an organizer.
//
// A Decider evaluates an ordered list of strategies. Each returns Allow, Deny or Abstain; the
// first non-abstaining answer wins and an exhausted chain denies.
package authz

import "organizer-team/backend/internal/membership/domain"

// Decision is a strategy's answer for one request.
type Decision int

const (
	Abstain Decision = iota
	Allow
	Deny
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "abstain"
	}
}

// Actor is the already-authenticated caller.
type Actor struct {
	UserID        string
	PlatformAdmin bool
	// Membership is the actor's row in the organizer, or nil when they have none.
	Membership *domain.Membership
}

// Organizer carries the organizer state a decision depends on.
type Organizer struct {
	ID string
	// ActiveOwners is the current number of active owner memberships.
	ActiveOwners int
}

// Target is the member being acted upon.
type Target struct {
	Membership *domain.Membership
	// NewRole is the role being assigned (update_role, invite). Empty when not applicable.
	NewRole domain.Role
}

// Request is one authorization question.
type Request struct {
	Actor      Actor
	Capability Capability
	Organizer  Organizer
	Target     *Target
}

func (r Request) targetMember() *domain.Membership {
	if r.Target == nil {
		return nil
	}
	return r.Target.Membership
}

func (r Request) newRole() domain.Role {
	if r.Target == nil {
		return ""
	}
	return r.Target.NewRole
}

// Strategy is one predicate in the chain.
type Strategy interface {
	Name() string
	Decide(req Request) Decision
}

type strategyFunc struct {
	name string
	fn   func(Request) Decision
}

func (s strategyFunc) Name() string                { return s.name }
func (s strategyFunc) Decide(req Request) Decision { return s.fn(req) }

// NewStrategy wraps fn as a named Strategy.
func NewStrategy(name string, fn func(Request) Decision) Strategy {
	return strategyFunc{name: name, fn: fn}
}

// Decider evaluates strategies in order, short-circuiting on the first Allow or Deny.
type Decider struct {
	strategies []Strategy
}

// NewDecider returns a Decider over the given strategies.
func NewDecider(strategies ...Strategy) *Decider {
	return &Decider{strategies: strategies}
}

// DefaultStrategies is the documented evaluation order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		ScopeGuard,
		LastOwnerGuard,
		PlatformAdminOverride,
		SelfRemoval,
		ActiveMemberRead,
		ExplicitPermission,
		RoleHierarchy,
	}
}

// ActionStrategies is the chain mutating actions use to decide Unauthorized. It leaves out the
// last-owner guard, which actions enforce themselves against an in-transaction owner count so
// they can report it as an invariant violation.
func ActionStrategies() []Strategy {
	return []Strategy{
		ScopeGuard,
		PlatformAdminOverride,
		SelfRemoval,
		ExplicitPermission,
		RoleHierarchy,
	}
}

// NewDefaultDecider returns a Decider over DefaultStrategies.
func NewDefaultDecider() *Decider {
	return NewDecider(DefaultStrategies()...)
}

// Decide returns the final decision and the name of the strategy that made it.
// An exhausted chain returns Deny with name "default".
func (d *Decider) Decide(req Request) (Decision, string) {
	for _, s := range d.strategies {
		if dec := s.Decide(req); dec != Abstain {
			return dec, s.Name()
		}
	}
	return Deny, "default"
}

// Can reports whether actor may perform capability on organizer, optionally against target.
func (d *Decider) Can(actor Actor, capability Capability, organizer Organizer, target *Target) bool {
	dec, _ := d.Decide(Request{Actor: actor, Capability: capability, Organizer: organizer, Target: target})
	return dec == Allow
}
