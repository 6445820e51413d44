package engine

import (
	"context"
	"time"
)

// Subject describes a membership as seen by policies.
type Subject struct {
	UserID      string
	Role        string
	Permissions []string
	Active      bool
	Accepted    bool
}

// Input is the document organizer policies evaluate against.
type Input struct {
	Capability     string
	OrganizerID    string
	OrganizerState string
	ActiveOwners   int
	ActorID        string
	PlatformAdmin  bool
	// Actor is nil when the caller has no membership in the organizer.
	Actor   *Subject
	Target  *Subject
	NewRole string
	At      time.Time
}

// Evaluator returns the deny messages organizer policies raise for in. An empty result means no veto.
type Evaluator interface {
	Violations(ctx context.Context, in Input) ([]string, error)
}

func (s *Subject) toMap() map[string]interface{} {
	if s == nil {
		return nil
	}
	perms := s.Permissions
	if perms == nil {
		perms = []string{}
	}
	return map[string]interface{}{
		"user_id":     s.UserID,
		"role":        s.Role,
		"permissions": perms,
		"active":      s.Active,
		"accepted":    s.Accepted,
	}
}

func (in Input) toMap() map[string]interface{} {
	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()
	return map[string]interface{}{
		"capability": in.Capability,
		"organizer": map[string]interface{}{
			"id":            in.OrganizerID,
			"status":        in.OrganizerState,
			"active_owners": in.ActiveOwners,
		},
		"actor": map[string]interface{}{
			"user_id":        in.ActorID,
			"platform_admin": in.PlatformAdmin,
			"membership":     in.Actor.toMap(),
		},
		"target":   in.Target.toMap(),
		"new_role": in.NewRole,
		"time": map[string]interface{}{
			"rfc3339": at.Format(time.RFC3339),
			"weekday": at.Weekday().String(),
			"hour":    at.Hour(),
		},
	}
}
