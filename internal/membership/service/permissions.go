package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"organizer-team/backend/internal/authz"
	"organizer-team/backend/internal/membership/domain"
	"organizer-team/backend/internal/membership/repository"
	"organizer-team/backend/internal/notification"
)

// PermissionsInput names the target overlay and the identifiers to apply.
type PermissionsInput struct {
	OrganizerID  string
	TargetUserID string
	ActorID      string
	Permissions  []string
	At           time.Time
}

type overlayOp struct {
	action string
	apply  func(current, given domain.PermissionSet) domain.PermissionSet
}

var (
	grantOp = overlayOp{"GrantPermissions", func(cur, given domain.PermissionSet) domain.PermissionSet {
		return cur.Union(given)
	}}
	revokeOp = overlayOp{"RevokePermissions", func(cur, given domain.PermissionSet) domain.PermissionSet {
		return cur.Without(given)
	}}
	replaceOp = overlayOp{"ReplacePermissions", func(_, given domain.PermissionSet) domain.PermissionSet {
		return given
	}}
)

// Grant adds permissions to the target's overlay. Granting a held permission again changes nothing.
func (s *Service) Grant(ctx context.Context, in PermissionsInput) (*domain.Membership, error) {
	return s.mutateOverlay(ctx, grantOp, in)
}

// Revoke removes permissions from the target's overlay. Role defaults are unaffected.
func (s *Service) Revoke(ctx context.Context, in PermissionsInput) (*domain.Membership, error) {
	return s.mutateOverlay(ctx, revokeOp, in)
}

// Replace sets the target's overlay to exactly the given permissions.
func (s *Service) Replace(ctx context.Context, in PermissionsInput) (*domain.Membership, error) {
	return s.mutateOverlay(ctx, replaceOp, in)
}

func (s *Service) mutateOverlay(ctx context.Context, op overlayOp, in PermissionsInput) (*domain.Membership, error) {
	var out *domain.Membership
	err := s.observe(ctx, op.action, in.OrganizerID, func(ctx context.Context) error {
		var err error
		out, err = s.applyOverlay(ctx, op, in)
		return err
	})
	return out, err
}

func (s *Service) applyOverlay(ctx context.Context, op overlayOp, in PermissionsInput) (*domain.Membership, error) {
	given, err := domain.ParsePermissions(in.Permissions)
	if err != nil {
		return nil, err
	}
	at := s.at(in.At)

	org, err := s.loadOrganizer(ctx, in.OrganizerID)
	if err != nil {
		return nil, err
	}
	actorUser, err := s.loadUser(ctx, in.ActorID, "actor")
	if err != nil {
		return nil, err
	}
	if in.TargetUserID == "" {
		return nil, domain.InvalidInput("target user id is required")
	}
	actor := authz.Actor{UserID: actorUser.ID, PlatformAdmin: actorUser.IsPlatformAdmin}

	var before, saved *domain.Membership
	err = s.memberships.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		// Only the target row is locked, so overlay changes on different members run in parallel.
		// The actor row is read without a lock to keep lock order consistent with role changes.
		actorM, err := tx.Get(ctx, org.ID, actor.UserID)
		if err != nil {
			return err
		}
		actor.Membership = actorM
		target, err := tx.GetForUpdate(ctx, org.ID, in.TargetUserID)
		if err != nil {
			return err
		}
		if target == nil {
			return domain.NotFound("user %s is not a member of organizer %s", in.TargetUserID, org.ID)
		}
		if !target.IsActive {
			return domain.InvalidState("membership of user %s in organizer %s is inactive", in.TargetUserID, org.ID)
		}
		if target.UserID == actor.UserID {
			actor.Membership = target
		}
		if err := s.authorize(actor, authz.CapManagePermissions, org.ID, &authz.Target{Membership: target}); err != nil {
			return err
		}

		next := op.apply(target.Permissions, given)
		before = target
		if next.Equal(target.Permissions) {
			saved = target
			return nil
		}
		saved = target.Clone()
		saved.Permissions = next
		saved.UpdatedAt = at
		return tx.Update(ctx, saved)
	})
	if err != nil {
		return nil, err
	}
	if saved == before {
		return saved, nil
	}

	s.logger.Info("membership: permissions changed",
		zap.String("organizer_id", org.ID),
		zap.String("user_id", saved.UserID),
		zap.String("actor_id", actor.UserID),
		zap.String("action", op.action),
	)
	ev := notification.NewEvent(notification.EventPermissionChanged, org.ID, org.Name, saved.UserID, actor.UserID, at)
	ev.OldPermissions = before.Permissions.Strings()
	ev.NewPermissions = saved.Permissions.Strings()
	ev.NewRole = string(saved.Role)
	ev.AddRecipients(saved.UserID)
	ev.AddRecipients(s.adminRecipients(ctx, org.ID)...)
	s.notify(ctx, ev)
	return saved, nil
}
