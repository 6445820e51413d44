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

// UpdateRoleInput changes a member's role. A non-nil Permissions replaces the overlay in the same write.
type UpdateRoleInput struct {
	OrganizerID  string
	TargetUserID string
	ActorID      string
	NewRole      domain.Role
	Permissions  *[]string
	At           time.Time
}

// UpdateRole sets the target's role. Demoting the last active owner fails with InvariantViolation.
func (s *Service) UpdateRole(ctx context.Context, in UpdateRoleInput) (*domain.Membership, error) {
	var out *domain.Membership
	err := s.observe(ctx, "UpdateRole", in.OrganizerID, func(ctx context.Context) error {
		var err error
		out, err = s.updateRole(ctx, in)
		return err
	})
	return out, err
}

func (s *Service) updateRole(ctx context.Context, in UpdateRoleInput) (*domain.Membership, error) {
	if !in.NewRole.Valid() {
		return nil, domain.InvalidInput("unknown role %q", in.NewRole)
	}
	var overlay domain.PermissionSet
	if in.Permissions != nil {
		var err error
		if overlay, err = domain.ParsePermissions(*in.Permissions); err != nil {
			return nil, err
		}
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

	var before, saved *domain.Membership
	err = s.memberships.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		actor, target, err := s.lockPair(ctx, tx, org.ID, actorUser.ID, actorUser.IsPlatformAdmin, in.TargetUserID)
		if err != nil {
			return err
		}
		if !target.IsActive {
			return domain.InvalidState("membership of user %s in organizer %s is inactive", in.TargetUserID, org.ID)
		}
		if err := s.authorize(actor, authz.CapUpdateRole, org.ID, &authz.Target{Membership: target, NewRole: in.NewRole}); err != nil {
			return err
		}
		if target.IsActiveOwner() && in.NewRole != domain.RoleOwner {
			owners, err := tx.CountActiveOwners(ctx, org.ID)
			if err != nil {
				return err
			}
			if owners-1 < 1 {
				return domain.InvariantViolation("cannot demote the last owner of organizer %s", org.ID)
			}
		}

		before = target
		saved = target.Clone()
		saved.Role = in.NewRole
		if in.Permissions != nil {
			saved.Permissions = overlay
		}
		if saved.Role == before.Role && saved.Permissions.Equal(before.Permissions) {
			saved = before
			return nil
		}
		saved.UpdatedAt = at
		return tx.Update(ctx, saved)
	})
	if err != nil {
		return nil, err
	}
	if saved == before {
		return saved, nil
	}

	s.logger.Info("membership: role changed",
		zap.String("organizer_id", org.ID),
		zap.String("user_id", saved.UserID),
		zap.String("actor_id", actorUser.ID),
		zap.String("old_role", string(before.Role)),
		zap.String("new_role", string(saved.Role)),
	)
	ev := notification.NewEvent(notification.EventRoleChanged, org.ID, org.Name, saved.UserID, actorUser.ID, at)
	ev.OldRole = string(before.Role)
	ev.NewRole = string(saved.Role)
	if in.Permissions != nil {
		ev.OldPermissions = before.Permissions.Strings()
		ev.NewPermissions = saved.Permissions.Strings()
	}
	ev.AddRecipients(saved.UserID)
	ev.AddRecipients(s.adminRecipients(ctx, org.ID)...)
	s.notify(ctx, ev)
	return saved, nil
}

// lockPair takes the organizer lock, then locks the actor's and target's rows.
// The target must exist; the actor may have no membership.
func (s *Service) lockPair(ctx context.Context, tx repository.Tx, organizerID, actorID string, platformAdmin bool, targetID string) (authz.Actor, *domain.Membership, error) {
	actor := authz.Actor{UserID: actorID, PlatformAdmin: platformAdmin}
	ok, err := tx.LockOrganizer(ctx, organizerID)
	if err != nil {
		return actor, nil, err
	}
	if !ok {
		return actor, nil, domain.NotFound("organizer %s not found", organizerID)
	}
	if actor.Membership, err = tx.GetForUpdate(ctx, organizerID, actorID); err != nil {
		return actor, nil, err
	}
	target := actor.Membership
	if targetID != actorID {
		if target, err = tx.GetForUpdate(ctx, organizerID, targetID); err != nil {
			return actor, nil, err
		}
	}
	if target == nil {
		return actor, nil, domain.NotFound("user %s is not a member of organizer %s", targetID, organizerID)
	}
	return actor, target, nil
}
