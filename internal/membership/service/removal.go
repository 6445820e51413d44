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

// RemoveInput identifies the member to remove. ActorID equal to TargetUserID means leaving.
type RemoveInput struct {
	OrganizerID  string
	TargetUserID string
	ActorID      string
	Reason       string
	At           time.Time
}

// Remove deactivates the target's membership, keeping role and overlay for a later re-invitation.
// Removing the last active owner fails with InvariantViolation, including when they remove themselves.
func (s *Service) Remove(ctx context.Context, in RemoveInput) (*domain.Membership, error) {
	var out *domain.Membership
	err := s.observe(ctx, "Remove", in.OrganizerID, func(ctx context.Context) error {
		var err error
		out, err = s.remove(ctx, in)
		return err
	})
	return out, err
}

func (s *Service) remove(ctx context.Context, in RemoveInput) (*domain.Membership, error) {
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

	var saved *domain.Membership
	err = s.memberships.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		actor, target, err := s.lockPair(ctx, tx, org.ID, actorUser.ID, actorUser.IsPlatformAdmin, in.TargetUserID)
		if err != nil {
			return err
		}
		if !target.IsActive {
			return domain.InvalidState("user %s was already removed from organizer %s", in.TargetUserID, org.ID)
		}
		if err := s.authorize(actor, authz.CapRemove, org.ID, &authz.Target{Membership: target}); err != nil {
			return err
		}
		if target.IsActiveOwner() {
			owners, err := tx.CountActiveOwners(ctx, org.ID)
			if err != nil {
				return err
			}
			if owners-1 < 1 {
				return domain.InvariantViolation("cannot remove the last owner of organizer %s", org.ID)
			}
		}
		saved = target.Clone()
		saved.IsActive = false
		saved.UpdatedAt = at
		return tx.Update(ctx, saved)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("membership: member removed",
		zap.String("organizer_id", org.ID),
		zap.String("user_id", saved.UserID),
		zap.String("actor_id", actorUser.ID),
	)
	ev := notification.NewEvent(notification.EventMemberRemoved, org.ID, org.Name, saved.UserID, actorUser.ID, at)
	ev.OldRole = string(saved.Role)
	ev.Reason = in.Reason
	ev.AddRecipients(saved.UserID)
	ev.AddRecipients(s.adminRecipients(ctx, org.ID)...)
	s.notify(ctx, ev)
	return saved, nil
}
