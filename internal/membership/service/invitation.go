package service

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"organizer-team/backend/internal/authz"
	"organizer-team/backend/internal/membership/domain"
	"organizer-team/backend/internal/membership/repository"
	"organizer-team/backend/internal/notification"
	userdomain "organizer-team/backend/internal/user/domain"
)

// InviteInput describes an invitation. UserID wins over Email when both are set.
type InviteInput struct {
	OrganizerID string
	InviterID   string
	UserID      string
	Email       string
	Role        domain.Role
	// Permissions is the explicit overlay for the new member.
	Permissions []string
	Message     string
	At          time.Time
}

// Invite creates a pending membership, or resets an existing pending or removed one.
// A user that does not exist yet is created with an unverified email and a password nobody knows.
func (s *Service) Invite(ctx context.Context, in InviteInput) (*domain.Membership, error) {
	var out *domain.Membership
	err := s.observe(ctx, "Invite", in.OrganizerID, func(ctx context.Context) error {
		var err error
		out, err = s.invite(ctx, in)
		return err
	})
	return out, err
}

func (s *Service) invite(ctx context.Context, in InviteInput) (*domain.Membership, error) {
	if !in.Role.Valid() {
		return nil, domain.InvalidInput("unknown role %q", in.Role)
	}
	perms, err := domain.ParsePermissions(in.Permissions)
	if err != nil {
		return nil, err
	}
	at := s.at(in.At)

	org, err := s.loadOrganizer(ctx, in.OrganizerID)
	if err != nil {
		return nil, err
	}
	inviter, err := s.loadUser(ctx, in.InviterID, "inviter")
	if err != nil {
		return nil, err
	}

	// Checked before the target is resolved so an unauthorized caller cannot create users.
	inviterM, err := s.memberships.GetByOrganizerAndUser(ctx, org.ID, inviter.ID)
	if err != nil {
		return nil, err
	}
	actor := authz.Actor{UserID: inviter.ID, PlatformAdmin: inviter.IsPlatformAdmin, Membership: inviterM}
	if err := s.authorize(actor, authz.CapInvite, org.ID, &authz.Target{NewRole: in.Role}); err != nil {
		return nil, err
	}

	target, err := s.resolveInvitee(ctx, in, at)
	if err != nil {
		return nil, err
	}

	var saved *domain.Membership
	err = s.memberships.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		ok, err := tx.LockOrganizer(ctx, org.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFound("organizer %s not found", org.ID)
		}
		inviterM, err := tx.GetForUpdate(ctx, org.ID, inviter.ID)
		if err != nil {
			return err
		}
		actor.Membership = inviterM

		existing := inviterM
		if target.ID != inviter.ID {
			if existing, err = tx.GetForUpdate(ctx, org.ID, target.ID); err != nil {
				return err
			}
		}
		if existing == nil {
			if err := s.authorize(actor, authz.CapInvite, org.ID, &authz.Target{NewRole: in.Role}); err != nil {
				return err
			}
			saved = &domain.Membership{
				ID:          uuid.New().String(),
				OrganizerID: org.ID,
				UserID:      target.ID,
				Role:        in.Role,
				Permissions: perms,
				IsActive:    true,
				InvitedBy:   inviter.ID,
				JoinedAt:    at,
				CreatedAt:   at,
				UpdatedAt:   at,
			}
			if err := saved.Validate(); err != nil {
				return domain.InvalidInput("%v", err)
			}
			return tx.Insert(ctx, saved)
		}

		if existing.CanAct() {
			return domain.InvalidState("user %s is already an active member of organizer %s", target.ID, org.ID)
		}
		// A pending invitation is reissued against its current holder so the hierarchy still applies.
		var t *authz.Target
		if existing.IsActive {
			t = &authz.Target{Membership: existing, NewRole: in.Role}
		} else {
			t = &authz.Target{NewRole: in.Role}
		}
		if err := s.authorize(actor, authz.CapInvite, org.ID, t); err != nil {
			return err
		}
		saved = existing.Clone()
		saved.Role = in.Role
		saved.Permissions = perms
		saved.IsActive = true
		saved.InvitedBy = inviter.ID
		saved.JoinedAt = at
		saved.InvitationAcceptedAt = nil
		saved.UpdatedAt = at
		return tx.Update(ctx, saved)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("membership: invitation sent",
		zap.String("organizer_id", org.ID),
		zap.String("user_id", target.ID),
		zap.String("inviter_id", inviter.ID),
		zap.String("role", string(in.Role)),
	)
	ev := notification.NewEvent(notification.EventInvitationSent, org.ID, org.Name, target.ID, inviter.ID, at)
	ev.UserEmail = target.Email
	ev.UserName = target.Name
	ev.NewRole = string(saved.Role)
	ev.NewPermissions = saved.Permissions.Strings()
	ev.Message = in.Message
	ev.AddRecipients(target.ID)
	s.notify(ctx, ev)
	return saved, nil
}

// resolveInvitee finds the invited user by id or email, creating an account for unknown emails.
func (s *Service) resolveInvitee(ctx context.Context, in InviteInput, at time.Time) (*userdomain.User, error) {
	if in.UserID != "" {
		return s.loadUser(ctx, in.UserID, "user")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.InvalidInput("a user id or a valid email is required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, err
	}
	u = &userdomain.User{
		ID:            uuid.New().String(),
		Email:         email,
		PasswordHash:  hash,
		EmailVerified: false,
		Status:        userdomain.UserStatusActive,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// A concurrent invitation may have created the same email first.
		if again, lookupErr := s.users.GetByEmail(ctx, email); lookupErr == nil && again != nil {
			return again, nil
		}
		return nil, err
	}
	s.logger.Info("membership: created user for invitation", zap.String("user_id", u.ID))
	return u, nil
}

// AcceptInput identifies the invitation being accepted.
type AcceptInput struct {
	OrganizerID string
	UserID      string
	At          time.Time
}

// Accept marks a pending invitation as accepted. It fails with InvalidState when the inviter is no
// longer an active member, and with AlreadyAccepted when the invitation was accepted before.
func (s *Service) Accept(ctx context.Context, in AcceptInput) (*domain.Membership, error) {
	var out *domain.Membership
	err := s.observe(ctx, "Accept", in.OrganizerID, func(ctx context.Context) error {
		var err error
		out, err = s.accept(ctx, in)
		return err
	})
	return out, err
}

func (s *Service) accept(ctx context.Context, in AcceptInput) (*domain.Membership, error) {
	at := s.at(in.At)
	org, err := s.loadOrganizer(ctx, in.OrganizerID)
	if err != nil {
		return nil, err
	}
	if in.UserID == "" {
		return nil, domain.InvalidInput("user id is required")
	}

	var saved *domain.Membership
	err = s.memberships.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		ok, err := tx.LockOrganizer(ctx, org.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFound("organizer %s not found", org.ID)
		}
		m, err := tx.GetForUpdate(ctx, org.ID, in.UserID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.NotFound("no invitation for user %s in organizer %s", in.UserID, org.ID)
		}
		if !m.IsPending() {
			return domain.AlreadyAccepted("invitation for user %s in organizer %s was already accepted", in.UserID, org.ID)
		}
		if !m.IsActive {
			return domain.InvalidState("invitation for user %s in organizer %s was withdrawn", in.UserID, org.ID)
		}
		if err := s.checkInviterActive(ctx, tx, m); err != nil {
			return err
		}
		saved = m.Clone()
		saved.InvitationAcceptedAt = &at
		saved.IsActive = true
		saved.UpdatedAt = at
		return tx.Update(ctx, saved)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("membership: invitation accepted", zap.String("organizer_id", org.ID), zap.String("user_id", in.UserID))
	ev := notification.NewEvent(notification.EventInvitationAccepted, org.ID, org.Name, in.UserID, in.UserID, at)
	ev.NewRole = string(saved.Role)
	ev.AddRecipients(saved.InvitedBy)
	s.notify(ctx, ev)
	return saved, nil
}

// checkInviterActive requires the inviter to still be an active, accepted member or a platform administrator.
// An inviter who was removed and re-invited does not count until they accept again.
func (s *Service) checkInviterActive(ctx context.Context, tx repository.Tx, m *domain.Membership) error {
	if m.InvitedBy == "" || m.InvitedBy == m.UserID {
		return nil
	}
	inviterM, err := tx.GetForUpdate(ctx, m.OrganizerID, m.InvitedBy)
	if err != nil {
		return err
	}
	if inviterM.CanAct() {
		return nil
	}
	u, err := s.users.GetByID(ctx, m.InvitedBy)
	if err != nil {
		return err
	}
	if u != nil && u.IsPlatformAdmin {
		return nil
	}
	return domain.InvalidState("inviter %s is no longer an active member of organizer %s", m.InvitedBy, m.OrganizerID)
}
