package handler

import (
	"time"

	"organizer-team/backend/internal/membership/domain"
)

// Member is the wire form of a membership.
type Member struct {
	ID                   string     `json:"id"`
	OrganizerID          string     `json:"organizer_id"`
	UserID               string     `json:"user_id"`
	Role                 string     `json:"role"`
	Permissions          []string   `json:"permissions"`
	EffectivePermissions []string   `json:"effective_permissions"`
	IsActive             bool       `json:"is_active"`
	Pending              bool       `json:"pending"`
	InvitedBy            string     `json:"invited_by,omitempty"`
	JoinedAt             time.Time  `json:"joined_at"`
	InvitationAcceptedAt *time.Time `json:"invitation_accepted_at,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func toMember(m *domain.Membership) *Member {
	if m == nil {
		return nil
	}
	return &Member{
		ID:                   m.ID,
		OrganizerID:          m.OrganizerID,
		UserID:               m.UserID,
		Role:                 string(m.Role),
		Permissions:          m.Permissions.Strings(),
		EffectivePermissions: m.EffectivePermissions().Strings(),
		IsActive:             m.IsActive,
		Pending:              m.IsPending(),
		InvitedBy:            m.InvitedBy,
		JoinedAt:             m.JoinedAt,
		InvitationAcceptedAt: m.InvitationAcceptedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// MemberResponse wraps a single membership.
type MemberResponse struct {
	Member *Member `json:"member"`
}

// InviteRequest invites an existing user (by id or email) or a new user (by email).
type InviteRequest struct {
	OrganizerID string   `json:"organizer_id"`
	UserID      string   `json:"user_id,omitempty"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// AcceptRequest accepts the caller's own pending invitation.
type AcceptRequest struct {
	OrganizerID string `json:"organizer_id"`
}

// PermissionsRequest is shared by GrantPermissions, RevokePermissions and ReplacePermissions.
type PermissionsRequest struct {
	OrganizerID string   `json:"organizer_id"`
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
}

// UpdateRoleRequest changes a member's role. A non-nil Permissions also replaces the overlay.
type UpdateRoleRequest struct {
	OrganizerID string    `json:"organizer_id"`
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
	Permissions *[]string `json:"permissions,omitempty"`
}

// RemoveMemberRequest deactivates a member. UserID may be the caller.
type RemoveMemberRequest struct {
	OrganizerID string `json:"organizer_id"`
	UserID      string `json:"user_id"`
	Reason      string `json:"reason,omitempty"`
}

// GetMemberRequest reads one membership.
type GetMemberRequest struct {
	OrganizerID string `json:"organizer_id"`
	UserID      string `json:"user_id"`
}

// ListMembersRequest lists an organizer's team.
type ListMembersRequest struct {
	OrganizerID string   `json:"organizer_id"`
	ActiveOnly  bool     `json:"active_only,omitempty"`
	PendingOnly bool     `json:"pending_only,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// ListMembersResponse holds the listed members.
type ListMembersResponse struct {
	Members []*Member `json:"members"`
}

// CheckRequest asks whether the caller may exercise a capability.
type CheckRequest struct {
	OrganizerID  string `json:"organizer_id"`
	Capability   string `json:"capability"`
	TargetUserID string `json:"target_user_id,omitempty"`
	NewRole      string `json:"new_role,omitempty"`
}

// CheckResponse is the authorization verdict.
type CheckResponse struct {
	Allowed    bool     `json:"allowed"`
	DecidedBy  string   `json:"decided_by"`
	Violations []string `json:"violations,omitempty"`
}
