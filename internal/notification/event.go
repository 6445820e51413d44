// Package notification carries membership change events to external delivery systems.
// Delivery is best-effort: callers dispatch after the change is committed and only log failures.
package notification

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a membership change.
type EventType string

const (
	EventInvitationSent     EventType = "invitation_sent"
	EventInvitationAccepted EventType = "invitation_accepted"
	EventRoleChanged        EventType = "role_changed"
	EventMemberRemoved      EventType = "member_removed"
	EventPermissionChanged  EventType = "permission_changed"
)

// Event is the payload handed to a Dispatcher. Only the fields relevant to Type are set.
type Event struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	OrganizerID   string    `json:"organizer_id"`
	OrganizerName string    `json:"organizer_name"`
	// UserID is the member the change is about.
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	ActorID   string `json:"actor_id"`
	// Recipients are the user ids that should be told about the change.
	Recipients     []string  `json:"recipients"`
	OldRole        string    `json:"old_role,omitempty"`
	NewRole        string    `json:"new_role,omitempty"`
	OldPermissions []string  `json:"old_permissions,omitempty"`
	NewPermissions []string  `json:"new_permissions,omitempty"`
	Message        string    `json:"message,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewEvent returns an event with a fresh id.
func NewEvent(typ EventType, organizerID, organizerName, userID, actorID string, at time.Time) Event {
	return Event{
		ID:            uuid.New().String(),
		Type:          typ,
		OrganizerID:   organizerID,
		OrganizerName: organizerName,
		UserID:        userID,
		ActorID:       actorID,
		OccurredAt:    at.UTC(),
	}
}

// AddRecipients appends ids not already present, skipping empty ids and the actor.
func (e *Event) AddRecipients(ids ...string) {
	for _, id := range ids {
		if id == "" || id == e.ActorID || e.hasRecipient(id) {
			continue
		}
		e.Recipients = append(e.Recipients, id)
	}
}

func (e *Event) hasRecipient(id string) bool {
	for _, r := range e.Recipients {
		if r == id {
			return true
		}
	}
	return false
}
