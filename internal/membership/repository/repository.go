package repository

import (
	"context"

	"organizer-team/backend/internal/membership/domain"
)

// ListFilter narrows ListByOrganizer. The zero value lists every row.
type ListFilter struct {
	ActiveOnly  bool
	PendingOnly bool
	// Roles restricts the result to these roles when non-empty.
	Roles []domain.Role
}

// Repository defines persistence for organizer memberships.
type Repository interface {
	GetByOrganizerAndUser(ctx context.Context, organizerID, userID string) (*domain.Membership, error)
	ListByOrganizer(ctx context.Context, organizerID string, filter ListFilter) ([]*domain.Membership, error)
	CountActiveOwners(ctx context.Context, organizerID string) (int, error)
	// InTx runs fn in a single transaction. Locks taken through tx are held until fn returns.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transaction-scoped view used for read-modify-write mutations.
type Tx interface {
	// LockOrganizer takes the organizer-wide mutation lock. Reports false when the organizer does not exist.
	// Every mutation that can change the number of active owners must hold it before counting.
	LockOrganizer(ctx context.Context, organizerID string) (bool, error)
	// GetForUpdate returns the membership row locked for update, or nil if none exists.
	GetForUpdate(ctx context.Context, organizerID, userID string) (*domain.Membership, error)
	// Get reads the membership row inside the transaction without locking it, or nil if none exists.
	Get(ctx context.Context, organizerID, userID string) (*domain.Membership, error)
	CountActiveOwners(ctx context.Context, organizerID string) (int, error)
	Insert(ctx context.Context, m *domain.Membership) error
	Update(ctx context.Context, m *domain.Membership) error
}
