package repository

import (
	"context"

	"organizer-team/backend/internal/policy/domain"
)

// Repository defines persistence for organizer policies.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Policy, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]*domain.Policy, error)
	GetEnabledByOrganizer(ctx context.Context, organizerID string) ([]*domain.Policy, error)
	Create(ctx context.Context, p *domain.Policy) error
	Update(ctx context.Context, p *domain.Policy) error
	Delete(ctx context.Context, id string) error
}
