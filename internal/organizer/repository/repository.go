package repository

import (
	"context"

	"organizer-team/backend/internal/organizer/domain"
)

// Repository defines persistence for organizers.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Organizer, error)
	Create(ctx context.Context, o *domain.Organizer) error
}
