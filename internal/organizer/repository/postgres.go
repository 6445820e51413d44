package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"organizer-team/backend/internal/organizer/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organizer repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the organizer for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Organizer, error) {
	var (
		o      domain.Organizer
		status string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, status, created_at FROM organizers WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o.Status = domain.OrganizerStatus(status)
	return &o, nil
}

// Create persists the organizer. The organizer must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Organizer) error {
	if err := o.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizers (id, name, status, created_at) VALUES ($1, $2, $3, $4)`,
		o.ID, o.Name, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert organizer: %w", err)
	}
	return nil
}
