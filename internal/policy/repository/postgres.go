package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"organizer-team/backend/internal/policy/domain"
)

const policyColumns = `id, organizer_id, name, rules, enabled, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a policy repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the policy for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM organizer_policies WHERE id = $1`, id)
	var p domain.Policy
	err := row.Scan(&p.ID, &p.OrganizerID, &p.Name, &p.Rules, &p.Enabled, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListByOrganizer returns all policies for the organizer, oldest first.
func (r *PostgresRepository) ListByOrganizer(ctx context.Context, organizerID string) ([]*domain.Policy, error) {
	return r.list(ctx, `SELECT `+policyColumns+` FROM organizer_policies WHERE organizer_id = $1 ORDER BY created_at, id`, organizerID)
}

// GetEnabledByOrganizer returns the enabled policies for the organizer, oldest first.
func (r *PostgresRepository) GetEnabledByOrganizer(ctx context.Context, organizerID string) ([]*domain.Policy, error) {
	return r.list(ctx, `SELECT `+policyColumns+` FROM organizer_policies WHERE organizer_id = $1 AND enabled ORDER BY created_at, id`, organizerID)
}

func (r *PostgresRepository) list(ctx context.Context, query, organizerID string) ([]*domain.Policy, error) {
	rows, err := r.db.QueryContext(ctx, query, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Policy
	for rows.Next() {
		var p domain.Policy
		if err := rows.Scan(&p.ID, &p.OrganizerID, &p.Name, &p.Rules, &p.Enabled, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Create persists the policy. The policy must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Policy) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizer_policies (`+policyColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.OrganizerID, p.Name, p.Rules, p.Enabled, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

// Update overwrites name, rules and enabled for an existing policy.
func (r *PostgresRepository) Update(ctx context.Context, p *domain.Policy) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE organizer_policies SET name = $2, rules = $3, enabled = $4 WHERE id = $1`,
		p.ID, p.Name, p.Rules, p.Enabled)
	if err != nil {
		return fmt.Errorf("update policy: %w", err)
	}
	return nil
}

// Delete removes the policy. Deleting a missing policy is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM organizer_policies WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete policy: %w", err)
	}
	return nil
}
