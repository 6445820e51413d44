package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"organizer-team/backend/internal/db"
	"organizer-team/backend/internal/membership/domain"
)

const memberColumns = `id, organizer_id, user_id, role, permissions, is_active, invited_by, joined_at, invitation_accepted_at, created_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByOrganizerAndUser returns the membership for the pair, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByOrganizerAndUser(ctx context.Context, organizerID, userID string) (*domain.Membership, error) {
	return getMember(ctx, r.db, organizerID, userID, false)
}

// ListByOrganizer returns the organizer's memberships matching filter, oldest first.
func (r *PostgresRepository) ListByOrganizer(ctx context.Context, organizerID string, filter ListFilter) ([]*domain.Membership, error) {
	var (
		b    strings.Builder
		args = []any{organizerID}
	)
	b.WriteString(`SELECT ` + memberColumns + ` FROM organizer_members WHERE organizer_id = $1`)
	if filter.ActiveOnly {
		b.WriteString(` AND is_active`)
	}
	if filter.PendingOnly {
		b.WriteString(` AND invitation_accepted_at IS NULL`)
	}
	if len(filter.Roles) > 0 {
		placeholders := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			args = append(args, string(role))
			placeholders[i] = "$" + strconv.Itoa(len(args))
		}
		b.WriteString(` AND role IN (` + strings.Join(placeholders, ", ") + `)`)
	}
	b.WriteString(` ORDER BY created_at, id`)

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Membership
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountActiveOwners returns the number of active, accepted owner rows outside any transaction.
func (r *PostgresRepository) CountActiveOwners(ctx context.Context, organizerID string) (int, error) {
	return countActiveOwners(ctx, r.db, organizerID)
}

// InTx runs fn in a READ COMMITTED transaction.
func (r *PostgresRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return db.RunInTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(ctx, &postgresTx{tx: tx})
	})
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) LockOrganizer(ctx context.Context, organizerID string) (bool, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM organizers WHERE id = $1 FOR UPDATE`, organizerID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lock organizer: %w", err)
	}
	return true, nil
}

func (t *postgresTx) GetForUpdate(ctx context.Context, organizerID, userID string) (*domain.Membership, error) {
	return getMember(ctx, t.tx, organizerID, userID, true)
}

func (t *postgresTx) Get(ctx context.Context, organizerID, userID string) (*domain.Membership, error) {
	return getMember(ctx, t.tx, organizerID, userID, false)
}

func (t *postgresTx) CountActiveOwners(ctx context.Context, organizerID string) (int, error) {
	return countActiveOwners(ctx, t.tx, organizerID)
}

func (t *postgresTx) Insert(ctx context.Context, m *domain.Membership) error {
	perms, err := encodePermissions(m.Permissions)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO organizer_members (`+memberColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.OrganizerID, m.UserID, string(m.Role), perms, m.IsActive, nullString(m.InvitedBy),
		m.JoinedAt, nullTime(m), m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (t *postgresTx) Update(ctx context.Context, m *domain.Membership) error {
	perms, err := encodePermissions(m.Permissions)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE organizer_members
		    SET role = $2, permissions = $3, is_active = $4, invited_by = $5, joined_at = $6,
		        invitation_accepted_at = $7, updated_at = $8
		  WHERE id = $1`,
		m.ID, string(m.Role), perms, m.IsActive, nullString(m.InvitedBy), m.JoinedAt, nullTime(m), m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("update membership %s: %d rows affected", m.ID, n)
	}
	return nil
}

func getMember(ctx context.Context, q queryer, organizerID, userID string, forUpdate bool) (*domain.Membership, error) {
	query := `SELECT ` + memberColumns + ` FROM organizer_members WHERE organizer_id = $1 AND user_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	m, err := scanMember(q.QueryRowContext(ctx, query, organizerID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func countActiveOwners(ctx context.Context, q queryer, organizerID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM organizer_members WHERE organizer_id = $1 AND role = 'owner' AND is_active AND invitation_accepted_at IS NOT NULL`,
		organizerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count owners: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(s scanner) (*domain.Membership, error) {
	var (
		m         domain.Membership
		role      string
		perms     []byte
		invitedBy sql.NullString
		accepted  sql.NullTime
	)
	err := s.Scan(&m.ID, &m.OrganizerID, &m.UserID, &role, &perms, &m.IsActive, &invitedBy,
		&m.JoinedAt, &accepted, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	m.InvitedBy = invitedBy.String
	if accepted.Valid {
		t := accepted.Time
		m.InvitationAcceptedAt = &t
	}
	if m.Permissions, err = decodePermissions(perms); err != nil {
		return nil, err
	}
	return &m, nil
}

func encodePermissions(ps domain.PermissionSet) (string, error) {
	b, err := json.Marshal(ps.Strings())
	if err != nil {
		return "", fmt.Errorf("encode permissions: %w", err)
	}
	return string(b), nil
}

func decodePermissions(b []byte) (domain.PermissionSet, error) {
	if len(b) == 0 {
		return domain.PermissionSet{}, nil
	}
	var raw []string
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	ps := make([]domain.Permission, len(raw))
	for i, s := range raw {
		ps[i] = domain.Permission(s)
	}
	return domain.NewPermissionSet(ps...), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(m *domain.Membership) sql.NullTime {
	if m.InvitationAcceptedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *m.InvitationAcceptedAt, Valid: true}
}
