package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/orderpush/internal/domain"
)

type pgStaffRepository struct {
	pool *pgxpool.Pool
}

// NewPgStaffRepository returns a StaffRepository backed by PostgreSQL.
func NewPgStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &pgStaffRepository{pool: pool}
}

func (r *pgStaffRepository) QueryActiveRecipients(ctx context.Context, role string, routingKeys []string) ([]domain.Recipient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(push_token, ''), is_active
		FROM staff
		WHERE role = $1
		  AND is_active
		  AND branch_ids && $2::text[]
		ORDER BY id`, role, routingKeys)
	if err != nil {
		return nil, fmt.Errorf("query active recipients: %w", err)
	}
	defer rows.Close()

	var result []domain.Recipient
	for rows.Next() {
		var rc domain.Recipient
		if err := rows.Scan(&rc.IdentityID, &rc.Credential, &rc.Active); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		result = append(result, rc)
	}
	return result, rows.Err()
}

func (r *pgStaffRepository) GetByID(ctx context.Context, id string) (*domain.StaffRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, role, is_active, branch_ids, push_token,
		       push_token_invalidated_at, created_at, updated_at
		FROM staff WHERE id = $1`, id)

	var s domain.StaffRecord
	err := row.Scan(
		&s.ID, &s.Role, &s.Active, &s.BranchIDs, &s.PushToken,
		&s.PushTokenInvalidated, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get staff: %w", err)
	}
	return &s, nil
}

func (r *pgStaffRepository) ClearCredential(ctx context.Context, identityID, credential string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staff
		SET push_token = NULL, push_token_invalidated_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND push_token = $2`, identityID, credential)
	if err != nil {
		return false, fmt.Errorf("clear credential: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgStaffRepository) Upsert(ctx context.Context, s *domain.StaffRecord) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if s.BranchIDs == nil {
		s.BranchIDs = []string{}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff (id, role, is_active, branch_ids, push_token, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE
		SET role = EXCLUDED.role,
		    is_active = EXCLUDED.is_active,
		    branch_ids = EXCLUDED.branch_ids,
		    push_token = EXCLUDED.push_token,
		    updated_at = EXCLUDED.updated_at`,
		s.ID, s.Role, s.Active, s.BranchIDs, s.PushToken, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert staff: %w", err)
	}
	return nil
}
