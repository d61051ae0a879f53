package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type membershipRepository struct {
	db *sql.DB
}

func NewMembershipRepository(db *sql.DB) ports.MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Add(ctx context.Context, m *domain.Membership) error {
	query := `
		INSERT INTO poll_members (id, poll_id, user_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, m.ID, m.PollID, m.UserID).Scan(&m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyMember
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (r *membershipRepository) Remove(ctx context.Context, pollID, membershipID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM poll_members WHERE poll_id = $1 AND id = $2`, pollID, membershipID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return expectRow(res, domain.ErrMemberNotFound)
}

func (r *membershipRepository) ListByPoll(ctx context.Context, pollID uuid.UUID) ([]*domain.Member, error) {
	query := `
		SELECT m.id, m.poll_id, m.user_id, m.created_at, u.email
		FROM poll_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.poll_id = $1
		ORDER BY u.email
	`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.PollID, &m.UserID, &m.CreatedAt, &m.Email); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

func (r *membershipRepository) IsMember(ctx context.Context, pollID, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM poll_members WHERE poll_id = $1 AND user_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, pollID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}
