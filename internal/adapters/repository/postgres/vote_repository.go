package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

func (r *voteRepository) SaveVote(ctx context.Context, vote *domain.Vote) error {
	query := `
		INSERT INTO poll_votes (id, poll_id, slot_key, day, hour, vote_date, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	slot := vote.Slot
	err := r.db.QueryRowContext(ctx, query,
		vote.ID, vote.PollID, slot.Key(),
		nullString(slot.Day), nullString(slot.Hour), nullString(slot.Date),
		vote.VoterID,
	).Scan(&vote.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %w", domain.ErrAlreadyVoted, err)
		}
		return fmt.Errorf("failed to save vote: %w", err)
	}
	return nil
}

func (r *voteRepository) DeleteVote(ctx context.Context, pollID uuid.UUID, key domain.SlotKey, voterID uuid.UUID) error {
	query := `DELETE FROM poll_votes WHERE poll_id = $1 AND slot_key = $2 AND user_id = $3`
	if _, err := r.db.ExecContext(ctx, query, pollID, key, voterID); err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return nil
}

func (r *voteRepository) ListByPoll(ctx context.Context, pollID uuid.UUID) ([]*domain.Vote, error) {
	query := `
		SELECT id, poll_id, day, hour, vote_date, user_id, created_at
		FROM poll_votes
		WHERE poll_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []*domain.Vote
	for rows.Next() {
		var (
			vote      domain.Vote
			day, hour sql.NullString
			date      sql.NullTime
		)
		if err := rows.Scan(&vote.ID, &vote.PollID, &day, &hour, &date, &vote.VoterID, &vote.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		if date.Valid {
			vote.Slot = domain.CalendarSlot(date.Time)
		} else {
			vote.Slot = domain.ScheduleSlot(day.String, hour.String)
		}
		votes = append(votes, &vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return votes, nil
}
