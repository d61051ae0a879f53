package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

const pollColumns = `p.id, p.kind, p.name, p.description, p.owner_id, p.status, p.days, p.start_date, p.end_date, p.created_at`

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	query := `
		INSERT INTO polls (id, kind, name, description, owner_id, status, days, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	days := poll.Days
	if days == nil {
		days = []string{}
	}
	err := r.db.QueryRowContext(ctx, query,
		poll.ID, poll.Kind, poll.Name, poll.Description, poll.OwnerID, poll.Status,
		pq.Array(days), nullDate(poll.StartDate), nullDate(poll.EndDate),
	).Scan(&poll.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}
	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls p WHERE p.id = $1`

	poll, err := scanPoll(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}
	return poll, nil
}

func (r *pollRepository) GetAll(ctx context.Context) ([]*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls p ORDER BY p.created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all polls: %w", err)
	}
	defer rows.Close()

	return scanPolls(rows)
}

func (r *pollRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Poll, error) {
	query := `
		SELECT ` + pollColumns + `
		FROM polls p
		WHERE p.owner_id = $1
		   OR EXISTS (SELECT 1 FROM poll_members m WHERE m.poll_id = p.id AND m.user_id = $1)
		ORDER BY p.name, p.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	return scanPolls(rows)
}

func (r *pollRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PollStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE polls SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update poll status: %w", err)
	}
	return expectRow(res, domain.ErrPollNotFound)
}

func (r *pollRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	return expectRow(res, domain.ErrPollNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoll(row rowScanner) (*domain.Poll, error) {
	var (
		poll       domain.Poll
		days       pq.StringArray
		start, end sql.NullTime
	)
	err := row.Scan(
		&poll.ID, &poll.Kind, &poll.Name, &poll.Description, &poll.OwnerID,
		&poll.Status, &days, &start, &end, &poll.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(days) > 0 {
		poll.Days = []string(days)
	}
	if start.Valid {
		poll.StartDate = &start.Time
	}
	if end.Valid {
		poll.EndDate = &end.Time
	}
	return &poll, nil
}

func scanPolls(rows *sql.Rows) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}
	return polls, nil
}
