package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type pollResultRepository struct {
	db *sql.DB
}

func NewPollResultRepository(db *sql.DB) ports.PollResultRepository {
	return &pollResultRepository{
		db: db,
	}
}

// ReplaceSlotResults swaps a poll's snapshot rows in one transaction.
func (r *pollResultRepository) ReplaceSlotResults(ctx context.Context, pollID uuid.UUID, results []domain.PollSlotResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM poll_slot_results WHERE poll_id = $1`, pollID); err != nil {
		return fmt.Errorf("failed to clear results for poll %s: %w", pollID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO poll_slot_results (poll_id, slot_key, vote_count, tier, last_updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare result statement: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		if _, err := stmt.ExecContext(ctx, pollID, res.SlotKey, res.VoteCount, res.Tier, res.LastUpdatedAt); err != nil {
			return fmt.Errorf("failed to insert result %s: %w", res.SlotKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *pollResultRepository) GetSlotResults(ctx context.Context, pollID uuid.UUID) ([]domain.PollSlotResult, error) {
	query := `
		SELECT poll_id, slot_key, vote_count, tier, last_updated_at
		FROM poll_slot_results
		WHERE poll_id = $1
		ORDER BY tier = 0, tier, slot_key
	`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}
	defer rows.Close()

	var results []domain.PollSlotResult
	for rows.Next() {
		var res domain.PollSlotResult
		if err := rows.Scan(&res.PollID, &res.SlotKey, &res.VoteCount, &res.Tier, &res.LastUpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}
