package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

type PollResultRepository interface {
	ReplaceSlotResults(ctx context.Context, pollID uuid.UUID, results []domain.PollSlotResult) error
	GetSlotResults(ctx context.Context, pollID uuid.UUID) ([]domain.PollSlotResult, error)
}

type SummaryService interface {
	SummarizeAllVotes(ctx context.Context) error
}
