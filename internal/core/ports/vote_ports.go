package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/tally"
)

type VoteRepository interface {
	ListByPoll(ctx context.Context, pollID uuid.UUID) ([]*domain.Vote, error)
	SaveVote(ctx context.Context, vote *domain.Vote) error
	// DeleteVote removes the vote matching poll, slot and voter. Deleting a
	// vote that does not exist is not an error.
	DeleteVote(ctx context.Context, pollID uuid.UUID, key domain.SlotKey, voterID uuid.UUID) error
}

// VoteTally is the local vote state a toggle reads and patches.
// *tally.Aggregate satisfies it.
type VoteTally interface {
	HasVoted(key domain.SlotKey, voter uuid.UUID) bool
	Add(key domain.SlotKey, voter uuid.UUID) error
	Remove(key domain.SlotKey, voter uuid.UUID) error
}

type ToggleInput struct {
	Voter *uuid.UUID
	Poll  *domain.Poll
	Tally VoteTally
	Slot  domain.SlotKey
}

type VoteService interface {
	Toggle(ctx context.Context, input ToggleInput) (domain.VoteDirection, error)
	Tally(ctx context.Context, poll *domain.Poll) (*tally.Aggregate, error)
	// ResolveVoters maps the aggregate's voters, plus any extra ids, to their
	// emails. Lookup failures are logged and yield a partial map.
	ResolveVoters(ctx context.Context, agg *tally.Aggregate, extra ...uuid.UUID) map[uuid.UUID]string
}
