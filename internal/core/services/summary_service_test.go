package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

func TestSummarizeAllVotes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	votes := &flakyVotes{VoteRepository: store.Votes()}
	svc := NewSummaryService(store.Polls(), NewVoteService(votes, store.Users(), testLogger()), store.PollResults(), testLogger())

	a, b := uuid.New(), uuid.New()
	poll := schedulePoll(t, store, uuid.New(), "Mon")
	seedVote(t, store, poll, domain.ScheduleSlot("Mon", "07:00:00"), a)
	seedVote(t, store, poll, domain.ScheduleSlot("Mon", "07:00:00"), b)
	seedVote(t, store, poll, domain.ScheduleSlot("Mon", "08:00:00"), a)
	other := schedulePoll(t, store, uuid.New(), "Sat")

	require.NoError(t, svc.SummarizeAllVotes(ctx))

	results, err := store.PollResults().GetSlotResults(ctx, poll.ID)
	require.NoError(t, err)
	require.Len(t, results, 22)

	byKey := make(map[domain.SlotKey]domain.PollSlotResult, len(results))
	for _, r := range results {
		byKey[r.SlotKey] = r
	}
	assert.Equal(t, 2, byKey["Mon-07:00:00"].VoteCount)
	assert.Equal(t, 1, byKey["Mon-07:00:00"].Tier)
	assert.Equal(t, 2, byKey["Mon-08:00:00"].Tier)
	assert.Equal(t, 0, byKey["Mon-09:00:00"].Tier)

	results, err = store.PollResults().GetSlotResults(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, results, 22)
}

func TestSummarizeAllVotesReportsFailure(t *testing.T) {
	store := memory.NewStore()
	votes := &flakyVotes{VoteRepository: store.Votes(), failList: errBoom}
	svc := NewSummaryService(store.Polls(), NewVoteService(votes, store.Users(), testLogger()), store.PollResults(), testLogger())
	schedulePoll(t, store, uuid.New(), "Mon")

	err := svc.SummarizeAllVotes(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreRead)
}
