package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

func TestPollsAreCopied(t *testing.T) {
	ctx := context.Background()
	polls := NewStore().Polls()

	poll := &domain.Poll{ID: uuid.New(), Kind: domain.PollKindSchedule, Name: "A", Days: []string{"Mon"}}
	require.NoError(t, polls.Save(ctx, poll))
	poll.Days[0] = "Sun"

	got, err := polls.GetByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mon"}, got.Days)

	got.Name = "changed"
	again, err := polls.GetByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)
}

func TestListForUserIncludesSharedPolls(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owner, guest := uuid.New(), uuid.New()

	mine := &domain.Poll{ID: uuid.New(), Name: "Zeta", OwnerID: guest}
	shared := &domain.Poll{ID: uuid.New(), Name: "Alpha", OwnerID: owner}
	other := &domain.Poll{ID: uuid.New(), Name: "Beta", OwnerID: owner}
	for _, p := range []*domain.Poll{mine, shared, other} {
		require.NoError(t, store.Polls().Save(ctx, p))
	}
	require.NoError(t, store.Members().Add(ctx, &domain.Membership{ID: uuid.New(), PollID: shared.ID, UserID: guest}))

	polls, err := store.Polls().ListForUser(ctx, guest)
	require.NoError(t, err)
	require.Len(t, polls, 2)
	assert.Equal(t, "Alpha", polls[0].Name)
	assert.Equal(t, "Zeta", polls[1].Name)
}

func TestVotesAreUniquePerSlotAndVoter(t *testing.T) {
	ctx := context.Background()
	votes := NewStore().Votes()
	pollID, voter := uuid.New(), uuid.New()

	vote := &domain.Vote{ID: uuid.New(), PollID: pollID, Slot: domain.ScheduleSlot("Mon", "07:00:00"), VoterID: voter, CreatedAt: time.Now()}
	require.NoError(t, votes.SaveVote(ctx, vote))
	assert.ErrorIs(t, votes.SaveVote(ctx, vote), domain.ErrAlreadyVoted)

	require.NoError(t, votes.DeleteVote(ctx, pollID, vote.Key(), voter))
	require.NoError(t, votes.DeleteVote(ctx, pollID, vote.Key(), voter))

	listed, err := votes.ListByPoll(ctx, pollID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	poll := &domain.Poll{ID: uuid.New(), Name: "A", OwnerID: uuid.New()}
	require.NoError(t, store.Polls().Save(ctx, poll))
	require.NoError(t, store.Votes().SaveVote(ctx, &domain.Vote{ID: uuid.New(), PollID: poll.ID, Slot: domain.ScheduleSlot("Mon", "07:00:00"), VoterID: uuid.New()}))

	require.NoError(t, store.Polls().Delete(ctx, poll.ID))
	assert.ErrorIs(t, store.Polls().Delete(ctx, poll.ID), domain.ErrPollNotFound)

	listed, err := store.Votes().ListByPoll(ctx, poll.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestListUsersByIDs(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()

	ana := &domain.User{Email: "ana@example.com"}
	bo := &domain.User{Email: "bo@example.com"}
	require.NoError(t, users.Create(ctx, ana))
	require.NoError(t, users.Create(ctx, bo))

	got, err := users.ListByIDs(ctx, []uuid.UUID{ana.ID, uuid.New(), bo.ID})
	require.NoError(t, err)
	emails := make([]string, 0, len(got))
	for _, u := range got {
		emails = append(emails, u.Email)
	}
	assert.ElementsMatch(t, []string{"ana@example.com", "bo@example.com"}, emails)
}

func TestRotateRefreshToken(t *testing.T) {
	ctx := context.Background()
	auth := NewStore().Auth()
	user := uuid.New()

	first := &domain.RefreshToken{UserID: user, TokenHash: "first", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, auth.StoreRefreshToken(ctx, first))

	next := &domain.RefreshToken{UserID: user, TokenHash: "second", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, auth.RotateRefreshToken(ctx, first.ID, next))
	assert.NotEqual(t, uuid.Nil, next.ID)

	old, err := auth.GetRefreshTokenByHash(ctx, "first")
	require.NoError(t, err)
	assert.True(t, old.Revoked)
	fresh, err := auth.GetRefreshTokenByHash(ctx, "second")
	require.NoError(t, err)
	assert.False(t, fresh.Revoked)

	again := &domain.RefreshToken{UserID: user, TokenHash: "third", ExpiresAt: time.Now().Add(time.Hour)}
	assert.ErrorIs(t, auth.RotateRefreshToken(ctx, first.ID, again), domain.ErrRefreshTokenRevoked)
	missing, err := auth.GetRefreshTokenByHash(ctx, "third")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
