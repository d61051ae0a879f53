package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	applied, err := ApplyMigrations(ctx, db)
	require.NoError(t, err)
	require.Len(t, applied, 4)
	return db
}

func createUser(t *testing.T, repo *UserRepository, email string) *domain.User {
	t.Helper()
	user := &domain.User{Email: email, Name: email}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestRepositories(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	users := NewUserRepository(db).(*UserRepository)
	polls := NewPollRepository(db)
	members := NewMembershipRepository(db)
	votes := NewVoteRepository(db)
	results := NewPollResultRepository(db)

	owner := createUser(t, users, "owner@example.com")
	guest := createUser(t, users, "guest@example.com")

	t.Run("users", func(t *testing.T) {
		found, err := users.GetByEmail(ctx, "GUEST@example.com")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, guest.ID, found.ID)

		missing, err := users.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	schedule := &domain.Poll{
		ID:      uuid.New(),
		Kind:    domain.PollKindSchedule,
		Name:    "Standup",
		OwnerID: owner.ID,
		Status:  domain.PollStatusOpen,
		Days:    []string{"Mon", "Tue"},
	}
	require.NoError(t, polls.Save(ctx, schedule))

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	calendar := &domain.Poll{
		ID:        uuid.New(),
		Kind:      domain.PollKindCalendar,
		Name:      "Offsite",
		OwnerID:   guest.ID,
		Status:    domain.PollStatusOpen,
		StartDate: &start,
		EndDate:   &end,
	}
	require.NoError(t, polls.Save(ctx, calendar))

	t.Run("polls round trip", func(t *testing.T) {
		got, err := polls.GetByID(ctx, schedule.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Mon", "Tue"}, got.Days)
		assert.Nil(t, got.StartDate)

		got, err = polls.GetByID(ctx, calendar.ID)
		require.NoError(t, err)
		require.NotNil(t, got.StartDate)
		assert.Equal(t, "2024-05-01", got.StartDate.Format(domain.DateLayout))
		assert.Equal(t, "2024-05-03", got.EndDate.Format(domain.DateLayout))
		assert.Empty(t, got.Days)

		_, err = polls.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrPollNotFound)
	})

	t.Run("membership", func(t *testing.T) {
		listed, err := polls.ListForUser(ctx, guest.ID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, calendar.ID, listed[0].ID)

		m := &domain.Membership{ID: uuid.New(), PollID: schedule.ID, UserID: guest.ID}
		require.NoError(t, members.Add(ctx, m))
		err = members.Add(ctx, &domain.Membership{ID: uuid.New(), PollID: schedule.ID, UserID: guest.ID})
		assert.ErrorIs(t, err, domain.ErrAlreadyMember)

		listed, err = polls.ListForUser(ctx, guest.ID)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, "Offsite", listed[0].Name)
		assert.Equal(t, "Standup", listed[1].Name)

		ok, err := members.IsMember(ctx, schedule.ID, guest.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		list, err := members.ListByPoll(ctx, schedule.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "guest@example.com", list[0].Email)

		require.NoError(t, members.Remove(ctx, schedule.ID, m.ID))
		assert.ErrorIs(t, members.Remove(ctx, schedule.ID, m.ID), domain.ErrMemberNotFound)
	})

	t.Run("votes", func(t *testing.T) {
		mon := &domain.Vote{ID: uuid.New(), PollID: schedule.ID, Slot: domain.ScheduleSlot("Mon", "07:00:00"), VoterID: guest.ID}
		require.NoError(t, votes.SaveVote(ctx, mon))

		dup := &domain.Vote{ID: uuid.New(), PollID: schedule.ID, Slot: domain.ScheduleSlot("Mon", "07:00:00"), VoterID: guest.ID}
		assert.ErrorIs(t, votes.SaveVote(ctx, dup), domain.ErrAlreadyVoted)

		day := &domain.Vote{ID: uuid.New(), PollID: calendar.ID, Slot: domain.CalendarSlot(start), VoterID: owner.ID}
		require.NoError(t, votes.SaveVote(ctx, day))

		listed, err := votes.ListByPoll(ctx, schedule.ID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, domain.SlotKey("Mon-07:00:00"), listed[0].Key())

		listed, err = votes.ListByPoll(ctx, calendar.ID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, domain.SlotKey("2024-05-01"), listed[0].Key())

		require.NoError(t, votes.DeleteVote(ctx, schedule.ID, "Mon-07:00:00", guest.ID))
		require.NoError(t, votes.DeleteVote(ctx, schedule.ID, "Mon-07:00:00", guest.ID))
		listed, err = votes.ListByPoll(ctx, schedule.ID)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("slot results are replaced", func(t *testing.T) {
		now := time.Now()
		first := []domain.PollSlotResult{
			{PollID: schedule.ID, SlotKey: "Mon-07:00:00", VoteCount: 2, Tier: 1, LastUpdatedAt: now},
			{PollID: schedule.ID, SlotKey: "Mon-07:30:00", VoteCount: 0, Tier: 0, LastUpdatedAt: now},
		}
		require.NoError(t, results.ReplaceSlotResults(ctx, schedule.ID, first))
		require.NoError(t, results.ReplaceSlotResults(ctx, schedule.ID, first[:1]))

		got, err := results.GetSlotResults(ctx, schedule.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 2, got[0].VoteCount)
		assert.Equal(t, 1, got[0].Tier)
	})

	t.Run("status and delete", func(t *testing.T) {
		require.NoError(t, polls.UpdateStatus(ctx, schedule.ID, domain.PollStatusClosed))
		got, err := polls.GetByID(ctx, schedule.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PollStatusClosed, got.Status)

		require.NoError(t, polls.Delete(ctx, schedule.ID))
		assert.ErrorIs(t, polls.Delete(ctx, schedule.ID), domain.ErrPollNotFound)
	})
}

func TestRefreshTokens(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	users := NewUserRepository(db).(*UserRepository)
	auth := NewAuthRepository(db)
	user := createUser(t, users, "token@example.com")

	token := &domain.RefreshToken{UserID: user.ID, TokenHash: "hash", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, auth.StoreRefreshToken(ctx, token))
	assert.NotEqual(t, uuid.Nil, token.ID)

	got, err := auth.GetRefreshTokenByHash(ctx, "hash")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Revoked)

	require.NoError(t, auth.RevokeRefreshToken(ctx, token.ID))
	got, err = auth.GetRefreshTokenByHash(ctx, "hash")
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	missing, err := auth.GetRefreshTokenByHash(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	current := &domain.RefreshToken{UserID: user.ID, TokenHash: "current", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, auth.StoreRefreshToken(ctx, current))
	next := &domain.RefreshToken{UserID: user.ID, TokenHash: "next", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, auth.RotateRefreshToken(ctx, current.ID, next))

	got, err = auth.GetRefreshTokenByHash(ctx, "current")
	require.NoError(t, err)
	assert.True(t, got.Revoked)
	got, err = auth.GetRefreshTokenByHash(ctx, "next")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Revoked)

	replay := &domain.RefreshToken{UserID: user.ID, TokenHash: "replay", ExpiresAt: time.Now().Add(time.Hour)}
	assert.ErrorIs(t, auth.RotateRefreshToken(ctx, current.ID, replay), domain.ErrRefreshTokenRevoked)
	missing, err = auth.GetRefreshTokenByHash(ctx, "replay")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListUsersByIDs(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	users := NewUserRepository(db).(*UserRepository)
	ana := createUser(t, users, "ana@example.com")
	bo := createUser(t, users, "bo@example.com")

	got, err := users.ListByIDs(ctx, []uuid.UUID{ana.ID, bo.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, got, 2)

	none, err := users.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMigrationFileName(t *testing.T) {
	name, err := migrationFileName("create_votes.up")
	require.NoError(t, err)
	assert.Equal(t, "000003_create_votes.up.sql", name)

	_, err = migrationFileName("nope")
	assert.ErrorIs(t, err, ErrMigrationNotFound)
}

func TestConnString(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "poll", Password: "p@ss", Name: "slotpoll"}
	assert.Equal(t, "postgres://poll:p%40ss@db:5432/slotpoll?sslmode=disable", cfg.ConnString())
}
