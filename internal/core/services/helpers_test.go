package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

var errBoom = errors.New("boom")

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// flakyVotes wraps a vote repository with switchable failures, call
// counters, and an optional gate that holds writes until released.
type flakyVotes struct {
	ports.VoteRepository

	mu         sync.Mutex
	failSave   error
	failDelete error
	failList   error
	writes     int
	lists      int
	gate       chan struct{}
	entered    chan struct{}
}

func (f *flakyVotes) SaveVote(ctx context.Context, vote *domain.Vote) error {
	if err := f.beforeWrite(f.failSave); err != nil {
		return err
	}
	return f.VoteRepository.SaveVote(ctx, vote)
}

func (f *flakyVotes) DeleteVote(ctx context.Context, pollID uuid.UUID, key domain.SlotKey, voterID uuid.UUID) error {
	if err := f.beforeWrite(f.failDelete); err != nil {
		return err
	}
	return f.VoteRepository.DeleteVote(ctx, pollID, key, voterID)
}

func (f *flakyVotes) ListByPoll(ctx context.Context, pollID uuid.UUID) ([]*domain.Vote, error) {
	f.mu.Lock()
	f.lists++
	err := f.failList
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.VoteRepository.ListByPoll(ctx, pollID)
}

func (f *flakyVotes) beforeWrite(fail error) error {
	f.mu.Lock()
	f.writes++
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return fail
}

func (f *flakyVotes) set(apply func(f *flakyVotes)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apply(f)
}

func (f *flakyVotes) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type pollGate struct {
	arrived chan struct{}
	release chan struct{}
}

// gatedPolls holds GetByID calls for chosen polls until released.
type gatedPolls struct {
	ports.PollRepository

	mu    sync.Mutex
	gates map[uuid.UUID]*pollGate
	fail  error
}

func (g *gatedPolls) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	g.mu.Lock()
	gate, fail := g.gates[id], g.fail
	delete(g.gates, id)
	g.mu.Unlock()
	if gate != nil {
		close(gate.arrived)
		<-gate.release
	}
	if fail != nil {
		return nil, fail
	}
	return g.PollRepository.GetByID(ctx, id)
}

// hold makes the next GetByID for id block until release is closed.
func (g *gatedPolls) hold(id uuid.UUID) *pollGate {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gates == nil {
		g.gates = make(map[uuid.UUID]*pollGate)
	}
	gate := &pollGate{arrived: make(chan struct{}), release: make(chan struct{})}
	g.gates[id] = gate
	return gate
}

func (g *gatedPolls) setFail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = err
}

func schedulePoll(t *testing.T, store *memory.Store, owner uuid.UUID, days ...string) *domain.Poll {
	t.Helper()
	poll := &domain.Poll{
		ID:      uuid.New(),
		Kind:    domain.PollKindSchedule,
		Name:    "Weekly sync",
		OwnerID: owner,
		Status:  domain.PollStatusOpen,
		Days:    days,
	}
	require.NoError(t, store.Polls().Save(context.Background(), poll))
	return poll
}

func calendarPoll(t *testing.T, store *memory.Store, owner uuid.UUID, start, end time.Time) *domain.Poll {
	t.Helper()
	poll := &domain.Poll{
		ID:        uuid.New(),
		Kind:      domain.PollKindCalendar,
		Name:      "Offsite",
		OwnerID:   owner,
		Status:    domain.PollStatusOpen,
		StartDate: &start,
		EndDate:   &end,
	}
	require.NoError(t, store.Polls().Save(context.Background(), poll))
	return poll
}

func seedVote(t *testing.T, store *memory.Store, poll *domain.Poll, slot domain.Slot, voter uuid.UUID) {
	t.Helper()
	require.NoError(t, store.Votes().SaveVote(context.Background(), &domain.Vote{
		ID:        uuid.New(),
		PollID:    poll.ID,
		Slot:      slot,
		VoterID:   voter,
		CreatedAt: time.Now(),
	}))
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }
