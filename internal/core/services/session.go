package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
	"github.com/vncsmyrnk/slotpoll/internal/core/tally"
)

// PollSession owns the vote aggregate of the one poll a viewer has open.
//
// Store calls never run under mu. Each Activate takes a load token and only
// the latest token may install its result. generation changes whenever the
// installed state is replaced or dropped. A failed load leaves both the state
// and generation alone, so toggles already in flight still patch it.
type PollSession struct {
	polls ports.PollRepository
	votes ports.VoteService
	log   *logrus.Entry

	mu         sync.Mutex
	loadSeq    uint64
	generation uint64
	poll       *domain.Poll
	agg        *tally.Aggregate
	ranks      map[domain.SlotKey]tally.Tier
	emails     map[uuid.UUID]string
	inFlight   map[flight]struct{}
}

// flight identifies a toggle in progress. Keys are scoped by poll because
// schedule keys repeat across polls.
type flight struct {
	poll uuid.UUID
	key  domain.SlotKey
}

func NewPollSession(polls ports.PollRepository, votes ports.VoteService, log *logrus.Entry) *PollSession {
	return &PollSession{
		polls:    polls,
		votes:    votes,
		log:      log.WithField("module", "session"),
		inFlight: make(map[flight]struct{}),
	}
}

// Activate loads pollID and replaces the session's state with it. On a read
// failure the previous state is kept.
func (s *PollSession) Activate(ctx context.Context, viewer *uuid.UUID, pollID uuid.UUID) (*TallyView, error) {
	if viewer == nil || *viewer == uuid.Nil {
		return nil, domain.ErrAuthenticationRequired
	}

	s.mu.Lock()
	s.loadSeq++
	token := s.loadSeq
	s.mu.Unlock()

	entry := s.log.WithFields(logrus.Fields{"poll_id": pollID, "viewer": *viewer})

	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		entry.WithError(err).Warn("failed to load poll")
		if errors.Is(err, domain.ErrPollNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}

	agg, err := s.votes.Tally(ctx, poll)
	if err != nil {
		entry.WithError(err).Warn("failed to load votes")
		return nil, err
	}
	emails := s.votes.ResolveVoters(ctx, agg, *viewer)

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.loadSeq {
		entry.Debug("discarding stale poll load")
		return nil, domain.ErrSessionSuperseded
	}

	s.generation++
	s.poll = poll
	s.agg = agg
	s.ranks = agg.Ranks()
	s.emails = emails
	entry.WithField("slots", agg.Len()).Info("poll session activated")

	return NewTallyView(s.poll, s.agg, s.ranks, *viewer, s.emails), nil
}

// Toggle flips the viewer's vote on key. Only one toggle per slot may be in
// flight. Tiers are recomputed as part of the patch.
func (s *PollSession) Toggle(ctx context.Context, viewer *uuid.UUID, key domain.SlotKey) (domain.VoteDirection, *TallyView, error) {
	if viewer == nil || *viewer == uuid.Nil {
		return "", nil, domain.ErrAuthenticationRequired
	}

	s.mu.Lock()
	if s.poll == nil {
		s.mu.Unlock()
		return "", nil, domain.ErrNoActivePoll
	}
	f := flight{poll: s.poll.ID, key: key}
	if _, busy := s.inFlight[f]; busy {
		s.mu.Unlock()
		return "", nil, domain.ErrToggleInFlight
	}
	s.inFlight[f] = struct{}{}
	local := &sessionTally{session: s, pollID: s.poll.ID, generation: s.generation, started: s.agg}
	poll := s.poll
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, f)
		s.mu.Unlock()
	}()

	direction, err := s.votes.Toggle(ctx, ports.ToggleInput{
		Voter: viewer,
		Poll:  poll,
		Tally: local,
		Slot:  key,
	})
	if err != nil {
		return "", nil, err
	}

	view, err := s.Snapshot(*viewer)
	if err != nil {
		return "", nil, err
	}
	return direction, view, nil
}

// RefreshPoll re-reads the poll's metadata. The aggregate is kept because the
// poll identity does not change.
func (s *PollSession) RefreshPoll(ctx context.Context) error {
	s.mu.Lock()
	if s.poll == nil {
		s.mu.Unlock()
		return domain.ErrNoActivePoll
	}
	pollID, gen := s.poll.ID, s.generation
	s.mu.Unlock()

	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, domain.ErrPollNotFound) {
			s.Deactivate()
			return err
		}
		s.log.WithError(err).WithField("poll_id", pollID).Warn("failed to refresh poll")
		return fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return domain.ErrSessionSuperseded
	}
	s.poll = poll
	return nil
}

// Deactivate drops all state. Loads still in flight are discarded when they
// return, and toggles in flight skip their patch.
func (s *PollSession) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadSeq++
	s.generation++
	s.poll = nil
	s.agg = nil
	s.ranks = nil
	s.emails = nil
}

func (s *PollSession) ActivePollID() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poll == nil {
		return uuid.Nil, false
	}
	return s.poll.ID, true
}

func (s *PollSession) Snapshot(viewer uuid.UUID) (*TallyView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poll == nil {
		return nil, domain.ErrNoActivePoll
	}
	return NewTallyView(s.poll, s.agg, s.ranks, viewer, s.emails), nil
}

// sessionTally gives the toggle protocol locked access to the session's
// aggregate for the poll the toggle started on.
type sessionTally struct {
	session    *PollSession
	pollID     uuid.UUID
	generation uint64
	started    *tally.Aggregate
}

func (t *sessionTally) HasVoted(key domain.SlotKey, voter uuid.UUID) bool {
	s := t.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.current() {
		return t.started.HasVoted(key, voter)
	}
	return s.agg.HasVoted(key, voter)
}

func (t *sessionTally) Add(key domain.SlotKey, voter uuid.UUID) error {
	return t.patch(key, voter, true)
}

func (t *sessionTally) Remove(key domain.SlotKey, voter uuid.UUID) error {
	return t.patch(key, voter, false)
}

// current reports whether the session still shows the toggle's poll. Callers
// hold mu.
func (t *sessionTally) current() bool {
	s := t.session
	return s.poll != nil && s.poll.ID == t.pollID
}

// patch applies a confirmed store write. When the poll was reloaded while the
// write was running, the fresh aggregate may or may not include it, so the
// slot is brought to the written state instead of patched strictly.
func (t *sessionTally) patch(key domain.SlotKey, voter uuid.UUID, voted bool) error {
	s := t.session
	s.mu.Lock()
	defer s.mu.Unlock()

	if !t.current() {
		return domain.ErrSessionSuperseded
	}

	switch {
	case t.generation == s.generation && voted:
		if err := s.agg.Add(key, voter); err != nil {
			return err
		}
	case t.generation == s.generation:
		if err := s.agg.Remove(key, voter); err != nil {
			return err
		}
	case voted && !s.agg.HasVoted(key, voter):
		_ = s.agg.Add(key, voter)
	case !voted && s.agg.HasVoted(key, voter):
		_ = s.agg.Remove(key, voter)
	}
	s.ranks = s.agg.Ranks()
	return nil
}
