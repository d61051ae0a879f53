package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

var _ ports.PollChangeListener = (*SessionManager)(nil)

// SessionManager keeps one PollSession per viewer.
type SessionManager struct {
	polls ports.PollRepository
	votes ports.VoteService
	log   *logrus.Entry

	mu       sync.Mutex
	sessions map[uuid.UUID]*PollSession
}

func NewSessionManager(polls ports.PollRepository, votes ports.VoteService, log *logrus.Entry) *SessionManager {
	return &SessionManager{
		polls:    polls,
		votes:    votes,
		log:      log,
		sessions: make(map[uuid.UUID]*PollSession),
	}
}

// Session returns the viewer's session, creating an empty one if needed.
func (m *SessionManager) Session(viewer uuid.UUID) *PollSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[viewer]
	if !ok {
		s = NewPollSession(m.polls, m.votes, m.log.WithField("viewer", viewer))
		m.sessions[viewer] = s
	}
	return s
}

func (m *SessionManager) Lookup(viewer uuid.UUID) (*PollSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[viewer]
	return s, ok
}

// End deactivates and forgets the viewer's session.
func (m *SessionManager) End(viewer uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[viewer]
	delete(m.sessions, viewer)
	m.mu.Unlock()

	if ok {
		s.Deactivate()
	}
}

// PollChanged refreshes the metadata of every session showing pollID.
func (m *SessionManager) PollChanged(ctx context.Context, pollID uuid.UUID) {
	for _, s := range m.showing(pollID) {
		if err := s.RefreshPoll(ctx); err != nil {
			m.log.WithError(err).WithField("poll_id", pollID).Warn("failed to refresh session after poll change")
		}
	}
}

// PollDeleted drops the state of every session showing pollID.
func (m *SessionManager) PollDeleted(pollID uuid.UUID) {
	for _, s := range m.showing(pollID) {
		s.Deactivate()
	}
}

func (m *SessionManager) showing(pollID uuid.UUID) []*PollSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*PollSession
	for _, s := range m.sessions {
		if id, ok := s.ActivePollID(); ok && id == pollID {
			matched = append(matched, s)
		}
	}
	return matched
}
