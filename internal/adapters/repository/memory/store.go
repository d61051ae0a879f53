// Package memory implements the repository ports in process memory. It backs
// the handler tests and the server's -store=memory development mode.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type voteKey struct {
	pollID uuid.UUID
	slot   domain.SlotKey
	voter  uuid.UUID
}

// Store holds every collection behind one lock.
type Store struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*domain.User
	tokens  map[uuid.UUID]*domain.RefreshToken
	polls   map[uuid.UUID]*domain.Poll
	members map[uuid.UUID]*domain.Membership
	votes   map[voteKey]*domain.Vote
	results map[uuid.UUID][]domain.PollSlotResult
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:   make(map[uuid.UUID]*domain.User),
		tokens:  make(map[uuid.UUID]*domain.RefreshToken),
		polls:   make(map[uuid.UUID]*domain.Poll),
		members: make(map[uuid.UUID]*domain.Membership),
		votes:   make(map[voteKey]*domain.Vote),
		results: make(map[uuid.UUID][]domain.PollSlotResult),
		now:     time.Now,
	}
}

func (s *Store) Users() ports.UserRepository             { return userRepository{s} }
func (s *Store) Auth() ports.AuthRepository              { return authRepository{s} }
func (s *Store) Polls() ports.PollRepository             { return pollRepository{s} }
func (s *Store) Members() ports.MembershipRepository     { return membershipRepository{s} }
func (s *Store) Votes() ports.VoteRepository             { return voteRepository{s} }
func (s *Store) PollResults() ports.PollResultRepository { return pollResultRepository{s} }

func copyPoll(p *domain.Poll) *domain.Poll {
	c := *p
	c.Days = append([]string(nil), p.Days...)
	if len(c.Days) == 0 {
		c.Days = nil
	}
	if p.StartDate != nil {
		t := *p.StartDate
		c.StartDate = &t
	}
	if p.EndDate != nil {
		t := *p.EndDate
		c.EndDate = &t
	}
	return &c
}

func sortPolls(polls []*domain.Poll) {
	sort.SliceStable(polls, func(i, j int) bool {
		if polls[i].Name != polls[j].Name {
			return polls[i].Name < polls[j].Name
		}
		return polls[i].CreatedAt.Before(polls[j].CreatedAt)
	})
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(a, b)
}
