package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

type userRepository struct{ s *Store }

func (r userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if sameEmail(u.Email, email) && u.DeletedAt == nil {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r userRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (r userRepository) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var users []*domain.User
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok && u.DeletedAt == nil {
			c := *u
			users = append(users, &c)
		}
	}
	return users, nil
}

func (r userRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if sameEmail(u.Email, user.Email) {
			return fmt.Errorf("user %s already exists", user.Email)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = r.s.now()
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

type authRepository struct{ s *Store }

func (r authRepository) StoreRefreshToken(_ context.Context, token *domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	token.ID = uuid.New()
	token.CreatedAt = r.s.now()
	c := *token
	r.s.tokens[token.ID] = &c
	return nil
}

func (r authRepository) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.tokens {
		if t.TokenHash == tokenHash {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (r authRepository) RevokeRefreshToken(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tokens[id]; ok {
		t.Revoked = true
	}
	return nil
}

func (r authRepository) RotateRefreshToken(_ context.Context, oldID uuid.UUID, next *domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.tokens[oldID]
	if !ok || old.Revoked {
		return domain.ErrRefreshTokenRevoked
	}
	old.Revoked = true

	next.ID = uuid.New()
	next.CreatedAt = r.s.now()
	c := *next
	r.s.tokens[next.ID] = &c
	return nil
}

type pollRepository struct{ s *Store }

func (r pollRepository) Save(_ context.Context, poll *domain.Poll) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if poll.CreatedAt.IsZero() {
		poll.CreatedAt = r.s.now()
	}
	r.s.polls[poll.ID] = copyPoll(poll)
	return nil
}

func (r pollRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Poll, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return copyPoll(p), nil
}

func (r pollRepository) GetAll(_ context.Context) ([]*domain.Poll, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var polls []*domain.Poll
	for _, p := range r.s.polls {
		polls = append(polls, copyPoll(p))
	}
	sort.Slice(polls, func(i, j int) bool { return polls[i].CreatedAt.Before(polls[j].CreatedAt) })
	return polls, nil
}

func (r pollRepository) ListForUser(_ context.Context, userID uuid.UUID) ([]*domain.Poll, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	shared := make(map[uuid.UUID]bool)
	for _, m := range r.s.members {
		if m.UserID == userID {
			shared[m.PollID] = true
		}
	}

	var polls []*domain.Poll
	for _, p := range r.s.polls {
		if p.OwnerID == userID || shared[p.ID] {
			polls = append(polls, copyPoll(p))
		}
	}
	sortPolls(polls)
	return polls, nil
}

func (r pollRepository) UpdateStatus(_ context.Context, id uuid.UUID, status domain.PollStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.polls[id]
	if !ok {
		return domain.ErrPollNotFound
	}
	p.Status = status
	return nil
}

// Delete cascades to the poll's members, votes and results.
func (r pollRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.polls[id]; !ok {
		return domain.ErrPollNotFound
	}
	delete(r.s.polls, id)
	delete(r.s.results, id)
	for mid, m := range r.s.members {
		if m.PollID == id {
			delete(r.s.members, mid)
		}
	}
	for k := range r.s.votes {
		if k.pollID == id {
			delete(r.s.votes, k)
		}
	}
	return nil
}

type membershipRepository struct{ s *Store }

func (r membershipRepository) Add(_ context.Context, membership *domain.Membership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.PollID == membership.PollID && m.UserID == membership.UserID {
			return domain.ErrAlreadyMember
		}
	}
	membership.CreatedAt = r.s.now()
	c := *membership
	r.s.members[membership.ID] = &c
	return nil
}

func (r membershipRepository) Remove(_ context.Context, pollID, membershipID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[membershipID]
	if !ok || m.PollID != pollID {
		return domain.ErrMemberNotFound
	}
	delete(r.s.members, membershipID)
	return nil
}

func (r membershipRepository) ListByPoll(_ context.Context, pollID uuid.UUID) ([]*domain.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var members []*domain.Member
	for _, m := range r.s.members {
		if m.PollID != pollID {
			continue
		}
		member := &domain.Member{Membership: *m}
		if u, ok := r.s.users[m.UserID]; ok {
			member.Email = u.Email
		}
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Email < members[j].Email })
	return members, nil
}

func (r membershipRepository) IsMember(_ context.Context, pollID, userID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.members {
		if m.PollID == pollID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type voteRepository struct{ s *Store }

func (r voteRepository) ListByPoll(_ context.Context, pollID uuid.UUID) ([]*domain.Vote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var votes []*domain.Vote
	for k, v := range r.s.votes {
		if k.pollID == pollID {
			c := *v
			votes = append(votes, &c)
		}
	}
	sort.Slice(votes, func(i, j int) bool {
		if !votes[i].CreatedAt.Equal(votes[j].CreatedAt) {
			return votes[i].CreatedAt.Before(votes[j].CreatedAt)
		}
		return votes[i].ID.String() < votes[j].ID.String()
	})
	return votes, nil
}

func (r voteRepository) SaveVote(_ context.Context, vote *domain.Vote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := voteKey{pollID: vote.PollID, slot: vote.Key(), voter: vote.VoterID}
	if _, ok := r.s.votes[k]; ok {
		return domain.ErrAlreadyVoted
	}
	c := *vote
	r.s.votes[k] = &c
	return nil
}

func (r voteRepository) DeleteVote(_ context.Context, pollID uuid.UUID, key domain.SlotKey, voterID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.votes, voteKey{pollID: pollID, slot: key, voter: voterID})
	return nil
}

type pollResultRepository struct{ s *Store }

func (r pollResultRepository) ReplaceSlotResults(_ context.Context, pollID uuid.UUID, results []domain.PollSlotResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.results[pollID] = append([]domain.PollSlotResult(nil), results...)
	return nil
}

func (r pollResultRepository) GetSlotResults(_ context.Context, pollID uuid.UUID) ([]domain.PollSlotResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.PollSlotResult(nil), r.s.results[pollID]...), nil
}
