package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
	"github.com/vncsmyrnk/slotpoll/internal/core/tally"
)

type voteService struct {
	voteRepo ports.VoteRepository
	users    ports.UserRepository
	log      *logrus.Entry
}

func NewVoteService(voteRepo ports.VoteRepository, users ports.UserRepository, log *logrus.Entry) ports.VoteService {
	return &voteService{
		voteRepo: voteRepo,
		users:    users,
		log:      log.WithField("module", "votes"),
	}
}

// Toggle flips the voter's vote on one slot. The local aggregate decides the
// direction, the store is written first, and the aggregate is patched only
// once the store confirms.
func (s *voteService) Toggle(ctx context.Context, input ports.ToggleInput) (domain.VoteDirection, error) {
	if input.Voter == nil || *input.Voter == uuid.Nil {
		return "", domain.ErrAuthenticationRequired
	}
	poll, agg := input.Poll, input.Tally
	if poll == nil || agg == nil {
		return "", domain.ErrNoActivePoll
	}
	if poll.Status != domain.PollStatusOpen {
		return "", domain.ErrPollNotOpen
	}

	slot, err := poll.ParseSlot(input.Slot)
	if err != nil {
		return "", err
	}
	key := slot.Key()
	voter := *input.Voter

	entry := s.log.WithFields(logrus.Fields{
		"poll_id": poll.ID,
		"slot":    key,
		"voter":   voter,
	})

	if agg.HasVoted(key, voter) {
		if err := s.voteRepo.DeleteVote(ctx, poll.ID, key, voter); err != nil {
			entry.WithError(err).Warn("failed to remove vote")
			return "", fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
		}
		if err := agg.Remove(key, voter); err != nil {
			logPatchFailure(entry, err)
			return "", err
		}
		entry.Debug("vote removed")
		return domain.VoteRemoved, nil
	}

	vote := &domain.Vote{
		ID:        uuid.New(),
		PollID:    poll.ID,
		Slot:      slot,
		VoterID:   voter,
		CreatedAt: time.Now(),
	}
	if err := s.voteRepo.SaveVote(ctx, vote); err != nil {
		entry.WithError(err).Warn("failed to add vote")
		return "", fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	if err := agg.Add(key, voter); err != nil {
		logPatchFailure(entry, err)
		return "", err
	}
	entry.Debug("vote added")
	return domain.VoteAdded, nil
}

// Tally loads every vote of the poll and builds a fresh aggregate.
func (s *voteService) Tally(ctx context.Context, poll *domain.Poll) (*tally.Aggregate, error) {
	if poll == nil {
		return nil, domain.ErrPollNotFound
	}

	votes, err := s.voteRepo.ListByPoll(ctx, poll.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}

	agg, skipped := tally.Build(poll.SeedKeys(), poll.Kind == domain.PollKindSchedule, votes)
	for _, v := range skipped {
		s.log.WithFields(logrus.Fields{"poll_id": poll.ID, "slot": v.Key()}).Debug("ignoring vote outside the poll's slots")
	}
	return agg, nil
}

func (s *voteService) ResolveVoters(ctx context.Context, agg *tally.Aggregate, extra ...uuid.UUID) map[uuid.UUID]string {
	ids := agg.VoterIDs()
	for _, id := range extra {
		if id != uuid.Nil && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	emails := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return emails
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		s.log.WithError(err).WithField("voters", len(ids)).Warn("failed to resolve voter emails")
		return emails
	}
	for _, u := range users {
		emails[u.ID] = u.Email
	}
	return emails
}

func logPatchFailure(entry *logrus.Entry, err error) {
	if errors.Is(err, domain.ErrIntegrityViolation) {
		entry.WithError(err).Error("store accepted the vote change but the local tally is out of sync")
		return
	}
	entry.WithError(err).Info("store updated, local tally was not patched")
}
