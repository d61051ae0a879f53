package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type pollService struct {
	repo     ports.PollRepository
	members  ports.MembershipRepository
	users    ports.UserRepository
	listener ports.PollChangeListener
	log      *logrus.Entry
}

func NewPollService(repo ports.PollRepository, members ports.MembershipRepository, users ports.UserRepository, listener ports.PollChangeListener, log *logrus.Entry) ports.PollService {
	return &pollService{
		repo:     repo,
		members:  members,
		users:    users,
		listener: listener,
		log:      log.WithField("module", "polls"),
	}
}

func (s *pollService) Create(ctx context.Context, ownerID uuid.UUID, input ports.CreatePollInput) (*domain.Poll, error) {
	if ownerID == uuid.Nil {
		return nil, domain.ErrAuthenticationRequired
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidPoll)
	}

	poll := &domain.Poll{
		ID:          uuid.New(),
		Kind:        input.Kind,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		OwnerID:     ownerID,
		Status:      domain.PollStatusOpen,
		CreatedAt:   time.Now(),
	}

	switch input.Kind {
	case domain.PollKindSchedule:
		days, err := canonicalDays(input.Days)
		if err != nil {
			return nil, err
		}
		poll.Days = days
	case domain.PollKindCalendar:
		if input.StartDate == nil || input.EndDate == nil {
			return nil, fmt.Errorf("%w: start and end dates are required", domain.ErrInvalidPoll)
		}
		start, end := dateOnly(*input.StartDate), dateOnly(*input.EndDate)
		if end.Before(start) {
			return nil, fmt.Errorf("%w: end date is before start date", domain.ErrInvalidPoll)
		}
		if days := int(end.Sub(start).Hours()/24) + 1; days > domain.MaxCalendarDays {
			return nil, fmt.Errorf("%w: date range spans %d days, at most %d allowed", domain.ErrInvalidPoll, days, domain.MaxCalendarDays)
		}
		poll.StartDate, poll.EndDate = &start, &end
	default:
		return nil, fmt.Errorf("%w: unknown poll kind %q", domain.ErrInvalidPoll, input.Kind)
	}

	if err := s.repo.Save(ctx, poll); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}

	s.log.WithFields(logrus.Fields{"poll_id": poll.ID, "kind": poll.Kind}).Info("poll created")
	return poll, nil
}

// canonicalDays drops duplicates and sorts the selection into Mon..Sun order.
func canonicalDays(days []string) ([]string, error) {
	selected := make(map[string]bool, len(days))
	for _, d := range days {
		d = strings.TrimSpace(d)
		if !domain.IsWeekday(d) {
			return nil, fmt.Errorf("%w: unknown day %q", domain.ErrInvalidPoll, d)
		}
		selected[d] = true
	}

	var ordered []string
	for _, d := range domain.Weekdays {
		if selected[d] {
			ordered = append(ordered, d)
		}
	}
	if len(ordered) == 0 {
		return nil, fmt.Errorf("%w: at least one day is required", domain.ErrInvalidPoll)
	}
	return ordered, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *pollService) GetPoll(ctx context.Context, id string) (*domain.Poll, error) {
	pollID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrInvalidPollID
	}

	return s.get(ctx, pollID)
}

func (s *pollService) get(ctx context.Context, pollID uuid.UUID) (*domain.Poll, error) {
	poll, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, domain.ErrPollNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	return poll, nil
}

func (s *pollService) ListPolls(ctx context.Context, userID uuid.UUID) ([]*domain.Poll, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrAuthenticationRequired
	}

	polls, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	return polls, nil
}

// owned loads the poll and checks that actorID owns it.
func (s *pollService) owned(ctx context.Context, actorID, pollID uuid.UUID) (*domain.Poll, error) {
	if actorID == uuid.Nil {
		return nil, domain.ErrAuthenticationRequired
	}
	poll, err := s.get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !poll.IsOwner(actorID) {
		return nil, domain.ErrNotPollOwner
	}
	return poll, nil
}

func (s *pollService) UpdateStatus(ctx context.Context, actorID, pollID uuid.UUID, status domain.PollStatus) (*domain.Poll, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidPoll, status)
	}
	poll, err := s.owned(ctx, actorID, pollID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, pollID, status); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	poll.Status = status

	s.log.WithFields(logrus.Fields{"poll_id": pollID, "status": status}).Info("poll status changed")
	s.notifyChanged(ctx, pollID)
	return poll, nil
}

func (s *pollService) Delete(ctx context.Context, actorID, pollID uuid.UUID) error {
	if _, err := s.owned(ctx, actorID, pollID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, pollID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}

	s.log.WithField("poll_id", pollID).Info("poll deleted")
	if s.listener != nil {
		s.listener.PollDeleted(pollID)
	}
	return nil
}

func (s *pollService) ListMembers(ctx context.Context, actorID, pollID uuid.UUID) ([]*domain.Member, error) {
	if _, err := s.owned(ctx, actorID, pollID); err != nil {
		return nil, err
	}

	members, err := s.members.ListByPoll(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	return members, nil
}

func (s *pollService) AddMember(ctx context.Context, actorID, pollID uuid.UUID, email string) (*domain.Member, error) {
	poll, err := s.owned(ctx, actorID, pollID)
	if err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if poll.IsOwner(user.ID) {
		return nil, domain.ErrAlreadyMember
	}

	isMember, err := s.members.IsMember(ctx, pollID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	if isMember {
		return nil, domain.ErrAlreadyMember
	}

	membership := &domain.Membership{
		ID:        uuid.New(),
		PollID:    pollID,
		UserID:    user.ID,
		CreatedAt: time.Now(),
	}
	if err := s.members.Add(ctx, membership); err != nil {
		if errors.Is(err, domain.ErrAlreadyMember) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}

	s.log.WithFields(logrus.Fields{"poll_id": pollID, "user_id": user.ID}).Info("member added")
	s.notifyChanged(ctx, pollID)
	return &domain.Member{Membership: *membership, Email: user.Email}, nil
}

func (s *pollService) RemoveMember(ctx context.Context, actorID, pollID, membershipID uuid.UUID) error {
	if _, err := s.owned(ctx, actorID, pollID); err != nil {
		return err
	}

	if err := s.members.Remove(ctx, pollID, membershipID); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}

	s.log.WithFields(logrus.Fields{"poll_id": pollID, "membership_id": membershipID}).Info("member removed")
	s.notifyChanged(ctx, pollID)
	return nil
}

func (s *pollService) notifyChanged(ctx context.Context, pollID uuid.UUID) {
	if s.listener != nil {
		s.listener.PollChanged(ctx, pollID)
	}
}
