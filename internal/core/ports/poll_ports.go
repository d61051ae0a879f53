package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	GetAll(ctx context.Context) ([]*domain.Poll, error)
	// ListForUser returns polls the user owns or was invited to, ordered by name.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Poll, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PollStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type MembershipRepository interface {
	Add(ctx context.Context, membership *domain.Membership) error
	Remove(ctx context.Context, pollID, membershipID uuid.UUID) error
	ListByPoll(ctx context.Context, pollID uuid.UUID) ([]*domain.Member, error)
	IsMember(ctx context.Context, pollID, userID uuid.UUID) (bool, error)
}

type CreatePollInput struct {
	Kind        domain.PollKind
	Name        string
	Description string
	Days        []string
	StartDate   *time.Time
	EndDate     *time.Time
}

type PollService interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreatePollInput) (*domain.Poll, error)
	GetPoll(ctx context.Context, id string) (*domain.Poll, error)
	ListPolls(ctx context.Context, userID uuid.UUID) ([]*domain.Poll, error)
	UpdateStatus(ctx context.Context, actorID, pollID uuid.UUID, status domain.PollStatus) (*domain.Poll, error)
	Delete(ctx context.Context, actorID, pollID uuid.UUID) error
	ListMembers(ctx context.Context, actorID, pollID uuid.UUID) ([]*domain.Member, error)
	AddMember(ctx context.Context, actorID, pollID uuid.UUID, email string) (*domain.Member, error)
	RemoveMember(ctx context.Context, actorID, pollID, membershipID uuid.UUID) error
}

// PollChangeListener is told about owner-side changes so open sessions can
// refresh or drop their state.
type PollChangeListener interface {
	PollChanged(ctx context.Context, pollID uuid.UUID)
	PollDeleted(pollID uuid.UUID)
}
