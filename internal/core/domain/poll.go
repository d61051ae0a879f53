package domain

import (
	"time"

	"github.com/google/uuid"
)

type PollKind string

const (
	PollKindSchedule PollKind = "schedule"
	PollKindCalendar PollKind = "calendar"
)

type PollStatus string

const (
	PollStatusOpen      PollStatus = "Open"
	PollStatusClosed    PollStatus = "Closed"
	PollStatusCancelled PollStatus = "Cancelled"
)

func (s PollStatus) Valid() bool {
	switch s {
	case PollStatusOpen, PollStatusClosed, PollStatusCancelled:
		return true
	}
	return false
}

type Poll struct {
	ID          uuid.UUID  `json:"id"`
	Kind        PollKind   `json:"kind"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Status      PollStatus `json:"status"`
	Days        []string   `json:"days,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SeedKeys returns the slot keys the vote aggregate is pre-seeded with.
// Calendar polls create their slots lazily, so they have none.
func (p *Poll) SeedKeys() []SlotKey {
	if p.Kind != PollKindSchedule {
		return nil
	}
	return ScheduleSlotKeys(p.Days)
}

// ParseSlot resolves a key into slot components and checks that it belongs to
// the poll's slot domain.
func (p *Poll) ParseSlot(key SlotKey) (Slot, error) {
	switch p.Kind {
	case PollKindSchedule:
		slot, err := ParseScheduleSlot(key)
		if err != nil {
			return Slot{}, err
		}
		for _, day := range p.Days {
			if day == slot.Day {
				return slot, nil
			}
		}
		return Slot{}, ErrInvalidSlot
	case PollKindCalendar:
		slot, err := ParseCalendarSlot(key)
		if err != nil {
			return Slot{}, err
		}
		if p.StartDate == nil || p.EndDate == nil {
			return Slot{}, ErrInvalidSlot
		}
		if string(key) < p.StartDate.Format(DateLayout) || string(key) > p.EndDate.Format(DateLayout) {
			return Slot{}, ErrInvalidSlot
		}
		return slot, nil
	}
	return Slot{}, ErrInvalidSlot
}

func (p *Poll) IsOwner(userID uuid.UUID) bool {
	return p.OwnerID == userID
}

type Membership struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is a membership joined with the invited user's email.
type Member struct {
	Membership
	Email string `json:"email"`
}
