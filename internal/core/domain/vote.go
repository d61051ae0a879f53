package domain

import (
	"time"

	"github.com/google/uuid"
)

type Vote struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	Slot      Slot      `json:"slot"`
	VoterID   uuid.UUID `json:"voter_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (v *Vote) Key() SlotKey {
	return v.Slot.Key()
}

// VoteDirection reports which branch a toggle took.
type VoteDirection string

const (
	VoteAdded   VoteDirection = "added"
	VoteRemoved VoteDirection = "removed"
)
