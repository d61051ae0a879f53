package domain

import (
	"time"

	"github.com/google/uuid"
)

// PollSlotResult is one row of a poll's tally snapshot written by the
// summary job.
type PollSlotResult struct {
	PollID        uuid.UUID
	SlotKey       SlotKey
	VoteCount     int
	Tier          int
	LastUpdatedAt time.Time
}
