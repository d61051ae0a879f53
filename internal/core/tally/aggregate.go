// Package tally turns vote records into per-slot voter sets and derives the
// popularity tiers used for highlighting.
package tally

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

// Aggregate maps slot keys to the set of voters for that slot. A slot's count
// is always the size of its voter set.
type Aggregate struct {
	order []domain.SlotKey
	slots map[domain.SlotKey]map[uuid.UUID]struct{}
}

// New returns an aggregate with an empty voter set for every seed key.
func New(seed []domain.SlotKey) *Aggregate {
	a := &Aggregate{
		order: make([]domain.SlotKey, 0, len(seed)),
		slots: make(map[domain.SlotKey]map[uuid.UUID]struct{}, len(seed)),
	}
	for _, key := range seed {
		a.ensure(key)
	}
	return a
}

// Build seeds an aggregate and inserts every record's voter into its slot.
// When seeded is true, records for keys outside the seed are skipped and
// returned so the caller can report them.
func Build(seed []domain.SlotKey, seeded bool, votes []*domain.Vote) (*Aggregate, []*domain.Vote) {
	a := New(seed)

	var skipped []*domain.Vote
	for _, v := range votes {
		key := v.Key()
		if seeded && !a.Has(key) {
			skipped = append(skipped, v)
			continue
		}
		a.ensure(key)[v.VoterID] = struct{}{}
	}
	return a, skipped
}

func (a *Aggregate) ensure(key domain.SlotKey) map[uuid.UUID]struct{} {
	voters, ok := a.slots[key]
	if !ok {
		voters = make(map[uuid.UUID]struct{})
		a.slots[key] = voters
		a.order = append(a.order, key)
	}
	return voters
}

// Has reports whether the slot has an entry, even a zero-vote one.
func (a *Aggregate) Has(key domain.SlotKey) bool {
	_, ok := a.slots[key]
	return ok
}

func (a *Aggregate) HasVoted(key domain.SlotKey, voter uuid.UUID) bool {
	_, ok := a.slots[key][voter]
	return ok
}

func (a *Aggregate) Count(key domain.SlotKey) int {
	return len(a.slots[key])
}

// Voters returns the slot's voters sorted by id.
func (a *Aggregate) Voters(key domain.SlotKey) []uuid.UUID {
	voters := make([]uuid.UUID, 0, len(a.slots[key]))
	for id := range a.slots[key] {
		voters = append(voters, id)
	}
	sort.Slice(voters, func(i, j int) bool {
		return bytes.Compare(voters[i][:], voters[j][:]) < 0
	})
	return voters
}

// VoterIDs returns every distinct voter across all slots, sorted by id.
func (a *Aggregate) VoterIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	for _, voters := range a.slots {
		for id := range voters {
			seen[id] = struct{}{}
		}
	}
	ids := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// Keys returns slot keys in seed order followed by lazily created keys in the
// order they first appeared.
func (a *Aggregate) Keys() []domain.SlotKey {
	keys := make([]domain.SlotKey, len(a.order))
	copy(keys, a.order)
	return keys
}

func (a *Aggregate) Len() int {
	return len(a.order)
}

func (a *Aggregate) Counts() map[domain.SlotKey]int {
	counts := make(map[domain.SlotKey]int, len(a.slots))
	for key, voters := range a.slots {
		counts[key] = len(voters)
	}
	return counts
}

// Ranks computes the tier of every slot from its current counts.
func (a *Aggregate) Ranks() map[domain.SlotKey]Tier {
	return Rank(a.Counts())
}

// Add records voter on key, creating the slot on demand.
func (a *Aggregate) Add(key domain.SlotKey, voter uuid.UUID) error {
	voters := a.ensure(key)
	if _, ok := voters[voter]; ok {
		return fmt.Errorf("%w: %s already voted on %s", domain.ErrIntegrityViolation, voter, key)
	}
	voters[voter] = struct{}{}
	return nil
}

// Remove drops voter from key. Removing a vote that is not there means the
// aggregate drifted from the store.
func (a *Aggregate) Remove(key domain.SlotKey, voter uuid.UUID) error {
	voters, ok := a.slots[key]
	if !ok || len(voters) == 0 {
		return fmt.Errorf("%w: count for %s is already zero", domain.ErrIntegrityViolation, key)
	}
	if _, ok := voters[voter]; !ok {
		return fmt.Errorf("%w: %s has no vote on %s", domain.ErrIntegrityViolation, voter, key)
	}
	delete(voters, voter)
	return nil
}

func (a *Aggregate) Clone() *Aggregate {
	c := &Aggregate{
		order: make([]domain.SlotKey, len(a.order)),
		slots: make(map[domain.SlotKey]map[uuid.UUID]struct{}, len(a.slots)),
	}
	copy(c.order, a.order)
	for key, voters := range a.slots {
		cv := make(map[uuid.UUID]struct{}, len(voters))
		for id := range voters {
			cv[id] = struct{}{}
		}
		c.slots[key] = cv
	}
	return c
}

// Equal compares the slot-to-voters mapping, ignoring key order.
func (a *Aggregate) Equal(b *Aggregate) bool {
	if len(a.slots) != len(b.slots) {
		return false
	}
	for key, voters := range a.slots {
		other, ok := b.slots[key]
		if !ok || len(other) != len(voters) {
			return false
		}
		for id := range voters {
			if _, ok := other[id]; !ok {
				return false
			}
		}
	}
	return true
}
