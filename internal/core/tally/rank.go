package tally

import (
	"sort"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

// Tier is a popularity bucket: 1 for the highest distinct count, 2 and 3 for
// the next two, 0 for everything else.
type Tier int

const (
	Unranked Tier = 0
	MaxTier  Tier = 3
)

// Rank assigns a tier to every key. Slots sharing a count share a tier and
// zero-vote slots are never ranked.
func Rank(counts map[domain.SlotKey]int) map[domain.SlotKey]Tier {
	seen := make(map[int]struct{})
	var distinct []int
	for _, n := range counts {
		if n <= 0 {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		distinct = append(distinct, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(distinct)))
	if len(distinct) > int(MaxTier) {
		distinct = distinct[:int(MaxTier)]
	}

	tierOf := make(map[int]Tier, len(distinct))
	for i, n := range distinct {
		tierOf[n] = Tier(i + 1)
	}

	ranks := make(map[domain.SlotKey]Tier, len(counts))
	for key, n := range counts {
		ranks[key] = tierOf[n]
	}
	return ranks
}
