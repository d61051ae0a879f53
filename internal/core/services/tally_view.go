package services

import (
	"sort"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/tally"
)

type SlotView struct {
	Key         domain.SlotKey `json:"key"`
	Slot        domain.Slot    `json:"slot"`
	Count       int            `json:"count"`
	Voters      []uuid.UUID    `json:"voters"`
	VoterEmails []string       `json:"voter_emails"` // resolved voters only, sorted
	Tier        tally.Tier     `json:"tier"`
	Voted       bool           `json:"voted"`
}

// TallyView is a read-only copy of a poll's aggregate as one viewer sees it.
type TallyView struct {
	Poll  *domain.Poll `json:"poll"`
	Slots []SlotView   `json:"slots"`
}

// NewTallyView lays the aggregate out in the poll's natural slot order:
// weekday then hour for schedule polls, every date of the range for calendar
// polls.
func NewTallyView(poll *domain.Poll, agg *tally.Aggregate, ranks map[domain.SlotKey]tally.Tier, viewer uuid.UUID, emails map[uuid.UUID]string) *TallyView {
	view := &TallyView{Poll: poll}

	add := func(slot domain.Slot) {
		key := slot.Key()
		voters := agg.Voters(key)
		view.Slots = append(view.Slots, SlotView{
			Key:         key,
			Slot:        slot,
			Count:       agg.Count(key),
			Voters:      voters,
			VoterEmails: voterEmails(voters, emails),
			Tier:        ranks[key],
			Voted:       viewer != uuid.Nil && agg.HasVoted(key, viewer),
		})
	}

	switch poll.Kind {
	case domain.PollKindSchedule:
		for _, day := range poll.Days {
			for _, hour := range domain.WorkingHours {
				add(domain.ScheduleSlot(day, hour))
			}
		}
	case domain.PollKindCalendar:
		if poll.StartDate != nil && poll.EndDate != nil {
			for _, date := range domain.CalendarDates(*poll.StartDate, *poll.EndDate) {
				add(domain.CalendarSlot(date))
			}
		}
	}
	return view
}

func voterEmails(voters []uuid.UUID, emails map[uuid.UUID]string) []string {
	out := make([]string, 0, len(voters))
	for _, id := range voters {
		if email, ok := emails[id]; ok {
			out = append(out, email)
		}
	}
	sort.Strings(out)
	return out
}
