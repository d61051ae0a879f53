package domain

import (
	"fmt"
	"strings"
	"time"
)

// SlotKey identifies one votable unit within a poll. Schedule keys are
// "<Day>-<HH:MM:SS>", calendar keys are ISO dates.
type SlotKey string

// DateLayout is the calendar slot key format.
const DateLayout = "2006-01-02"

const (
	firstHour     = 7
	slotsPerDay   = 22
	slotSeparator = "-"
)

// Weekdays are the canonical day labels a schedule poll may select from.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// WorkingHours are the half-hour boundaries from 07:00 to 17:30 inclusive.
var WorkingHours = buildWorkingHours()

func buildWorkingHours() []string {
	hours := make([]string, 0, slotsPerDay)
	for i := 0; i < slotsPerDay; i++ {
		hour := firstHour + i/2
		minute := 0
		if i%2 == 1 {
			minute = 30
		}
		hours = append(hours, fmt.Sprintf("%02d:%02d:00", hour, minute))
	}
	return hours
}

// Slot holds the components a vote record is stored with. Schedule slots set
// Day and Hour; calendar slots set Date.
type Slot struct {
	Day  string `json:"day,omitempty"`
	Hour string `json:"hour,omitempty"`
	Date string `json:"date,omitempty"`
}

func ScheduleSlot(day, hour string) Slot {
	return Slot{Day: day, Hour: hour}
}

func CalendarSlot(date time.Time) Slot {
	return Slot{Date: date.Format(DateLayout)}
}

func (s Slot) Key() SlotKey {
	if s.Date != "" {
		return SlotKey(s.Date)
	}
	return SlotKey(s.Day + slotSeparator + s.Hour)
}

// ParseScheduleSlot splits a schedule key back into day and hour.
func ParseScheduleSlot(key SlotKey) (Slot, error) {
	day, hour, ok := strings.Cut(string(key), slotSeparator)
	if !ok || !IsWeekday(day) || !isWorkingHour(hour) {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidSlot, key)
	}
	return ScheduleSlot(day, hour), nil
}

// ParseCalendarSlot validates an ISO date key.
func ParseCalendarSlot(key SlotKey) (Slot, error) {
	date, err := time.Parse(DateLayout, string(key))
	if err != nil {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidSlot, key)
	}
	return CalendarSlot(date), nil
}

func IsWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

func isWorkingHour(hour string) bool {
	for _, h := range WorkingHours {
		if h == hour {
			return true
		}
	}
	return false
}

// ScheduleSlotKeys returns every key of the day x hour grid in
// weekday-then-hour order.
func ScheduleSlotKeys(days []string) []SlotKey {
	keys := make([]SlotKey, 0, len(days)*len(WorkingHours))
	for _, day := range days {
		for _, hour := range WorkingHours {
			keys = append(keys, ScheduleSlot(day, hour).Key())
		}
	}
	return keys
}

// MaxCalendarDays bounds the date range of a calendar poll.
const MaxCalendarDays = 366

// CalendarDates lists every date in [start, end]. It returns nil when end is
// before start.
func CalendarDates(start, end time.Time) []time.Time {
	start = truncateDate(start)
	end = truncateDate(end)
	if end.Before(start) {
		return nil
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
