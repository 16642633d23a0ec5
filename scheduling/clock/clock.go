// Package clock computes the next eligible run instant for recurring
// schedules. All functions are pure; callers pass in the reference time.
package clock

import (
	"sort"
	"time"

	"github.com/nivaro/postpilot/scheduling/domain"
)

const (
	// defaultHour is used when a schedule arrives with an empty hour/time
	// configuration; 09:00 is a sane posting hour and avoids ever looping
	// or panicking on empty sets.
	defaultHour = 9

	// customInterval is the fixed fallback for custom expressions. Real
	// cron parsing is intentionally out of scope; see CustomSchedule.
	customInterval = 24 * time.Hour
)

// NextRun returns the earliest instant strictly after now that satisfies
// the schedule. It is total: malformed inputs fall back to safe defaults
// instead of failing.
func NextRun(s domain.Schedule, now time.Time) time.Time {
	switch s := s.(type) {
	case domain.DailySchedule:
		return nextDaily(s.At, now)
	case domain.HourlySchedule:
		return nextHourly(s.Hours, now)
	case domain.WeeklySchedule:
		return nextWeekly(s.Days, s.At, now)
	case domain.CustomSchedule:
		return now.Add(customInterval)
	default:
		// Schedule is sealed, so this only fires on a nil interface.
		return now.Add(customInterval)
	}
}

func nextDaily(at domain.HourMinute, now time.Time) time.Time {
	at = normalizeHM(at)
	candidate := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func nextHourly(hours []int, now time.Time) time.Time {
	valid := make([]int, 0, len(hours))
	for _, h := range hours {
		if h >= 0 && h <= 23 {
			valid = append(valid, h)
		}
	}
	if len(valid) == 0 {
		valid = []int{defaultHour}
	}
	sort.Ints(valid)

	// Next configured hour strictly after the current one today.
	for _, h := range valid {
		if h > now.Hour() {
			return time.Date(now.Year(), now.Month(), now.Day(), h, 0, 0, 0, now.Location())
		}
	}

	// Nothing left today; wrap to the earliest hour tomorrow.
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), valid[0], 0, 0, 0, now.Location())
}

func nextWeekly(days []time.Weekday, at domain.HourMinute, now time.Time) time.Time {
	at = normalizeHM(at)

	wanted := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			wanted[d] = true
		}
	}
	if len(wanted) == 0 {
		// Empty day set degrades to "every day" rather than never firing.
		for d := time.Sunday; d <= time.Saturday; d++ {
			wanted[d] = true
		}
	}

	// Offset 0 is today, which only counts while its time is still ahead;
	// offset 7 covers "today's weekday again next week".
	for offset := 0; offset <= 7; offset++ {
		day := now.AddDate(0, 0, offset)
		if !wanted[day.Weekday()] {
			continue
		}
		candidate := time.Date(day.Year(), day.Month(), day.Day(), at.Hour, at.Minute, 0, 0, now.Location())
		if candidate.After(now) {
			return candidate
		}
	}

	// Unreachable with a non-empty day set; keep the total contract anyway.
	return now.Add(customInterval)
}

func normalizeHM(at domain.HourMinute) domain.HourMinute {
	if at.Hour < 0 || at.Hour > 23 {
		at.Hour = defaultHour
		at.Minute = 0
	}
	if at.Minute < 0 || at.Minute > 59 {
		at.Minute = 0
	}
	return at
}
