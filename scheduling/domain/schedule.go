package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type ScheduleKind string

const (
	ScheduleKindDaily  ScheduleKind = "daily"
	ScheduleKindHourly ScheduleKind = "hourly"
	ScheduleKindWeekly ScheduleKind = "weekly"
	ScheduleKindCustom ScheduleKind = "custom"
)

// Schedule is a sealed sum type over the four supported shapes. The clock
// matches exhaustively on the concrete types; new shapes must be added
// here and there together.
type Schedule interface {
	Kind() ScheduleKind
	schedule()
}

// HourMinute is a time-of-day in UTC.
type HourMinute struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (hm HourMinute) String() string {
	return fmt.Sprintf("%02d:%02d", hm.Hour, hm.Minute)
}

type DailySchedule struct {
	At HourMinute `json:"at"`
}

type HourlySchedule struct {
	Hours []int `json:"hours"`
}

type WeeklySchedule struct {
	Days []time.Weekday `json:"days"`
	At   HourMinute     `json:"at"`
}

// CustomSchedule carries a raw expression. Expression parsing is
// deliberately not implemented; the clock applies a fixed 24h interval.
type CustomSchedule struct {
	Expression string `json:"expression"`
}

func (DailySchedule) Kind() ScheduleKind  { return ScheduleKindDaily }
func (HourlySchedule) Kind() ScheduleKind { return ScheduleKindHourly }
func (WeeklySchedule) Kind() ScheduleKind { return ScheduleKindWeekly }
func (CustomSchedule) Kind() ScheduleKind { return ScheduleKindCustom }

func (DailySchedule) schedule()  {}
func (HourlySchedule) schedule() {}
func (WeeklySchedule) schedule() {}
func (CustomSchedule) schedule() {}

// EncodeSchedule serializes a schedule into its kind tag and a JSON
// payload for storage (the repository keeps them in separate columns).
func EncodeSchedule(s Schedule) (ScheduleKind, string, error) {
	if s == nil {
		return "", "", fmt.Errorf("schedule is nil")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", "", err
	}
	return s.Kind(), string(data), nil
}

// DecodeSchedule is the inverse of EncodeSchedule.
func DecodeSchedule(kind ScheduleKind, payload string) (Schedule, error) {
	if payload == "" {
		payload = "{}"
	}
	switch kind {
	case ScheduleKindDaily:
		var s DailySchedule
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, err
		}
		return s, nil
	case ScheduleKindHourly:
		var s HourlySchedule
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, err
		}
		sort.Ints(s.Hours)
		return s, nil
	case ScheduleKindWeekly:
		var s WeeklySchedule
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, err
		}
		sort.Slice(s.Days, func(i, j int) bool { return s.Days[i] < s.Days[j] })
		return s, nil
	case ScheduleKindCustom:
		var s CustomSchedule
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown schedule kind: %s", kind)
	}
}
