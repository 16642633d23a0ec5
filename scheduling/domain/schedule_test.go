package domain

import (
	"testing"
	"time"
)

func TestEncodeDecodeSchedule(t *testing.T) {
	cases := []Schedule{
		DailySchedule{At: HourMinute{Hour: 9, Minute: 30}},
		HourlySchedule{Hours: []int{17, 9, 13}},
		WeeklySchedule{Days: []time.Weekday{time.Friday, time.Monday}, At: HourMinute{Hour: 8}},
		CustomSchedule{Expression: "0 9 * * 1"},
	}

	for _, original := range cases {
		kind, payload, err := EncodeSchedule(original)
		if err != nil {
			t.Fatalf("%T: encode: %v", original, err)
		}

		decoded, err := DecodeSchedule(kind, payload)
		if err != nil {
			t.Fatalf("%T: decode: %v", original, err)
		}
		if decoded.Kind() != original.Kind() {
			t.Errorf("kind mismatch: %s vs %s", decoded.Kind(), original.Kind())
		}
	}
}

func TestDecodeScheduleSortsSets(t *testing.T) {
	decoded, err := DecodeSchedule(ScheduleKindHourly, `{"hours":[17,9,13]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	hourly := decoded.(HourlySchedule)
	for i := 1; i < len(hourly.Hours); i++ {
		if hourly.Hours[i-1] > hourly.Hours[i] {
			t.Errorf("hours not sorted: %v", hourly.Hours)
		}
	}

	decoded, err = DecodeSchedule(ScheduleKindWeekly, `{"days":[5,1],"at":{"hour":8}}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	weekly := decoded.(WeeklySchedule)
	if len(weekly.Days) != 2 || weekly.Days[0] != time.Monday {
		t.Errorf("days not sorted: %v", weekly.Days)
	}
}

func TestDecodeScheduleUnknownKind(t *testing.T) {
	if _, err := DecodeSchedule("monthly", "{}"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestEncodeNilSchedule(t *testing.T) {
	if _, _, err := EncodeSchedule(nil); err == nil {
		t.Error("expected error for nil schedule")
	}
}

func TestPostStateHelpers(t *testing.T) {
	post := ScheduledPost{Status: PostStatusScheduled, ScheduledAt: time.Now().Add(-time.Minute)}
	if !post.IsDue(time.Now()) {
		t.Error("past scheduled post should be due")
	}
	if !post.Editable() {
		t.Error("scheduled post should be editable")
	}

	post.Status = PostStatusPublishing
	if post.IsDue(time.Now()) || post.Editable() || post.Terminal() {
		t.Error("publishing post is neither due, editable nor terminal")
	}

	post.Status = PostStatusPublished
	if !post.Terminal() {
		t.Error("published is terminal")
	}
	post.Status = PostStatusFailed
	if !post.Terminal() {
		t.Error("failed is terminal")
	}
}
