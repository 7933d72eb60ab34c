package timer

import (
	"testing"
	"time"
)

func TestDurationUntil(t *testing.T) {
	day := func(h, m int) time.Time {
		return time.Date(2025, time.March, 14, h, m, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		now   time.Time
		endAt string
		want  time.Duration
	}{
		{name: "later today", now: day(10, 0), endAt: "12:00", want: 2 * time.Hour},
		{name: "rolls past midnight", now: day(23, 50), endAt: "00:10", want: 20 * time.Minute},
		{name: "exactly now rolls to tomorrow", now: day(12, 0), endAt: "12:00", want: 24 * time.Hour},
		{name: "earlier today rolls to tomorrow", now: day(13, 0), endAt: "12:30", want: 23*time.Hour + 30*time.Minute},
		{name: "single digit parts", now: day(8, 0), endAt: "9:5", want: time.Hour + 5*time.Minute},
		{name: "seconds are truncated from target", now: day(10, 0).Add(30 * time.Second), endAt: "10:01", want: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DurationUntil(tt.endAt, tt.now)
			if err != nil {
				t.Fatalf("DurationUntil(%q): %v", tt.endAt, err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDurationUntilMonthRollover(t *testing.T) {
	now := time.Date(2025, time.January, 31, 23, 0, 0, 0, time.UTC)

	got := NextOccurrence(6, 0, now)

	want := time.Date(2025, time.February, 1, 6, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseClockTimeInvalid(t *testing.T) {
	for _, in := range []string{"", "1200", "24:00", "12:60", "ab:cd", "-1:00", "12:", "12:00:30", "9:05am"} {
		if _, _, err := ParseClockTime(in); err == nil {
			t.Errorf("ParseClockTime(%q) returned no error", in)
		}
	}
}
