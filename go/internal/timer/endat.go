package timer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClockTime parses a wall-clock "HH:MM" string.
func ParseClockTime(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid clock time %q: missing ':'", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid clock time %q: bad hour", s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid clock time %q: bad minute", s)
	}
	return hour, minute, nil
}

// NextOccurrence returns the next instant strictly after now at which the
// wall clock in now's location reads hour:minute:00. A target equal to or
// before now rolls over to the following day.
func NextOccurrence(hour, minute int, now time.Time) time.Time {
	y, mo, d := now.Date()
	target := time.Date(y, mo, d, hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = time.Date(y, mo, d+1, hour, minute, 0, 0, now.Location())
	}
	return target
}

// DurationUntil resolves an "HH:MM" end-at target to the duration between
// now and its next occurrence.
func DurationUntil(endAt string, now time.Time) (time.Duration, error) {
	hour, minute, err := ParseClockTime(endAt)
	if err != nil {
		return 0, err
	}
	return NextOccurrence(hour, minute, now).Sub(now), nil
}
