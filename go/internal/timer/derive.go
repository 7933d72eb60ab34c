package timer

import "time"

// Color is the display band a display should render in.
type Color string

const (
	ColorGreen Color = "green"
	ColorAmber Color = "amber"
	ColorRed   Color = "red"
)

// Elapsed returns the speed-scaled time accrued in the current run.
// While paused the clock is frozen at PauseTime; a stopped timer has
// accrued nothing.
func (s State) Elapsed(now time.Time) time.Duration {
	if s.Mode == ModeStopped || s.StartTime == nil {
		return 0
	}
	at := now.UnixMilli()
	if s.Mode == ModePaused && s.PauseTime != nil {
		at = *s.PauseTime
	}
	active := at - *s.StartTime - s.AccumulatedPauseMs
	return time.Duration(float64(active) * s.Speed * float64(time.Millisecond))
}

// Remaining returns the time left until DurationMs. It goes negative once
// the run overshoots.
func (s State) Remaining(now time.Time) time.Duration {
	return time.Duration(s.DurationMs)*time.Millisecond - s.Elapsed(now)
}

// Display returns the value a display shows: elapsed time when counting
// up, remaining time otherwise.
func (s State) Display(now time.Time) time.Duration {
	if s.CountUp {
		return s.Elapsed(now)
	}
	return s.Remaining(now)
}

// Overtime reports whether the run has passed its duration.
func (s State) Overtime(now time.Time) bool {
	return s.Remaining(now) < 0
}

// Color bands are always measured against time left to the target, so that
// a count-up display still turns amber and red as the cutoff approaches.
func (s State) Color(now time.Time) Color {
	remaining := s.Remaining(now).Milliseconds()
	switch {
	case remaining <= s.RedThresholdMs:
		return ColorRed
	case remaining <= s.AmberThresholdMs:
		return ColorAmber
	default:
		return ColorGreen
	}
}
