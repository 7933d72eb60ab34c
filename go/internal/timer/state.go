package timer

import "time"

// Mode is the run state of the timer.
type Mode string

const (
	ModeStopped Mode = "stopped"
	ModeRunning Mode = "running"
	ModePaused  Mode = "paused"
)

// Default settings applied when the process starts.
const (
	DefaultDuration       = 30 * time.Minute
	DefaultAmberThreshold = 5 * time.Minute
	DefaultRedThreshold   = 2 * time.Minute
	DefaultSpeed          = 1.0
	DefaultTickInterval   = time.Second
)

// State is the canonical timer state for a room. It is also the wire
// snapshot: every broadcast carries a full copy of it.
type State struct {
	Mode               Mode    `json:"mode"`
	DurationMs         int64   `json:"durationMs"`
	StartTime          *int64  `json:"startTime"`
	PauseTime          *int64  `json:"pauseTime"`
	AccumulatedPauseMs int64   `json:"accumulatedPauseMs"`
	Speed              float64 `json:"speed"`
	AmberThresholdMs   int64   `json:"amberThresholdMs"`
	RedThresholdMs     int64   `json:"redThresholdMs"`
	EndAtTarget        *string `json:"endAtTarget"`
	CountUp            bool    `json:"countUp"`
	ShowClock          bool    `json:"showClock"`
}

// Snapshot is an immutable copy of State handed to observers.
type Snapshot = State

// Defaults holds the settings a fresh State starts with.
type Defaults struct {
	Duration       time.Duration
	AmberThreshold time.Duration
	RedThreshold   time.Duration
	Speed          float64
	CountUp        bool
	ShowClock      bool
}

// DefaultDefaults returns the built-in initial settings.
func DefaultDefaults() Defaults {
	return Defaults{
		Duration:       DefaultDuration,
		AmberThreshold: DefaultAmberThreshold,
		RedThreshold:   DefaultRedThreshold,
		Speed:          DefaultSpeed,
	}
}

// NewState returns a stopped state carrying the given defaults.
func NewState(d Defaults) State {
	return State{
		Mode:             ModeStopped,
		DurationMs:       d.Duration.Milliseconds(),
		Speed:            d.Speed,
		AmberThresholdMs: d.AmberThreshold.Milliseconds(),
		RedThresholdMs:   d.RedThreshold.Milliseconds(),
		CountUp:          d.CountUp,
		ShowClock:        d.ShowClock,
	}
}

// Clone returns a deep copy so observers never share pointers with the
// coordinator's working state.
func (s State) Clone() State {
	c := s
	c.StartTime = cloneInt64(s.StartTime)
	c.PauseTime = cloneInt64(s.PauseTime)
	if s.EndAtTarget != nil {
		v := *s.EndAtTarget
		c.EndAtTarget = &v
	}
	return c
}

// Settings is a partial update. Nil fields leave the current value alone.
type Settings struct {
	DurationMs       *int64   `json:"durationMs,omitempty"`
	Speed            *float64 `json:"speed,omitempty"`
	AmberThresholdMs *int64   `json:"amberThresholdMs,omitempty"`
	RedThresholdMs   *int64   `json:"redThresholdMs,omitempty"`
	EndAtTarget      *string  `json:"endAtTarget,omitempty"`
	CountUp          *bool    `json:"countUp,omitempty"`
	ShowClock        *bool    `json:"showClock,omitempty"`
}

// Start begins a fresh run at now, applying any supplied settings. It
// always applies, including while already running.
func (s *State) Start(opts Settings, now time.Time) bool {
	ms := now.UnixMilli()
	s.Mode = ModeRunning
	s.StartTime = &ms
	s.PauseTime = nil
	s.AccumulatedPauseMs = 0
	s.apply(opts, now)
	return true
}

// Pause freezes a running timer. It reports false and changes nothing
// unless the timer is running.
func (s *State) Pause(now time.Time) bool {
	if s.Mode != ModeRunning {
		return false
	}
	ms := now.UnixMilli()
	s.Mode = ModePaused
	s.PauseTime = &ms
	return true
}

// Resume continues a paused timer, folding the pause into
// AccumulatedPauseMs. It reports false unless the timer is paused.
func (s *State) Resume(now time.Time) bool {
	if s.Mode != ModePaused {
		return false
	}
	if s.PauseTime != nil {
		s.AccumulatedPauseMs += now.UnixMilli() - *s.PauseTime
	}
	s.Mode = ModeRunning
	s.PauseTime = nil
	return true
}

// Reset stops the timer and clears run bookkeeping. Settings survive.
func (s *State) Reset() bool {
	s.Mode = ModeStopped
	s.StartTime = nil
	s.PauseTime = nil
	s.AccumulatedPauseMs = 0
	s.EndAtTarget = nil
	return true
}

// UpdateSettings applies a partial settings update without touching the
// run in progress.
func (s *State) UpdateSettings(opts Settings, now time.Time) bool {
	s.apply(opts, now)
	return true
}

func (s *State) apply(opts Settings, now time.Time) {
	if opts.DurationMs != nil {
		s.DurationMs = *opts.DurationMs
	}
	if opts.Speed != nil {
		s.Speed = *opts.Speed
	}
	if opts.AmberThresholdMs != nil {
		s.AmberThresholdMs = *opts.AmberThresholdMs
	}
	if opts.RedThresholdMs != nil {
		s.RedThresholdMs = *opts.RedThresholdMs
	}
	if opts.DurationMs == nil && opts.EndAtTarget != nil && *opts.EndAtTarget != "" {
		if d, err := DurationUntil(*opts.EndAtTarget, now); err == nil {
			target := *opts.EndAtTarget
			s.EndAtTarget = &target
			s.DurationMs = d.Milliseconds()
		}
	}
	if opts.CountUp != nil {
		s.CountUp = *opts.CountUp
	}
	if opts.ShowClock != nil {
		s.ShowClock = *opts.ShowClock
	}
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
