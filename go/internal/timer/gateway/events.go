package gateway

import (
	"encoding/json"
	"math"

	"github.com/mcdev12/cueclock/go/internal/timer"
)

// Envelope is the frame carried by every WebSocket text message in either
// direction.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EventType names a WebSocket event
type EventType string

const (
	// Inbound, control panel -> coordinator
	EventStartTimer     EventType = "startTimer"
	EventPauseTimer     EventType = "pauseTimer"
	EventResumeTimer    EventType = "resumeTimer"
	EventResetTimer     EventType = "resetTimer"
	EventUpdateSettings EventType = "updateSettings"

	// Outbound, coordinator -> every observer
	EventTimerState EventType = "timerState"
)

var commandForEvent = map[EventType]timer.CommandType{
	EventStartTimer:     timer.CommandStart,
	EventPauseTimer:     timer.CommandPause,
	EventResumeTimer:    timer.CommandResume,
	EventResetTimer:     timer.CommandReset,
	EventUpdateSettings: timer.CommandUpdateSettings,
}

// ParseCommand decodes an inbound frame into a timer command. It reports
// false for frames that are not JSON envelopes or name an unknown event.
func ParseCommand(frame []byte) (timer.Command, bool) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return timer.Command{}, false
	}

	cmdType, ok := commandForEvent[env.Event]
	if !ok {
		return timer.Command{}, false
	}

	cmd := timer.Command{Type: cmdType}
	if cmdType == timer.CommandStart || cmdType == timer.CommandUpdateSettings {
		cmd.Settings = ParseSettings(env.Data)
	}
	return cmd, true
}

// ParseSettings decodes a settings payload leniently: a missing, null, or
// wrongly typed field is treated as not supplied, and never invalidates
// the fields around it.
func ParseSettings(data json.RawMessage) timer.Settings {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return timer.Settings{}
	}

	return timer.Settings{
		DurationMs:       millisField(fields, "durationMs"),
		Speed:            field[float64](fields, "speed"),
		AmberThresholdMs: millisField(fields, "amberThresholdMs"),
		RedThresholdMs:   millisField(fields, "redThresholdMs"),
		EndAtTarget:      field[string](fields, "endAtTarget"),
		CountUp:          field[bool](fields, "countUp"),
		ShowClock:        field[bool](fields, "showClock"),
	}
}

// EncodeState builds the outbound timerState frame for a snapshot.
func EncodeState(snapshot timer.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: EventTimerState, Data: data})
}

func field[T any](fields map[string]json.RawMessage, key string) *T {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// millisField accepts any JSON number, since browsers freely send
// fractional milliseconds.
func millisField(fields map[string]json.RawMessage, key string) *int64 {
	f := field[float64](fields, key)
	if f == nil {
		return nil
	}
	ms := int64(math.Round(*f))
	return &ms
}
