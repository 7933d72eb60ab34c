package gateway

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/mcdev12/cueclock/go/internal/timer"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name   string
		frame  string
		want   timer.Command
		wantOK bool
	}{
		{
			name:   "start with duration",
			frame:  `{"event":"startTimer","data":{"durationMs":60000,"speed":1.5}}`,
			want:   timer.Command{Type: timer.CommandStart, Settings: timer.Settings{DurationMs: ptr(int64(60000)), Speed: ptr(1.5)}},
			wantOK: true,
		},
		{
			name:   "pause ignores payload",
			frame:  `{"event":"pauseTimer","data":{"durationMs":5}}`,
			want:   timer.Command{Type: timer.CommandPause},
			wantOK: true,
		},
		{
			name:   "resume without data",
			frame:  `{"event":"resumeTimer"}`,
			want:   timer.Command{Type: timer.CommandResume},
			wantOK: true,
		},
		{
			name:   "reset with empty data",
			frame:  `{"event":"resetTimer","data":{}}`,
			want:   timer.Command{Type: timer.CommandReset},
			wantOK: true,
		},
		{
			name:   "update settings end at",
			frame:  `{"event":"updateSettings","data":{"endAtTarget":"18:30","showClock":true}}`,
			want:   timer.Command{Type: timer.CommandUpdateSettings, Settings: timer.Settings{EndAtTarget: ptr("18:30"), ShowClock: ptr(true)}},
			wantOK: true,
		},
		{
			name:   "start with null data",
			frame:  `{"event":"startTimer","data":null}`,
			want:   timer.Command{Type: timer.CommandStart},
			wantOK: true,
		},
		{name: "unknown event", frame: `{"event":"explode"}`},
		{name: "outbound event is not a command", frame: `{"event":"timerState","data":{}}`},
		{name: "not json", frame: `startTimer`},
		{name: "json array", frame: `["startTimer"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCommand([]byte(tt.frame))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("command = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseSettingsLenient(t *testing.T) {
	data := json.RawMessage(`{
		"durationMs": "sixty",
		"speed": 2,
		"amberThresholdMs": 30000.6,
		"redThresholdMs": null,
		"countUp": "yes",
		"showClock": false,
		"endAtTarget": 1200,
		"extra": {"ignored": true}
	}`)

	got := ParseSettings(data)

	want := timer.Settings{
		Speed:            ptr(2.0),
		AmberThresholdMs: ptr(int64(30001)),
		ShowClock:        ptr(false),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("settings = %+v, want %+v", got, want)
	}
}

func TestParseSettingsKeepsTrustedValues(t *testing.T) {
	got := ParseSettings(json.RawMessage(`{"durationMs":-5000,"speed":0}`))

	if got.DurationMs == nil || *got.DurationMs != -5000 {
		t.Errorf("durationMs = %v, want -5000", got.DurationMs)
	}
	if got.Speed == nil || *got.Speed != 0 {
		t.Errorf("speed = %v, want 0", got.Speed)
	}
}

func TestEncodeStateCarriesFullSnapshot(t *testing.T) {
	frame, err := EncodeState(timer.NewState(timer.DefaultDefaults()))
	if err != nil {
		t.Fatalf("EncodeState: %v", err)
	}

	var env struct {
		Event string                     `json:"event"`
		Data  map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("decoding frame: %v", err)
	}

	if env.Event != "timerState" {
		t.Errorf("event = %q, want timerState", env.Event)
	}

	fields := []string{"mode", "durationMs", "startTime", "pauseTime", "accumulatedPauseMs", "speed",
		"amberThresholdMs", "redThresholdMs", "endAtTarget", "countUp", "showClock"}
	if len(env.Data) != len(fields) {
		t.Errorf("snapshot has %d fields, want %d: %s", len(env.Data), len(fields), frame)
	}
	for _, f := range fields {
		if _, ok := env.Data[f]; !ok {
			t.Errorf("snapshot missing %q", f)
		}
	}
	for _, f := range []string{"startTime", "pauseTime", "endAtTarget"} {
		if string(env.Data[f]) != "null" {
			t.Errorf("%s = %s, want null", f, env.Data[f])
		}
	}
	if string(env.Data["mode"]) != `"stopped"` {
		t.Errorf("mode = %s, want \"stopped\"", env.Data["mode"])
	}
}

func ptr[T any](v T) *T { return &v }
