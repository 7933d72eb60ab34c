package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/mcdev12/cueclock/go/internal/timer"
)

func TestNewConfigFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STATIC_DIR", "LOG_LEVEL", "TICK_INTERVAL", "TIMER_DEFAULTS_FILE",
		"CORS_ALLOWED_ORIGINS", "NATS_URL", "NATS_STREAM", "NATS_SUBJECT_PREFIX"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := NewConfigFromEnv()
	if err != nil {
		t.Fatalf("NewConfigFromEnv: %v", err)
	}

	if cfg.Port != 3000 || cfg.Addr() != ":3000" {
		t.Errorf("port = %d addr = %q, want 3000 and :3000", cfg.Port, cfg.Addr())
	}
	if cfg.TickInterval != time.Second {
		t.Errorf("tick interval = %v, want 1s", cfg.TickInterval)
	}
	if cfg.StaticDir != "public" || cfg.LogLevel != "info" {
		t.Errorf("static dir/log level = %q/%q", cfg.StaticDir, cfg.LogLevel)
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"*"}) {
		t.Errorf("cors origins = %v, want [*]", cfg.CORSAllowedOrigins)
	}
	if cfg.NATS.URL != "" || cfg.NATS.Stream != "TIMER_STATE" || cfg.NATS.SubjectPrefix != "timer.room" {
		t.Errorf("nats = %+v", cfg.NATS)
	}
}

func TestNewConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8099")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("NATS_SUBJECT_PREFIX", "timer.stage1")

	cfg, err := NewConfigFromEnv()
	if err != nil {
		t.Fatalf("NewConfigFromEnv: %v", err)
	}

	if cfg.Addr() != ":8099" {
		t.Errorf("addr = %q, want :8099", cfg.Addr())
	}
	if cfg.TickInterval != 250*time.Millisecond {
		t.Errorf("tick interval = %v, want 250ms", cfg.TickInterval)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Errorf("cors origins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
	if cfg.NATS.URL != "nats://localhost:4222" || cfg.NATS.SubjectPrefix != "timer.stage1" {
		t.Errorf("nats = %+v", cfg.NATS)
	}
}

func TestNewConfigFromEnvInvalidPort(t *testing.T) {
	for _, port := range []string{"0", "70000", "http"} {
		t.Run(port, func(t *testing.T) {
			t.Setenv("PORT", port)
			if _, err := NewConfigFromEnv(); err == nil {
				t.Errorf("PORT=%s accepted", port)
			}
		})
	}
}

func TestLoadTimerDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timer.yaml")
	body := "duration: 45m\nred_threshold: 1m\nspeed: 1.5\nshow_clock: true\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	got, err := LoadTimerDefaults(path)
	if err != nil {
		t.Fatalf("LoadTimerDefaults: %v", err)
	}

	want := timer.Defaults{
		Duration:       45 * time.Minute,
		AmberThreshold: timer.DefaultAmberThreshold,
		RedThreshold:   time.Minute,
		Speed:          1.5,
		ShowClock:      true,
	}
	if got != want {
		t.Errorf("defaults = %+v, want %+v", got, want)
	}
}

func TestLoadTimerDefaultsEmptyPath(t *testing.T) {
	got, err := LoadTimerDefaults("")
	if err != nil {
		t.Fatalf("LoadTimerDefaults: %v", err)
	}
	if got != timer.DefaultDefaults() {
		t.Errorf("defaults = %+v, want built-in", got)
	}
}

func TestLoadTimerDefaultsErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{name: "bad yaml", body: "duration: [\n"},
		{name: "bad duration", body: "duration: forever\n"},
		{name: "zero speed", body: "speed: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatalf("writing file: %v", err)
			}
			if _, err := LoadTimerDefaults(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadTimerDefaults(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
