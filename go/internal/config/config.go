package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/cueclock/go/internal/timer"
)

// Config holds gateway process settings read from the environment.
type Config struct {
	Port               int           `env:"PORT" envDefault:"3000"`
	StaticDir          string        `env:"STATIC_DIR" envDefault:"public"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	TickInterval       time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	TimerDefaultsFile  string        `env:"TIMER_DEFAULTS_FILE"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	NATS               NATSConfig    `envPrefix:"NATS_"`
}

// NATSConfig configures the optional JetStream state mirror. An empty URL
// disables it.
type NATSConfig struct {
	URL           string `env:"URL"`
	Stream        string `env:"STREAM" envDefault:"TIMER_STATE"`
	SubjectPrefix string `env:"SUBJECT_PREFIX" envDefault:"timer.room"`
}

// NewConfigFromEnv parses the process environment (with defaults).
func NewConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	return cfg, nil
}

// Addr returns the listen address for Port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// timerDefaultsFile is the YAML layout of TIMER_DEFAULTS_FILE. Absent keys
// keep the built-in default.
type timerDefaultsFile struct {
	Duration       *time.Duration `yaml:"duration"`
	AmberThreshold *time.Duration `yaml:"amber_threshold"`
	RedThreshold   *time.Duration `yaml:"red_threshold"`
	Speed          *float64       `yaml:"speed"`
	CountUp        *bool          `yaml:"count_up"`
	ShowClock      *bool          `yaml:"show_clock"`
}

// LoadTimerDefaults returns the built-in timer defaults overlaid with the
// YAML file at path. An empty path returns the built-in defaults.
func LoadTimerDefaults(path string) (timer.Defaults, error) {
	d := timer.DefaultDefaults()
	if path == "" {
		return d, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("failed to read timer defaults file: %w", err)
	}

	var f timerDefaultsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return d, fmt.Errorf("failed to parse timer defaults file: %w", err)
	}

	if f.Duration != nil {
		d.Duration = *f.Duration
	}
	if f.AmberThreshold != nil {
		d.AmberThreshold = *f.AmberThreshold
	}
	if f.RedThreshold != nil {
		d.RedThreshold = *f.RedThreshold
	}
	if f.Speed != nil {
		if *f.Speed <= 0 {
			return d, errors.New("timer defaults: speed must be positive")
		}
		d.Speed = *f.Speed
	}
	if f.CountUp != nil {
		d.CountUp = *f.CountUp
	}
	if f.ShowClock != nil {
		d.ShowClock = *f.ShowClock
	}
	return d, nil
}
