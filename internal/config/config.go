// Package config loads the TOML file that drives the build/run/replay
// subcommands: one [monitor.NAME] table per compiled property, plus the
// bus, trace, and storage tables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration for TOML string parsing ("10s", "1m").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	return nil
}

// Config is the root of the TOML document.
type Config struct {
	Monitor map[string]MonitorConfig `toml:"monitor"`
	Bus     BusConfig                `toml:"bus"`
	Trace   TraceConfig              `toml:"trace"`
	Storage StorageConfig            `toml:"storage"`
}

// EventConfig names one simple event: the topic it occurs on, a predicate
// expression in the internal/predicate grammar, and an optional alias under
// which later events may reference the captured message.
type EventConfig struct {
	Topic     string `toml:"topic"`
	Condition string `toml:"condition"`
	Alias     string `toml:"alias"`
}

// MonitorConfig is one [monitor.NAME] table: a scope, a pattern, and the
// events that fill it in. Activator/Terminator/Behaviour/Trigger are arrays
// because a scope or pattern event may be a disjunction over several
// topics; most properties need just one entry in each.
type MonitorConfig struct {
	Title       string        `toml:"title"`
	Description string        `toml:"description"`
	Scope       string        `toml:"scope"`   // "global", "after", "until", "after_until"
	Pattern     string        `toml:"pattern"` // "absence", "existence", "requirement", "response", "prevention"
	Timeout     Duration      `toml:"timeout"`
	Activator   []EventConfig `toml:"activator"`
	Terminator  []EventConfig `toml:"terminator"`
	Behaviour   []EventConfig `toml:"behaviour"`
	Trigger     []EventConfig `toml:"trigger"`
}

// BusConfig configures the live-update bus's TCP listener.
type BusConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	MaxConnections int    `toml:"max_connections"`
}

// TraceConfig points the replay subcommand at a trace file and a replay
// frequency. Without a file here, replay needs one from its -trace flag.
type TraceConfig struct {
	File      string  `toml:"file"`
	Frequency float64 `toml:"frequency"`
}

// StorageConfig enables the optional lifecycle-event history log.
type StorageConfig struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	RetentionDays int    `toml:"retention_days"`
}

// LoadConfig reads, decodes, defaults, and validates the TOML file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(cfg, md)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config, md toml.MetaData) {
	if cfg.Bus.Host == "" {
		cfg.Bus.Host = "127.0.0.1"
	}
	if cfg.Bus.Port == 0 {
		cfg.Bus.Port = 7777
	}
	if cfg.Bus.MaxConnections == 0 {
		cfg.Bus.MaxConnections = 64
	}
	if cfg.Trace.Frequency == 0 {
		cfg.Trace.Frequency = 10
	}
	if cfg.Storage.Enabled && cfg.Storage.Path == "" {
		cfg.Storage.Path = "hplrv_history.db"
	}
	if cfg.Storage.Enabled && cfg.Storage.RetentionDays == 0 {
		cfg.Storage.RetentionDays = 30
	}
	_ = md // no per-monitor field currently needs an IsDefined distinction from its zero value
}

func validate(cfg *Config) error {
	if len(cfg.Monitor) == 0 {
		return fmt.Errorf("config defines no [monitor.*] tables")
	}
	for name, mc := range cfg.Monitor {
		if err := validateMonitor(name, mc); err != nil {
			return err
		}
	}
	if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
		return fmt.Errorf("bus: port %d out of range", cfg.Bus.Port)
	}
	if cfg.Bus.MaxConnections < 1 {
		return fmt.Errorf("bus: max_connections must be >= 1, got %d", cfg.Bus.MaxConnections)
	}
	if cfg.Trace.File != "" && cfg.Trace.Frequency <= 0 {
		return fmt.Errorf("trace: frequency must be > 0, got %v", cfg.Trace.Frequency)
	}
	if cfg.Storage.Enabled && cfg.Storage.RetentionDays < 1 {
		return fmt.Errorf("storage: retention_days must be >= 1, got %d", cfg.Storage.RetentionDays)
	}
	return nil
}

func validateMonitor(name string, mc MonitorConfig) error {
	switch mc.Scope {
	case "global", "after", "until", "after_until":
	default:
		return fmt.Errorf("monitor %q: unknown scope %q", name, mc.Scope)
	}
	switch mc.Pattern {
	case "absence", "existence", "requirement", "response", "prevention":
	default:
		return fmt.Errorf("monitor %q: unknown pattern %q", name, mc.Pattern)
	}
	if (mc.Scope == "after" || mc.Scope == "after_until") && len(mc.Activator) == 0 {
		return fmt.Errorf("monitor %q: scope %q requires at least one activator event", name, mc.Scope)
	}
	if (mc.Scope == "until" || mc.Scope == "after_until") && len(mc.Terminator) == 0 {
		return fmt.Errorf("monitor %q: scope %q requires at least one terminator event", name, mc.Scope)
	}
	if len(mc.Behaviour) == 0 {
		return fmt.Errorf("monitor %q: pattern %q requires at least one behaviour event", name, mc.Pattern)
	}
	if (mc.Pattern == "requirement" || mc.Pattern == "response" || mc.Pattern == "prevention") && len(mc.Trigger) == 0 {
		return fmt.Errorf("monitor %q: pattern %q requires at least one trigger event", name, mc.Pattern)
	}
	for _, group := range [][]EventConfig{mc.Activator, mc.Terminator, mc.Behaviour, mc.Trigger} {
		for _, ev := range group {
			if ev.Topic == "" {
				return fmt.Errorf("monitor %q: event missing topic", name)
			}
		}
	}
	return nil
}
