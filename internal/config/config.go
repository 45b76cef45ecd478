package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dshills/switchboard/internal/config/loader"
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "SWITCHBOARD_"

// Config is the complete switchboard configuration.
type Config struct {
	Events     EventsConfig     `toml:"events" yaml:"events" json:"events"`
	State      StateConfig      `toml:"state" yaml:"state" json:"state"`
	Security   SecurityConfig   `toml:"security" yaml:"security" json:"security"`
	Metrics    MetricsConfig    `toml:"metrics" yaml:"metrics" json:"metrics"`
	Log        LogConfig        `toml:"log" yaml:"log" json:"log"`
	Introspect IntrospectConfig `toml:"introspect" yaml:"introspect" json:"introspect"`
	Components ComponentsConfig `toml:"components" yaml:"components" json:"components"`
}

// EventsConfig sizes the event bus.
type EventsConfig struct {
	QueueCapacity int `toml:"queue_capacity" yaml:"queue_capacity" json:"queue_capacity"`
	ReplaySize    int `toml:"replay_size" yaml:"replay_size" json:"replay_size"`

	// DrainInterval is how often the host delivers queued events; 0 disables.
	DrainInterval Duration `toml:"drain_interval" yaml:"drain_interval" json:"drain_interval"`
}

// StateConfig configures the state store.
type StateConfig struct {
	HistoryDepth int            `toml:"history_depth" yaml:"history_depth" json:"history_depth"`
	Initial      map[string]any `toml:"initial" yaml:"initial" json:"initial"`
}

// SecurityConfig configures event mediation. It is the only section
// applied on live reload.
type SecurityConfig struct {
	AllowListEnabled bool     `toml:"allow_list_enabled" yaml:"allow_list_enabled" json:"allow_list_enabled"`
	AllowList        []string `toml:"allow_list" yaml:"allow_list" json:"allow_list"`
	RateLimit        float64  `toml:"rate_limit" yaml:"rate_limit" json:"rate_limit"` // Events per second per source; 0 disables
	RateBurst        int      `toml:"rate_burst" yaml:"rate_burst" json:"rate_burst"`
	EscapeContext    string   `toml:"escape_context" yaml:"escape_context" json:"escape_context"`
}

// MetricsConfig configures metric aggregation and export.
type MetricsConfig struct {
	Window    int    `toml:"window" yaml:"window" json:"window"`
	Namespace string `toml:"namespace" yaml:"namespace" json:"namespace"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`
	Format string `toml:"format" yaml:"format" json:"format"`
}

// IntrospectConfig configures the read-only debug API.
type IntrospectConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled" json:"enabled"`
	Addr    string `toml:"addr" yaml:"addr" json:"addr"`
}

// ComponentsConfig configures scripted components loaded by the host.
type ComponentsConfig struct {
	ScriptDir       string   `toml:"script_dir" yaml:"script_dir" json:"script_dir"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Events: EventsConfig{
			QueueCapacity: 100,
			ReplaySize:    50,
			DrainInterval: Duration(50 * time.Millisecond),
		},
		State: StateConfig{
			HistoryDepth: 10,
		},
		Security: SecurityConfig{
			RateBurst: 10,
		},
		Metrics: MetricsConfig{
			Window:    100,
			Namespace: "switchboard",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Introspect: IntrospectConfig{
			Addr: "127.0.0.1:7070",
		},
		Components: ComponentsConfig{
			ShutdownTimeout: Duration(5 * time.Second),
		},
	}
}

// Load reads the file at path over the defaults, then applies environment
// overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	return LoadWithFS(loader.DefaultFS(), path, os.Environ())
}

// LoadWithFS is Load with an explicit file system and environment.
func LoadWithFS(fs loader.FileSystem, path string, environ []string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loader.New(fs).LoadInto(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(environ); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays SWITCHBOARD_* variables from environ onto c.
func (c *Config) ApplyEnv(environ []string) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	doc, err = loader.NewEnvOverlay(EnvPrefix).Apply(doc, environ)
	if err != nil {
		return err
	}

	next := &Config{}
	if err := json.Unmarshal(doc, next); err != nil {
		return fmt.Errorf("applying environment: %w", err)
	}
	*c = *next
	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	doc, err := json.Marshal(c)
	if err != nil {
		cp := *c
		return &cp
	}
	out := &Config{}
	if err := json.Unmarshal(doc, out); err != nil {
		cp := *c
		return &cp
	}
	return out
}

// Duration is a time.Duration that decodes from strings like "5s".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String returns the duration in time.Duration notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
