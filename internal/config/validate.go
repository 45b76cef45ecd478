package config

import (
	"net"
	"strings"

	"go.uber.org/multierr"

	"github.com/dshills/switchboard/internal/event/topic"
	"github.com/dshills/switchboard/internal/logging"
	"github.com/dshills/switchboard/internal/security"
)

// Validate checks every section and returns all problems combined.
// Use multierr.Errors to inspect them individually.
func (c *Config) Validate() error {
	var err error
	fail := func(path, msg string, value any) {
		err = multierr.Append(err, &FieldError{Path: path, Message: msg, Value: value})
	}

	if c.Events.QueueCapacity <= 0 {
		fail("events.queue_capacity", "must be positive", c.Events.QueueCapacity)
	}
	if c.Events.ReplaySize <= 0 {
		fail("events.replay_size", "must be positive", c.Events.ReplaySize)
	}
	if c.Events.DrainInterval < 0 {
		fail("events.drain_interval", "must not be negative", c.Events.DrainInterval.String())
	}
	if c.State.HistoryDepth <= 0 {
		fail("state.history_depth", "must be positive", c.State.HistoryDepth)
	}

	err = multierr.Append(err, c.Security.Validate())

	if c.Metrics.Window <= 0 {
		fail("metrics.window", "must be positive", c.Metrics.Window)
	}

	switch strings.ToLower(c.Log.Format) {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		fail("log.format", "must be console or json", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "off", "disabled", "none":
	default:
		fail("log.level", "unknown level", c.Log.Level)
	}

	if c.Introspect.Enabled {
		if msg := checkLoopback(c.Introspect.Addr); msg != "" {
			fail("introspect.addr", msg, c.Introspect.Addr)
		}
	}

	if c.Components.ShutdownTimeout < 0 {
		fail("components.shutdown_timeout", "must not be negative", c.Components.ShutdownTimeout.String())
	}

	return err
}

// Validate checks the security section on its own, as done on live reload.
func (s SecurityConfig) Validate() error {
	var err error
	fail := func(path, msg string, value any) {
		err = multierr.Append(err, &FieldError{Path: path, Message: msg, Value: value})
	}

	for _, p := range s.AllowList {
		if !topic.Topic(p).IsValidPattern() {
			fail("security.allow_list", "not a valid event pattern", p)
		}
	}
	if s.RateLimit < 0 {
		fail("security.rate_limit", "must not be negative", s.RateLimit)
	}
	if s.RateLimit > 0 && s.RateBurst < 1 {
		fail("security.rate_burst", "must be at least 1 when rate_limit is set", s.RateBurst)
	}
	if _, perr := security.ParseContext(s.EscapeContext); perr != nil {
		fail("security.escape_context", "must be html, attribute, script, default or none", s.EscapeContext)
	}
	return err
}

// checkLoopback returns a message if addr is not a loopback host:port.
func checkLoopback(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "must be host:port"
	}
	if host == "localhost" {
		return ""
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return "must be a loopback address"
	}
	return ""
}
