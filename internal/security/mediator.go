package security

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/dshills/switchboard/internal/event/dispatch"
	"github.com/dshills/switchboard/internal/event/topic"
	"github.com/dshills/switchboard/internal/orcherr"
)

// Validator inspects an event payload and returns an error to reject it.
type Validator func(payload any) error

type validatorEntry struct {
	pattern topic.Topic
	fn      Validator
}

// Outcome is the result of mediating a payload that was not rejected.
type Outcome struct {
	// Value is the sanitized payload.
	Value any

	// Stripped lists the dotted paths of removed keys.
	Stripped []string

	// Notice describes the stripping, nil if nothing was removed.
	Notice *orcherr.SecurityError
}

// Stats contains mediation counters.
type Stats struct {
	EventsChecked  uint64
	EventsRejected uint64
	RateLimited    uint64
	KeysStripped   uint64
}

// Mediator enforces the allow-list, payload validators and rate limits, and
// sanitizes payloads and state values.
type Mediator struct {
	mu               sync.RWMutex
	allowListEnabled bool
	allowList        *topic.Trie
	validators       []validatorEntry
	escape           Context

	limiter  *sourceLimiter
	executor *dispatch.Executor
	logger   zerolog.Logger

	checked     atomic.Uint64
	rejected    atomic.Uint64
	rateLimited atomic.Uint64
	stripped    atomic.Uint64
}

// Option configures a Mediator.
type Option func(*mediatorConfig)

type mediatorConfig struct {
	logger    zerolog.Logger
	clock     clock.Clock
	allow     []string
	enabled   bool
	perSecond float64
	burst     int
	escape    Context
}

// WithLogger sets the mediator logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *mediatorConfig) {
		c.logger = l.With().Str("component", "security").Logger()
	}
}

// WithClock sets the clock used by the rate limiter.
func WithClock(clk clock.Clock) Option {
	return func(c *mediatorConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithAllowList enables the allow-list with the given patterns.
// Invalid patterns are ignored; use Allow to see errors.
func WithAllowList(patterns ...string) Option {
	return func(c *mediatorConfig) {
		c.enabled = true
		c.allow = append(c.allow, patterns...)
	}
}

// WithRateLimit limits each source to perSecond events with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *mediatorConfig) {
		c.perSecond = perSecond
		c.burst = burst
	}
}

// WithEscapeContext escapes every string in mediated payloads for ctx.
func WithEscapeContext(ctx Context) Option {
	return func(c *mediatorConfig) {
		c.escape = ctx
	}
}

// NewMediator creates a new mediator. The allow-list starts disabled and
// rate limiting is off unless configured.
func NewMediator(opts ...Option) *Mediator {
	cfg := mediatorConfig{logger: zerolog.Nop(), clock: clock.New()}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Mediator{
		allowList: topic.NewTrie(),
		escape:    cfg.escape,
		limiter:   newSourceLimiter(cfg.clock),
		logger:    cfg.logger,
	}
	m.executor = dispatch.NewExecutor(
		dispatch.WithExecutorClock(cfg.clock),
		dispatch.WithExecutorPanicHandler(func(label string, v any, stack []byte) {
			m.logger.Error().
				Str("validator", label).
				Interface("panic", v).
				Bytes("stack", stack).
				Msg("payload validator panicked")
		}),
	)

	m.allowListEnabled = cfg.enabled
	for _, p := range cfg.allow {
		_ = m.Allow(p)
	}
	m.limiter.configure(cfg.perSecond, cfg.burst)
	return m
}

// SetAllowListEnabled turns allow-list enforcement on or off.
func (m *Mediator) SetAllowListEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowListEnabled = enabled
}

// AllowListEnabled reports whether the allow-list is enforced.
func (m *Mediator) AllowListEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allowListEnabled
}

// Allow adds patterns to the allow-list.
func (m *Mediator) Allow(patterns ...string) error {
	for _, p := range patterns {
		if !topic.Topic(p).IsValidPattern() {
			return orcherr.NewValidationError("allow_event", "pattern", p, "not a valid event pattern")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range patterns {
		m.allowList.Insert(topic.Topic(p))
	}
	return nil
}

// Disallow removes patterns from the allow-list.
func (m *Mediator) Disallow(patterns ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range patterns {
		m.allowList.Delete(topic.Topic(p))
	}
}

// ReplaceAllowList swaps the allow-list contents and enforcement flag in one
// step.
func (m *Mediator) ReplaceAllowList(enabled bool, patterns []string) error {
	next := topic.NewTrie()
	for _, p := range patterns {
		if !topic.Topic(p).IsValidPattern() {
			return orcherr.NewValidationError("allow_event", "pattern", p, "not a valid event pattern")
		}
		next.Insert(topic.Topic(p))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowList = next
	m.allowListEnabled = enabled
	return nil
}

// AllowedPatterns returns the allow-list patterns.
func (m *Mediator) AllowedPatterns() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.allowList.All()
	out := make([]string, len(all))
	for i, p := range all {
		out[i] = p.String()
	}
	return out
}

// IsAllowed reports whether name passes the allow-list.
func (m *Mediator) IsAllowed(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isAllowedLocked(name)
}

func (m *Mediator) isAllowedLocked(name string) bool {
	if !m.allowListEnabled {
		return true
	}
	return len(m.allowList.Match(topic.Topic(name))) > 0
}

// RegisterValidator adds a payload validator for events matching pattern.
// Validators run in registration order.
func (m *Mediator) RegisterValidator(pattern string, v Validator) error {
	if !topic.Topic(pattern).IsValidPattern() {
		return orcherr.NewValidationError("register_validator", "pattern", pattern, "not a valid event pattern")
	}
	if v == nil {
		return orcherr.NewValidationError("register_validator", "validator", pattern, "must not be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.validators = append(m.validators, validatorEntry{pattern: topic.Topic(pattern), fn: v})
	return nil
}

// RemoveValidators drops every validator registered for pattern and returns
// how many were removed.
func (m *Mediator) RemoveValidators(pattern string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.validators[:0]
	removed := 0
	for _, v := range m.validators {
		if v.pattern == topic.Topic(pattern) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	clear(m.validators[len(kept):])
	m.validators = kept
	return removed
}

// SetRateLimit limits each source to perSecond events with the given
// burst. perSecond <= 0 disables rate limiting.
func (m *Mediator) SetRateLimit(perSecond float64, burst int) {
	m.limiter.configure(perSecond, burst)
}

// RateLimit returns the configured per-source rate and burst.
func (m *Mediator) RateLimit() (float64, int) {
	return m.limiter.settings()
}

// SetEscapeContext sets the context used to escape payload strings.
func (m *Mediator) SetEscapeContext(ctx Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escape = ctx
}

// CheckEvent applies the allow-list, the rate limit and the validators to an
// event without touching its payload.
func (m *Mediator) CheckEvent(source, name string, payload any) error {
	m.checked.Add(1)

	m.mu.RLock()
	allowed := m.isAllowedLocked(name)
	var validators []validatorEntry
	for _, v := range m.validators {
		if topic.Topic(name).Matches(v.pattern) {
			validators = append(validators, v)
		}
	}
	m.mu.RUnlock()

	if !allowed {
		return m.reject(orcherr.NewSecurityError(name, source, "event not in allow-list"))
	}

	if m.limiter.enabled() && !m.limiter.allow(source) {
		m.rateLimited.Add(1)
		return m.reject(orcherr.NewSecurityError(name, source, "rate limit exceeded"))
	}

	for _, v := range validators {
		fn := v.fn
		res := m.executor.Execute(context.Background(), v.pattern.String(), func(context.Context) error {
			return fn(payload)
		})
		if res.IsSuccess() {
			continue
		}
		return m.reject(orcherr.NewSecurityError(name, source, fmt.Sprintf("payload rejected: %v", res.Err())))
	}

	return nil
}

func (m *Mediator) reject(err *orcherr.SecurityError) error {
	m.rejected.Add(1)
	m.logger.Warn().
		Str("event", err.Event).
		Str("source", err.Source).
		Str("reason", err.Reason).
		Msg("event rejected")
	return err
}

// MediateEvent checks an event and returns its sanitized payload. A
// rejection is returned as *orcherr.SecurityError.
func (m *Mediator) MediateEvent(source, name string, payload any) (Outcome, error) {
	if err := m.CheckEvent(source, name, payload); err != nil {
		return Outcome{}, err
	}
	return m.sanitize(name, source, payload), nil
}

// MediateState sanitizes a value about to be written at path.
func (m *Mediator) MediateState(source, path string, value any) Outcome {
	return m.sanitize(path, source, value)
}

// SanitizePayload sanitizes a payload that bypasses the bus, such as a
// broadcast message.
func (m *Mediator) SanitizePayload(source, label string, payload any) Outcome {
	return m.sanitize(label, source, payload)
}

func (m *Mediator) sanitize(label, source string, value any) Outcome {
	m.mu.RLock()
	escape := m.escape
	m.mu.RUnlock()

	clean, stripped := SanitizeObject(value)
	clean = SanitizeStrings(clean, escape)

	out := Outcome{Value: clean, Stripped: stripped}
	if len(stripped) > 0 {
		m.stripped.Add(uint64(len(stripped)))
		notice := orcherr.NewSecurityError(label, source, "dangerous keys stripped")
		notice.Keys = stripped
		out.Notice = notice
		m.logger.Warn().
			Str("target", label).
			Str("source", source).
			Strs("keys", stripped).
			Msg("dangerous keys stripped")
	}
	return out
}

// Stats returns mediation counters.
func (m *Mediator) Stats() Stats {
	return Stats{
		EventsChecked:  m.checked.Load(),
		EventsRejected: m.rejected.Load(),
		RateLimited:    m.rateLimited.Load(),
		KeysStripped:   m.stripped.Load(),
	}
}
