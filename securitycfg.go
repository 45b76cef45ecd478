package switchboard

import (
	"github.com/dshills/switchboard/internal/config"
	"github.com/dshills/switchboard/internal/security"
)

// AllowEvents adds patterns to the event allow-list.
func (o *Orchestrator) AllowEvents(patterns ...string) error {
	return o.security.Allow(patterns...)
}

// SetAllowListEnabled turns allow-list enforcement on or off.
func (o *Orchestrator) SetAllowListEnabled(enabled bool) {
	o.security.SetAllowListEnabled(enabled)
}

// RegisterValidator adds a payload validator for events matching pattern.
// A validator that returns an error or panics rejects the event.
func (o *Orchestrator) RegisterValidator(pattern string, v Validator) error {
	return o.security.RegisterValidator(pattern, v)
}

// ApplySecurityConfig replaces the allow-list, rate limit and escape
// context. Nothing changes if sc is invalid.
func (o *Orchestrator) ApplySecurityConfig(sc config.SecurityConfig) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	escape, _ := security.ParseContext(sc.EscapeContext)

	if err := o.security.ReplaceAllowList(sc.AllowListEnabled, sc.AllowList); err != nil {
		return err
	}
	o.security.SetRateLimit(sc.RateLimit, sc.RateBurst)
	o.security.SetEscapeContext(escape)

	o.mu.Lock()
	o.config.Security = sc
	o.config.Security.AllowList = append([]string(nil), sc.AllowList...)
	o.mu.Unlock()

	o.logger.Info().
		Bool("allow_list", sc.AllowListEnabled).
		Int("patterns", len(sc.AllowList)).
		Float64("rate_limit", sc.RateLimit).
		Msg("security configuration applied")
	return nil
}
