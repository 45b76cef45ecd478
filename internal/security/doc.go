// Package security mediates everything that crosses from a component into
// the shared event bus and state tree.
//
// # Sanitizing
//
// SanitizeObject returns a copy of a payload with prototype-polluting keys
// ("__proto__", "constructor", "prototype") removed at any depth and reports
// the stripped key paths. SanitizeInput escapes a string for a rendering
// context (html, attribute, script or default).
//
// # Event mediation
//
// A Mediator checks emitted events before they reach the bus:
//
//   - Allow-list: when enabled, only names matching an allowed pattern
//     may be emitted. Patterns use the bus syntax ("user:created",
//     "user:*", "*").
//   - Validators: functions registered for a pattern may reject a payload.
//   - Rate limits: an optional per-source token bucket.
//
// Rejections are reported as *orcherr.SecurityError. The bus and the state
// store never sanitize on their own; the orchestrator routes every emit and
// state write through a Mediator first.
//
// Example usage:
//
//	m := security.NewMediator()
//	m.SetAllowListEnabled(true)
//	_ = m.Allow("user:*")
//	m.RegisterValidator("user:created", func(p any) error {
//	    if _, ok := p.(map[string]any)["id"]; !ok {
//	        return errors.New("missing id")
//	    }
//	    return nil
//	})
//
//	out, err := m.MediateEvent("table", "user:created", payload)
package security
