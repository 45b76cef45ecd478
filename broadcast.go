package switchboard

import (
	"context"
	"time"
)

// BroadcastResult is the outcome of delivering a broadcast to one target.
type BroadcastResult struct {
	ComponentID string
	Success     bool
	Err         error // *orcherr.ComponentError or *orcherr.ValidationError
	Duration    time.Duration
}

// Broadcast invokes the message hook of each target directly, bypassing the
// event bus. The payload is sanitized once; every target receives the same
// sanitized value. A failing, missing or inactive target does not affect
// the others.
func (o *Orchestrator) Broadcast(ctx context.Context, targets []string, message string, payload any) []BroadcastResult {
	out := o.security.SanitizePayload(HostSource, message, payload)

	results := make([]BroadcastResult, 0, len(targets))
	failed := 0
	for _, id := range targets {
		r := o.lifecycle.Deliver(ctx, id, message, out.Value)
		if !r.Success() {
			failed++
		}
		results = append(results, BroadcastResult{
			ComponentID: id,
			Success:     r.Success(),
			Err:         r.Err,
			Duration:    r.Duration,
		})
	}

	o.recorder.RecordBroadcast(len(targets)-failed, failed)
	if failed > 0 {
		o.logger.Warn().
			Str("message", message).
			Int("targets", len(targets)).
			Int("failed", failed).
			Msg("broadcast had failures")
	}
	return results
}
