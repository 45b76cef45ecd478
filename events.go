package switchboard

import (
	"context"
	"errors"

	"github.com/dshills/switchboard/internal/event"
	"github.com/dshills/switchboard/internal/event/topic"
	"github.com/dshills/switchboard/internal/orcherr"
)

// Delivery reports the outcome of Emit.
type Delivery struct {
	event.Delivery

	// Rejected is set when the security mediator refused the event. A
	// rejected event reaches no handler and is not recorded for replay.
	Rejected *orcherr.SecurityError

	// Notice is set when dangerous keys were stripped from the payload
	// before delivery.
	Notice *orcherr.SecurityError
}

// Accepted reports whether the event passed mediation.
func (d Delivery) Accepted() bool {
	return d.Rejected == nil
}

// On subscribes fn to an exact event name, a prefix pattern ("ns:*") or
// every event ("*"). It returns the subscription id.
func (o *Orchestrator) On(pattern string, fn HandlerFunc, opts ...SubscriptionOption) (string, error) {
	return o.bus.SubscribeFunc(pattern, fn, opts...)
}

// Subscribe is On for a Handler value.
func (o *Orchestrator) Subscribe(pattern string, h Handler, opts ...SubscriptionOption) (string, error) {
	return o.bus.Subscribe(pattern, h, opts...)
}

// Off removes a subscription. It is safe to call from inside a handler.
// A dispatch already in progress still calls the removed handler; only
// later emits skip it.
func (o *Orchestrator) Off(id string) error {
	return o.bus.Unsubscribe(id)
}

// Emit mediates and publishes an event. Without Queued the event is
// delivered to every matching handler before Emit returns.
//
// The only error is a ValidationError for a malformed name. Security
// rejections are reported in Delivery.Rejected and handler failures in
// Delivery.Failed.
func (o *Orchestrator) Emit(ctx context.Context, name string, payload any, opts ...EmitOption) (Delivery, error) {
	return o.emit(ctx, HostSource, name, payload, opts)
}

func (o *Orchestrator) emit(ctx context.Context, source, name string, payload any, opts []EmitOption) (Delivery, error) {
	if !topic.Topic(name).IsValid() {
		return Delivery{}, orcherr.NewValidationError("emit", "event name", name,
			"names are non-empty colon-separated segments without wildcards")
	}

	all := make([]EmitOption, 0, len(opts)+1)
	all = append(all, event.WithSource(source))
	all = append(all, opts...)

	// Options may override the source.
	var draft event.Event
	for _, opt := range all {
		opt(&draft)
	}

	out, err := o.security.MediateEvent(draft.Source, name, payload)
	if err != nil {
		var se *orcherr.SecurityError
		if !errors.As(err, &se) {
			se = orcherr.NewSecurityError(name, draft.Source, err.Error())
		}
		return Delivery{Rejected: se}, nil
	}

	delivered, err := o.bus.Emit(ctx, name, out.Value, all...)
	if err != nil {
		return Delivery{}, err
	}
	return Delivery{Delivery: delivered, Notice: out.Notice}, nil
}

// ProcessQueue drains the events queued before the call, high priority
// first, and returns how many were dispatched.
func (o *Orchestrator) ProcessQueue(ctx context.Context) int {
	return o.bus.ProcessQueue(ctx)
}

// Replay re-delivers up to limit recorded events matching filter to the
// current subscribers, oldest first, and returns them. A nil filter
// matches everything and limit <= 0 means no limit.
func (o *Orchestrator) Replay(ctx context.Context, filter FilterFunc, limit int) []Event {
	return o.bus.Replay(ctx, filter, limit)
}

// QueueLen returns the number of queued events.
func (o *Orchestrator) QueueLen() int {
	return o.bus.QueueLen()
}
