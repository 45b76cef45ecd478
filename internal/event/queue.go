package event

import "github.com/dshills/switchboard/internal/ring"

// queue is a bounded FIFO of pending events. A full queue evicts its
// oldest entry regardless of priority. Not safe for concurrent use.
type queue struct {
	buf *ring.Buffer[Event]
}

func newQueue(capacity int) *queue {
	return &queue{buf: ring.New[Event](capacity)}
}

// push appends e and returns the evicted entry, if any.
func (q *queue) push(e Event) (Event, bool) {
	return q.buf.Push(e)
}

// drain empties the queue and returns its entries high priority first,
// arrival order within a priority.
func (q *queue) drain() []Event {
	all := q.buf.Drain()
	out := make([]Event, 0, len(all))
	for _, e := range all {
		if e.Priority == PriorityHigh {
			out = append(out, e)
		}
	}
	for _, e := range all {
		if e.Priority != PriorityHigh {
			out = append(out, e)
		}
	}
	return out
}

func (q *queue) len() int {
	return q.buf.Len()
}
