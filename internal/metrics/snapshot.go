package metrics

import "time"

// Snapshot aggregates counters from every subsystem of an orchestrator.
type Snapshot struct {
	EventsDispatched    uint64        `json:"eventsDispatched"`
	EventsQueued        int           `json:"eventsQueued"` // Current queue length
	StateUpdates        uint64        `json:"stateUpdates"`
	ComponentCount      int           `json:"componentCount"`
	ActiveSubscriptions int           `json:"activeSubscriptions"`
	FailedComponents    int           `json:"failedComponents"`
	AverageDispatchTime time.Duration `json:"averageDispatchTime"`

	QueueOverflows     uint64 `json:"queueOverflows"`
	HandlerErrors      uint64 `json:"handlerErrors"`
	HandlerPanics      uint64 `json:"handlerPanics"`
	SecurityRejections uint64 `json:"securityRejections"`
	KeysStripped       uint64 `json:"keysStripped"`
	StateSubscriptions int    `json:"stateSubscriptions"`
	ReplayBufferSize   int    `json:"replayBufferSize"`
	Broadcasts         uint64 `json:"broadcasts"`
	BroadcastFailures  uint64 `json:"broadcastFailures"`

	Uptime time.Duration `json:"uptime"`
}
