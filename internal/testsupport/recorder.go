package testsupport

import (
	"sync"

	"sipc/internal/events"
)

// Recorder is a Publisher that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

// Publish implements events.Publisher.
func (r *Recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Logs returns the payloads of recorded log events.
func (r *Recorder) Logs() []events.LogEntry {
	var logs []events.LogEntry
	for _, e := range r.Events() {
		if e.Type == events.TypeLog && e.Log != nil {
			logs = append(logs, *e.Log)
		}
	}
	return logs
}
