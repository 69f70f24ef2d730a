package notifier

import (
	"context"
	"sync"
)

// Published is one call captured by Recorder.
type Published struct {
	Name       EventName
	Message    string
	Data       any
	RefreshTag string
}

// Recorder is a Publisher that keeps every call in memory. Service tests use
// it to assert what was announced after commit.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

func (r *Recorder) Publish(_ context.Context, name EventName, message string, data any, refreshTag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Name: name, Message: message, Data: data, RefreshTag: refreshTag})
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many times name was published.
func (r *Recorder) Count(name EventName) int {
	n := 0
	for _, e := range r.Events() {
		if e.Name == name {
			n++
		}
	}
	return n
}
