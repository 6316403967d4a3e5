package auditlog

import (
	"context"
	"sync"
)

// MemorySink buffers events in memory. Used by tests and the standalone
// daemon mode.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends the event.
func (s *MemorySink) Record(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of all recorded events.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Close implements Sink.
func (s *MemorySink) Close() error { return nil }

// Verify interface compliance at compile time.
var _ Sink = (*MemorySink)(nil)
