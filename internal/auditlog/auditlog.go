// Package auditlog records an append-only trail of executed instructions.
// Events are written after the instruction commits; the trail observes the
// protocol, it is never part of an instruction's atomic effect.
package auditlog

import (
	"context"
	"time"
)

// Event is one executed (or failed) instruction.
type Event struct {
	Time      time.Time
	Opcode    uint8
	Operation string
	Signer    string // base58
	Track     string // empty for admin and pool ops
	Target    string // base58 address of the record acted on, if any
	Amount    uint64 // stake/fund/withdraw amount, if any
	Success   bool
	Error     string // empty on success
}

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, e Event) error
	Close() error
}

// NopSink discards every event.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(context.Context, Event) error { return nil }

// Close implements Sink.
func (NopSink) Close() error { return nil }
