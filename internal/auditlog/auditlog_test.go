package auditlog

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemorySink_Record(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	err := sink.Record(ctx, Event{
		Time:      time.Unix(1_700_000_000, 0).UTC(),
		Opcode:    5,
		Operation: "ProposeToken",
		Signer:    "signer",
		Track:     "token",
		Amount:    1_000_000_000_000,
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	sink.Record(ctx, Event{Operation: "ApproveToken", Success: false, Error: "unauthorized"})

	events := sink.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Operation != "ProposeToken" || !events[0].Success {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Error != "unauthorized" {
		t.Errorf("second event error = %q", events[1].Error)
	}

	// Events returns a copy.
	events[0].Operation = "mutated"
	if sink.Events()[0].Operation != "ProposeToken" {
		t.Error("Events must return a copy")
	}
}

func TestMemorySink_Concurrent(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Record(ctx, Event{Operation: "ProposeToken"})
		}()
	}
	wg.Wait()

	if got := len(sink.Events()); got != 50 {
		t.Errorf("got %d events, want 50", got)
	}
}

func TestNopSink(t *testing.T) {
	var sink NopSink
	if err := sink.Record(context.Background(), Event{}); err != nil {
		t.Errorf("NopSink.Record: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("NopSink.Close: %v", err)
	}
}
