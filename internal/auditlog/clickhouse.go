package auditlog

import (
	"context"
	"fmt"

	chstore "listing-protocol/internal/storage/clickhouse"
)

// ClickhouseSink writes audit events to the audit_events table.
type ClickhouseSink struct {
	conn *chstore.Conn
}

// NewClickhouseSink creates a sink over an existing ClickHouse connection.
func NewClickhouseSink(conn *chstore.Conn) *ClickhouseSink {
	return &ClickhouseSink{conn: conn}
}

// Record inserts one event.
func (s *ClickhouseSink) Record(ctx context.Context, e Event) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO audit_events (
			event_time, opcode, operation, signer, track, target, amount, success, error
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	success := uint8(0)
	if e.Success {
		success = 1
	}
	if err := batch.Append(
		e.Time, e.Opcode, e.Operation, e.Signer, e.Track, e.Target,
		e.Amount, success, e.Error,
	); err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *ClickhouseSink) Close() error {
	return s.conn.Close()
}

// Verify interface compliance at compile time.
var _ Sink = (*ClickhouseSink)(nil)
