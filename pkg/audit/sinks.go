package audit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// MemorySink keeps records in process memory.
type MemorySink struct {
	mu      sync.Mutex
	records []domain.AuditRecord
}

// NewMemorySink creates an empty memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores a copy of rec.
func (s *MemorySink) Append(ctx context.Context, rec domain.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// List returns up to limit records, newest first.
func (s *MemorySink) List(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.AuditRecord, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Records returns all records in append order.
func (s *MemorySink) Records() []domain.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Kinds returns the event kinds in append order.
func (s *MemorySink) Kinds() []domain.AuditEventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEventKind, len(s.records))
	for i, r := range s.records {
		out[i] = r.EventKind
	}
	return out
}

// LogSink mirrors records into the structured log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs every record at info level.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Append logs rec.
func (s *LogSink) Append(ctx context.Context, rec domain.AuditRecord) error {
	attrs := []any{
		"audit_id", rec.ID.String(),
		"event", string(rec.EventKind),
		"outcome", string(rec.Outcome),
		"description", rec.Description,
	}
	if rec.ActorID != nil {
		attrs = append(attrs, "actor_id", rec.ActorID.String())
	}
	if rec.ActorLabel != "" {
		attrs = append(attrs, "actor", rec.ActorLabel)
	}
	if rec.ClientAddress != "" {
		attrs = append(attrs, "client", rec.ClientAddress)
	}
	if rec.TargetEntityID != nil {
		attrs = append(attrs, "target", *rec.TargetEntityID)
	}
	s.logger.InfoContext(ctx, "audit", attrs...)
	return nil
}

// MultiSink appends to a durable primary sink and then fans the record out
// to secondary sinks through an asynchronous dispatcher. Only a primary
// failure is returned.
type MultiSink struct {
	primary    Sink
	dispatcher *Dispatcher
}

// NewMultiSink creates a sink over primary. With no secondaries it behaves
// like primary.
func NewMultiSink(primary Sink, dispatcher *Dispatcher) *MultiSink {
	return &MultiSink{primary: primary, dispatcher: dispatcher}
}

// Append writes to the primary and then enqueues the fan-out.
func (m *MultiSink) Append(ctx context.Context, rec domain.AuditRecord) error {
	if err := m.primary.Append(ctx, rec); err != nil {
		return err
	}
	m.dispatcher.Emit(ctx, rec)
	return nil
}

// List delegates to the primary when it can be read.
func (m *MultiSink) List(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	if r, ok := m.primary.(Reader); ok {
		return r.List(ctx, limit)
	}
	return nil, nil
}
