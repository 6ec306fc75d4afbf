// Package audit records security events to an append-only trail.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// Sink durably appends audit records.
type Sink interface {
	Append(ctx context.Context, rec domain.AuditRecord) error
}

// Reader lists the most recent audit records, newest first.
type Reader interface {
	List(ctx context.Context, limit int) ([]domain.AuditRecord, error)
}

// DefaultTimeout bounds a single append when none is configured.
const DefaultTimeout = 3 * time.Second

// Recorder validates, stamps and appends audit records.
type Recorder struct {
	sink    Sink
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewRecorder creates a recorder writing to sink.
func NewRecorder(sink Sink, logger *slog.Logger, timeout time.Duration) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Recorder{sink: sink, logger: logger, timeout: timeout, now: time.Now}
}

// WithClock overrides the clock used to stamp records.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record stamps rec with an ID and timestamp and appends it. A sink failure
// or timeout is reported as domain.ErrStoreUnavailable.
func (r *Recorder) Record(ctx context.Context, rec domain.AuditRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.now().UTC()
	}
	if rec.Outcome == "" {
		rec.Outcome = domain.OutcomePending
	}
	if err := rec.Validate(); err != nil {
		r.logger.Error("rejected audit record", "event", rec.EventKind, "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.sink.Append(ctx, rec); err != nil {
		r.logger.Error("audit append failed", "event", rec.EventKind, "error", err)
		return fmt.Errorf("%w: audit: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// IsUnavailable reports whether err means the audit trail could not be written.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrStoreUnavailable)
}
