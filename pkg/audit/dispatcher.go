package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// DispatcherConfig controls fan-out buffering.
type DispatcherConfig struct {
	BufferSize int
	// DropIfFull drops records instead of blocking the caller.
	DropIfFull bool
	// SendTimeout bounds each secondary append.
	SendTimeout time.Duration
}

// Dispatcher forwards records to secondary sinks on a background goroutine.
// A nil *Dispatcher is valid and does nothing.
type Dispatcher struct {
	cfg       DispatcherConfig
	sinks     []Sink
	logger    *slog.Logger
	ch        chan domain.AuditRecord
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closeOnce sync.Once

	// mu orders sends against Close: senders hold it shared, Close holds it
	// exclusively while marking the dispatcher closed.
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts a dispatcher. It returns nil when there are no sinks.
func NewDispatcher(cfg DispatcherConfig, logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if len(sinks) == 0 {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		cfg:    cfg,
		sinks:  sinks,
		logger: logger,
		ch:     make(chan domain.AuditRecord, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case rec := <-d.ch:
			d.deliver(rec)
		case <-d.done:
			for {
				select {
				case rec := <-d.ch:
					d.deliver(rec)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(rec domain.AuditRecord) {
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
		if err := s.Append(ctx, rec); err != nil {
			d.logger.Warn("audit fan-out failed", "event", rec.EventKind, "audit_id", rec.ID.String(), "error", err)
		}
		cancel()
	}
}

// Emit enqueues rec for delivery. Records that cannot be queued, because the
// buffer is full in DropIfFull mode, ctx ends first or the dispatcher is
// closed, are counted by Dropped. Every queued record is delivered before
// Close returns.
func (d *Dispatcher) Emit(ctx context.Context, rec domain.AuditRecord) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- rec:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- rec:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close drains queued records and stops the dispatcher.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.done)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

// Dropped returns how many records were never queued.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
