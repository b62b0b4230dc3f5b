package audit

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// EmitTimeout bounds a single delivery to a sink
const EmitTimeout = time.Second

const drainTimeout = 5 * time.Second

var (
	ErrEventDropped = errors.New("audit buffer full, event dropped")
	ErrSinkClosed   = errors.New("audit sink closed")
)

// Emit delivers event on a context detached from the caller's cancellation
// and bounded by EmitTimeout.
func Emit(ctx context.Context, sink Sink, event Event) error {
	emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), EmitTimeout)
	defer cancel()
	return sink.Emit(emitCtx, event)
}

// AsyncSink queues events for a single background worker. Emit never waits
// on the wrapped sink; when the queue is full the event is dropped.
type AsyncSink struct {
	next   Sink
	logger zerolog.Logger
	events chan Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsyncSink(next Sink, buffer int, logger zerolog.Logger) *AsyncSink {
	if buffer < 1 {
		buffer = 1
	}
	s := &AsyncSink{
		next:   next,
		logger: logger.With().Str("component", "audit").Logger(),
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) Emit(_ context.Context, event Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}

	select {
	case s.events <- event:
		return nil
	default:
		return errors.Wrapf(ErrEventDropped, "event %s", event.Type)
	}
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for event := range s.events {
		if err := Emit(context.Background(), s.next, event); err != nil {
			s.logger.Warn().Err(err).Str("event", string(event.Type)).Msg("Failed to deliver audit event")
		}
	}
}

// Close stops accepting events and waits for the queue to drain
func (s *AsyncSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-time.After(drainTimeout):
		return errors.Errorf("audit queue not drained after %s", drainTimeout)
	}
}
