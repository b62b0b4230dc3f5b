package refresh

import (
	"context"
	"time"

	"github.com/jrsteele09/go-session-server/internal/audit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultStoreTimeout = 2 * time.Second

type options struct {
	logger       zerolog.Logger
	sink         audit.Sink
	storeTimeout time.Duration
	nowFunc      func() time.Time
}

// Option configures an Engine or a Revoker
type Option func(*options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithAuditSink(sink audit.Sink) Option {
	return func(o *options) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithStoreTimeout bounds every individual store call
func WithStoreTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.storeTimeout = timeout
		}
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.nowFunc = now
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:       log.Logger,
		sink:         audit.Nop{},
		storeTimeout: defaultStoreTimeout,
		nowFunc:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.storeTimeout)
}

// revocationContext keeps the store deadline but ignores cancellation of ctx
func (o options) revocationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.storeTimeout)
}

func (o options) now() time.Time {
	return o.nowFunc().UTC()
}

func (o options) emit(ctx context.Context, event audit.Event) {
	if event.At.IsZero() {
		event.At = o.now()
	}
	if err := audit.Emit(ctx, o.sink, event); err != nil {
		o.logger.Warn().Err(err).Str("event", string(event.Type)).Msg("Failed to emit audit event")
	}
}
