package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// EventType names a security-relevant session event
type EventType string

const (
	EventLogin          EventType = "login"
	EventLoginFailed    EventType = "login_failed"
	EventRotation       EventType = "refresh_rotated"
	EventReuseDetected  EventType = "refresh_reuse_detected"
	EventChainRevoked   EventType = "refresh_chain_revoked"
	EventUserRevoked    EventType = "refresh_user_revoked"
	EventDeviceRevoked  EventType = "refresh_device_revoked"
	EventRotationDenied EventType = "refresh_rotation_denied"
)

// Event is a single audit record. It never carries raw tokens or token hashes.
type Event struct {
	Type     EventType         `json:"type"`
	UserID   string            `json:"user_id,omitempty"`
	DeviceID string            `json:"device_id,omitempty"`
	RecordID string            `json:"record_id,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Count    int               `json:"count,omitempty"`
	At       time.Time         `json:"at"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Sink receives audit events. Emit must not block the request path for long;
// failures are reported but never change the outcome of the operation that emitted the event.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// Nop discards every event
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }

// LogSink writes events as structured zerolog lines
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Emit(_ context.Context, event Event) error {
	level := zerolog.InfoLevel
	if event.Type == EventReuseDetected {
		level = zerolog.WarnLevel
	}

	e := s.logger.WithLevel(level).
		Str("event", string(event.Type)).
		Time("at", event.At)
	if event.UserID != "" {
		e = e.Str("user_id", event.UserID)
	}
	if event.DeviceID != "" {
		e = e.Str("device_id", event.DeviceID)
	}
	if event.RecordID != "" {
		e = e.Str("record_id", event.RecordID)
	}
	if event.Reason != "" {
		e = e.Str("reason", event.Reason)
	}
	if event.Count > 0 {
		e = e.Int("count", event.Count)
	}
	for k, v := range event.Metadata {
		e = e.Str(k, v)
	}
	e.Msg("audit")
	return nil
}

// MultiSink fans an event out to every sink, returning the first error after
// all sinks have been tried
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event Event) error {
	var firstErr error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
