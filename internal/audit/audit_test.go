package audit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-server/internal/audit"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type publishCall struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakePublisher struct {
	calls []publishCall
	err   error
}

func (p *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.calls = append(p.calls, publishCall{exchange: exchange, key: key, msg: msg})
	return nil
}

type recordingSink struct {
	events []audit.Event
	err    error
}

func (s *recordingSink) Emit(_ context.Context, event audit.Event) error {
	s.events = append(s.events, event)
	return s.err
}

func testEvent() audit.Event {
	return audit.Event{
		Type:     audit.EventReuseDetected,
		UserID:   "42",
		RecordID: "rec-1",
		Reason:   "reuse-detected",
		Count:    3,
		At:       time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := audit.NewLogSink(zerolog.New(&buf))

	require.NoError(t, sink.Emit(context.Background(), testEvent()))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "warn", line["level"])
	require.Equal(t, "refresh_reuse_detected", line["event"])
	require.Equal(t, "42", line["user_id"])
	require.Equal(t, "rec-1", line["record_id"])
	require.EqualValues(t, 3, line["count"])
	require.Equal(t, "audit", line["component"])
}

func TestAMQPSinkPublishesJSON(t *testing.T) {
	publisher := &fakePublisher{}
	sink := audit.NewAMQPSink(publisher, "session.audit")

	require.NoError(t, sink.Emit(context.Background(), testEvent()))
	require.Len(t, publisher.calls, 1)

	call := publisher.calls[0]
	require.Equal(t, "session.audit", call.exchange)
	require.Equal(t, "session.refresh_reuse_detected", call.key)
	require.Equal(t, "application/json", call.msg.ContentType)
	require.Equal(t, amqp.Persistent, call.msg.DeliveryMode)
	require.NotEmpty(t, call.msg.MessageId)

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(call.msg.Body, &decoded))
	require.Equal(t, testEvent(), decoded)
}

func TestAMQPSinkPublishError(t *testing.T) {
	sink := audit.NewAMQPSink(&fakePublisher{err: errors.New("channel closed")}, "session.audit")
	err := sink.Emit(context.Background(), testEvent())
	require.ErrorContains(t, err, "channel closed")
}

func TestMultiSinkTriesEverySink(t *testing.T) {
	failing := &recordingSink{err: errors.New("boom")}
	ok := &recordingSink{}

	err := audit.MultiSink{failing, nil, ok}.Emit(context.Background(), testEvent())
	require.EqualError(t, err, "boom")
	require.Len(t, failing.events, 1)
	require.Len(t, ok.events, 1)

	require.NoError(t, audit.Nop{}.Emit(context.Background(), testEvent()))
}
