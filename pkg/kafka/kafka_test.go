package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishEncodesJSON(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.Publish(context.Background(), "reports", []byte("20200131"), map[string]int{"flagged": 2})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "reports", w.msgs[0].Topic)
	assert.Equal(t, "20200131", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"flagged":2}`, string(w.msgs[0].Value))
}

func TestPublishPassesBytesThrough(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "gzip")

	require.NoError(t, p.Publish(context.Background(), "t", nil, []byte("raw")))
	assert.Equal(t, "raw", string(w.msgs[0].Value))
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter(&recordingWriter{err: boom}, "gzip")

	err := p.Publish(context.Background(), "reports", nil, "x")
	assert.ErrorIs(t, err, boom)
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestBackoffStaysInRange(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoff(100*time.Millisecond, time.Second, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
}

func TestTraceHook(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, err := TraceHook().BeforeHandle(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceID(ctx))
	assert.Empty(t, TraceID(context.Background()))
}

func TestSafeBeforeRecoversPanic(t *testing.T) {
	h := HookFuncs{Before: func(context.Context, kafka.Message) (context.Context, error) { panic("bad hook") }}
	_, err := safeBefore(h, context.Background(), kafka.Message{})
	assert.Error(t, err)
}
