package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/bazaar/internal/domain/event"
)

type fakeWriter struct {
	mu    sync.Mutex
	fails int
	msgs  []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("broker unavailable")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestIdentityEvents_PublishKeyedJSONWithTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	w := &fakeWriter{fails: 1}
	events := NewIdentityEvents(newProducer(w, "identity").WithLogger(zap.NewNop()), zap.NewNop())

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	pub := uuid.New()
	ev := event.Identity{
		Kind:     event.KindLoggedIn,
		PublicID: &pub,
		CartID:   uuid.New(),
		At:       time.Unix(1_700_000_000, 0).UTC(),
	}
	require.NoError(t, events.Publish(ctx, ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, ev.CartID.String(), string(msg.Key))
	assert.Equal(t, "application/json", header(msg, "content-type"))
	assert.Contains(t, header(msg, "traceparent"), sc.TraceID().String())

	var got event.Identity
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, ev, got)
}

func TestIdentityEvents_GivesUp(t *testing.T) {
	w := &fakeWriter{fails: 10}
	events := NewIdentityEvents(newProducer(w, "identity"), zap.NewNop())

	err := events.Publish(context.Background(), event.Identity{Kind: event.KindSignedUp, CartID: uuid.New()})
	assert.Error(t, err)
	assert.Empty(t, w.msgs)
	assert.Equal(t, 7, w.fails)
}
