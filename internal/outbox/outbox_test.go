package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"

	"github.com/NordCoder/bazaar/internal/domain/event"
	"github.com/NordCoder/bazaar/internal/domain/outbox"
)

// memRepo keeps messages in insertion order and ignores claim expiry.
type memRepo struct {
	mu   sync.Mutex
	msgs []*outbox.Message
}

func (r *memRepo) Enqueue(_ context.Context, m outbox.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.msgs {
		if existing.IdempotencyKey == m.IdempotencyKey {
			return nil
		}
	}
	r.msgs = append(r.msgs, &m)
	return nil
}

func (r *memRepo) PickBatch(_ context.Context, batch int, _ time.Duration) ([]outbox.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []outbox.Message
	for _, m := range r.msgs {
		if len(out) == batch {
			break
		}
		if m.Status != outbox.StatusSuccess {
			m.Status = outbox.StatusInProgress
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memRepo) MarkSuccess(_ context.Context, keys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		for _, m := range r.msgs {
			if m.IdempotencyKey == k {
				m.Status = outbox.StatusSuccess
			}
		}
	}
	return nil
}

type flakyPublisher struct {
	mu        sync.Mutex
	failFirst int
	got       []event.Identity
}

func (p *flakyPublisher) Publish(_ context.Context, ev event.Identity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFirst > 0 {
		p.failFirst--
		return errors.New("broker unavailable")
	}
	p.got = append(p.got, ev)
	return nil
}

func TestPublisher_CapturesTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "signup")
	defer span.End()

	repo := &memRepo{}
	ev := event.Identity{Kind: event.KindSignedUp, CartID: uuid.New(), At: time.Now().UTC()}
	require.NoError(t, NewPublisher(repo).Publish(ctx, ev))

	require.Len(t, repo.msgs, 1)
	m := repo.msgs[0]
	assert.Equal(t, outbox.KindIdentityEvent, m.Kind)
	assert.Contains(t, m.Traceparent, span.SpanContext().TraceID().String())
	assert.Contains(t, string(m.Data), `"kind":"signed_up"`)
	assert.Contains(t, string(m.Data), ev.CartID.String())
}

func TestRunner_DeliversAndRetriesFailedMessages(t *testing.T) {
	repo := &memRepo{}
	pub := NewPublisher(repo)
	ctx := context.Background()

	cartA, cartB := uuid.New(), uuid.New()
	require.NoError(t, pub.Publish(ctx, event.Identity{Kind: event.KindLoggedIn, CartID: cartA}))
	require.NoError(t, pub.Publish(ctx, event.Identity{Kind: event.KindCartMerged, CartID: cartB}))

	sink := &flakyPublisher{failFirst: 1}
	r := NewOutboxRunner(zaptest.NewLogger(t), repo, MakeGlobalOutboxHandler(sink), Config{BatchSize: 10})

	assert.Equal(t, 1, r.tick(ctx))
	require.Len(t, sink.got, 1)
	assert.Equal(t, cartB, sink.got[0].CartID)

	assert.Equal(t, 1, r.tick(ctx))
	require.Len(t, sink.got, 2)
	assert.Equal(t, cartA, sink.got[1].CartID)

	assert.Equal(t, 0, r.tick(ctx))
}

func TestRunner_UnknownKindStaysPending(t *testing.T) {
	repo := &memRepo{}
	require.NoError(t, repo.Enqueue(context.Background(), outbox.Message{IdempotencyKey: "k", Kind: 99, Data: []byte(`{}`)}))

	sink := &flakyPublisher{}
	r := NewOutboxRunner(zaptest.NewLogger(t), repo, MakeGlobalOutboxHandler(sink), Config{})
	assert.Equal(t, 0, r.tick(context.Background()))
	assert.Empty(t, sink.got)
	assert.Equal(t, outbox.StatusInProgress, repo.msgs[0].Status)
}

func TestRunner_RunStopsWithContext(t *testing.T) {
	repo := &memRepo{}
	sink := &flakyPublisher{}
	require.NoError(t, NewPublisher(repo).Publish(context.Background(), event.Identity{Kind: event.KindSignedUp, CartID: uuid.New()}))

	ctx, cancel := context.WithCancel(context.Background())
	r := NewOutboxRunner(zaptest.NewLogger(t), repo, MakeGlobalOutboxHandler(sink), Config{Workers: 1, WaitTime: 5 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.got) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}
