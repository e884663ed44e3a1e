package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/NordCoder/bazaar/internal/domain/event"
	"github.com/NordCoder/bazaar/internal/domain/outbox"
)

var _ event.Publisher = (*Publisher)(nil)

// Publisher stores identity events in the outbox instead of sending them.
// The runner delivers them later with the trace context captured here.
type Publisher struct {
	repo  outbox.Repository
	newID func() string
}

func NewPublisher(repo outbox.Repository) *Publisher {
	return &Publisher{repo: repo, newID: uuid.NewString}
}

func (p *Publisher) Publish(ctx context.Context, ev event.Identity) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal identity event: %w", err)
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	return p.repo.Enqueue(ctx, outbox.Message{
		IdempotencyKey: p.newID(),
		Kind:           outbox.KindIdentityEvent,
		Data:           data,
		Status:         outbox.StatusCreated,
		Traceparent:    carrier.Get("traceparent"),
		Tracestate:     carrier.Get("tracestate"),
		Baggage:        carrier.Get("baggage"),
	})
}
