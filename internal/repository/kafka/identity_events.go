package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/NordCoder/bazaar/internal/domain/event"
	"github.com/NordCoder/bazaar/internal/obs/retry"
)

var _ event.Publisher = (*IdentityEvents)(nil)

// IdentityEvents publishes auth transitions keyed by cart id, so every event
// touching one cart lands on the same partition.
type IdentityEvents struct {
	p      *Producer
	policy retry.Policy
}

func NewIdentityEvents(p *Producer, log *zap.Logger) *IdentityEvents {
	return &IdentityEvents{p: p, policy: retry.EventsPolicy(log)}
}

func (e *IdentityEvents) Publish(ctx context.Context, ev event.Identity) error {
	key := []byte(ev.CartID.String())
	return retry.Do(ctx, func(ctx context.Context) error {
		return e.p.PublishJSON(ctx, key, ev)
	}, e.policy)
}
