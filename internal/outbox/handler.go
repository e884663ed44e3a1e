package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/NordCoder/bazaar/internal/domain/event"
	"github.com/NordCoder/bazaar/internal/domain/outbox"
)

var (
	outboxHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bazaar_outbox_handler_latency_seconds",
		Help:    "Latency of outbox handlers.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outboxHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazaar_outbox_handler_errors_total",
		Help: "Outbox handler failures. The message is picked again after the in-progress TTL.",
	}, []string{"kind"})
)

func instrument(kind string, h outbox.KindHandler) outbox.KindHandler {
	tr := otel.Tracer("outbox.handler")
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle."+kind)
		defer span.End()

		start := time.Now()
		err := h(ctx, data)
		outboxHandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			outboxHandlerErrors.WithLabelValues(kind).Inc()
		}
		return err
	}
}

// MakeGlobalOutboxHandler routes stored messages to their downstream
// publisher.
func MakeGlobalOutboxHandler(pub event.Publisher) outbox.GlobalHandler {
	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindIdentityEvent:
			return instrument("identity_event", func(ctx context.Context, data []byte) error {
				var ev event.Identity
				if err := json.Unmarshal(data, &ev); err != nil {
					return fmt.Errorf("unmarshal identity event: %w", err)
				}
				return pub.Publish(ctx, ev)
			}), nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}
