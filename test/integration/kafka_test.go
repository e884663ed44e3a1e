//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/NordCoder/bazaar/internal/domain/event"
	"github.com/NordCoder/bazaar/internal/repository/kafka"
)

func TestIdentityEvents_RoundTripThroughBroker(t *testing.T) {
	cfg := LoadCfg()
	WaitTCP(t, "kafka", cfg.KafkaBootstrap, 60*time.Second)
	log := zaptest.NewLogger(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	require.NoError(t, kafka.EnsureTopic(ctx, []string{cfg.KafkaBootstrap}, kafka.TopicSpec{Name: cfg.Topic}, log))

	producer := kafka.NewProducer([]string{cfg.KafkaBootstrap}, cfg.Topic).WithLogger(log)
	t.Cleanup(func() { _ = producer.Close() })

	pub := uuid.New()
	sent := event.Identity{
		Kind:     event.KindLoggedIn,
		PublicID: &pub,
		CartID:   uuid.New(),
		At:       time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, kafka.NewIdentityEvents(producer, log).Publish(ctx, sent))

	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{cfg.KafkaBootstrap},
		Topic:   cfg.Topic,
		GroupID: "it-" + uuid.NewString(),
	})
	t.Cleanup(func() { _ = r.Close() })

	for {
		msg, err := r.ReadMessage(ctx)
		require.NoError(t, err)
		if string(msg.Key) != sent.CartID.String() {
			continue
		}
		var got event.Identity
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, sent.Kind, got.Kind)
		assert.Equal(t, sent.PublicID, got.PublicID)
		assert.True(t, sent.At.Equal(got.At))
		return
	}
}
