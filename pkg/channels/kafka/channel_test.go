package kafka

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/formation/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaTc "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func TestBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, Brokers())
}

func TestCreateChannel_NoBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	_, _, err := CreateChannel(watermill.NopLogger{}, "api")
	require.ErrorIs(t, err, ErrNoBrokers)
}

func TestPartitionKey(t *testing.T) {
	msg := message.NewMessage("1", []byte("{}"))
	msg.Metadata.Set(events.EventMetadataKey, "inst-42")

	key, err := partitionKey(events.Topic, msg)
	require.NoError(t, err)
	assert.Equal(t, "inst-42", key)
}

func TestCreateChannel_PublishAndConsume(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Kafka integration test in short mode")
	}

	ctx := context.Background()

	container, err := kafkaTc.Run(ctx, "confluentinc/confluent-local:7.7.0", testcontainers.WithEnv(map[string]string{
		"KAFKA_CREATE_TOPICS": "true",
	}))
	require.NoError(t, err)

	defer func() {
		_ = container.Terminate(ctx)
	}()

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	logger := watermill.NewSlogLogger(slog.Default())

	pub, sub, err := CreateChannelWithBrokers(logger, "test", brokers)
	require.NoError(t, err)

	defer func() {
		_ = pub.Close()
		_ = sub.Close()
	}()

	subCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	messages, err := sub.Subscribe(subCtx, events.Topic)
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewULID(), []byte(`{"instance_id":"inst-1"}`))
	msg.Metadata.Set(events.EventMetadataKey, "inst-1")
	msg.Metadata.Set(events.EventTypeMetadataKey, string(events.StepCompletedEvent))
	require.NoError(t, pub.Publish(events.Topic, msg))

	select {
	case received := <-messages:
		assert.Equal(t, string(events.StepCompletedEvent), received.Metadata.Get(events.EventTypeMetadataKey))
		assert.JSONEq(t, `{"instance_id":"inst-1"}`, string(received.Payload))
		received.Ack()
	case <-subCtx.Done():
		t.Fatal("message was not consumed")
	}
}
