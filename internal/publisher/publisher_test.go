package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

type fakeWriter struct {
	msgs   []kafkaGo.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testDraft(t *testing.T) domain.OrderDraft {
	d, err := domain.NewOrderDraft(
		[]domain.CartLine{
			{ProductID: "p1", ProductName: "Shirt", UnitPrice: 1000, Quantity: 2},
			{ProductID: "p2", ProductName: "Cap", UnitPrice: 500, Quantity: 1},
		},
		domain.Customer{FullName: "Ada", Phone: "0800", Email: "ada@example.com", Address: "1 Lagos Rd"},
		"",
	)
	require.NoError(t, err)
	return d
}

func TestNewOrderPlacedEvent(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("WAT", 3600))
	ev := NewOrderPlacedEvent("o1", "prof", testDraft(t), at)

	assert.Equal(t, "o1", ev.OrderID)
	assert.Equal(t, 3, ev.ItemCount)
	assert.Equal(t, 2500.0, ev.TotalAmount)
	assert.Len(t, ev.Items, 2)
	assert.Equal(t, time.UTC, ev.PlacedAt.Location())
}

func TestKafkaPublisher_WritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	ev := NewOrderPlacedEvent("o1", "prof", testDraft(t), time.Now())
	require.NoError(t, p.PublishOrderPlaced(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "o1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, EventTypeOrderPlaced, string(msg.Headers[0].Value))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "o1", payload["order_id"])
	assert.Equal(t, 2500.0, payload["total_amount"])
	assert.NotContains(t, payload, "notes")
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := &KafkaPublisher{writer: w}

	err := p.PublishOrderPlaced(context.Background(), OrderPlacedEvent{OrderID: "o1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "o1")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestKafkaPublisher_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	brokerAddr, cleanup := setupKafka(t)
	defer cleanup()

	createTopic(t, brokerAddr, DefaultTopic)

	p := NewKafkaPublisher(DefaultTopic, brokerAddr)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ev := NewOrderPlacedEvent("order-123", "prof-1", testDraft(t), time.Now())
	require.NoError(t, p.PublishOrderPlaced(ctx, ev))

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    DefaultTopic,
		GroupID:  "test-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "order-123", string(msg.Key))

	var got OrderPlacedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "prof-1", got.ProfileID)
	assert.Equal(t, 3, got.ItemCount)
}
