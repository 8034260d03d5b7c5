package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic         = "orders-placed"
	EventTypeOrderPlaced = "OrderPlaced"
)

// OrderPlacedEvent is what operations staff consume to follow up on a new order.
type OrderPlacedEvent struct {
	OrderID     string             `json:"order_id"`
	ProfileID   string             `json:"profile_id"`
	Items       []domain.OrderLine `json:"items"`
	ItemCount   int                `json:"item_count"`
	TotalAmount float64            `json:"total_amount"`
	Customer    domain.Customer    `json:"customer"`
	Notes       string             `json:"notes,omitempty"`
	PlacedAt    time.Time          `json:"placed_at"`
}

func NewOrderPlacedEvent(orderID, profileID string, draft domain.OrderDraft, at time.Time) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:     orderID,
		ProfileID:   profileID,
		Items:       draft.Lines(),
		ItemCount:   draft.ItemCount(),
		TotalAmount: draft.TotalAmount(),
		Customer:    draft.Customer(),
		Notes:       draft.Notes(),
		PlacedAt:    at.UTC(),
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
		RequiredAcks:           kafka.RequireOne,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, event OrderPlacedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order placed event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID), // one partition per order
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeOrderPlaced)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order %s: %w", event.OrderID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, OrderPlacedEvent) error { return nil }
func (NopPublisher) Close() error                                             { return nil }
