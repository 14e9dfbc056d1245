// Package events publishes storefront order events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/beautivra/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	DefaultTopic        = "storefront-orders"
	EventOrderConfirmed = "order.confirmed"
)

// OrderConfirmed is emitted once the confirmation page sees a paid session.
type OrderConfirmed struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	SessionID   string          `json:"session_id"`
	Total       decimal.Decimal `json:"total"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

// NewOrderConfirmed builds the event for a paid session. order may be nil
// when the backend could not return it.
func NewOrderConfirmed(sessionID, orderID string, order *domain.Order, at time.Time) OrderConfirmed {
	ev := OrderConfirmed{
		OrderID:     orderID,
		SessionID:   sessionID,
		ConfirmedAt: at.UTC(),
	}
	if order != nil {
		ev.OrderNumber = order.OrderNumber
		ev.Total = order.Total
		if ev.OrderID == "" {
			ev.OrderID = order.ID
		}
	}
	return ev
}

type Publisher interface {
	PublishOrderConfirmed(ctx context.Context, ev OrderConfirmed) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
		// one event per confirmation request; don't wait to fill a batch
		BatchTimeout: 5 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishOrderConfirmed(ctx context.Context, ev OrderConfirmed) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", EventOrderConfirmed, err)
	}

	key := ev.OrderID
	if key == "" {
		key = ev.SessionID
	}
	msg := kafka.Message{
		Key:   []byte(key), // order id keeps one order's events on a partition
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderConfirmed)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", EventOrderConfirmed, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops every event. It is used when no brokers are configured.
type Nop struct{}

func (Nop) PublishOrderConfirmed(context.Context, OrderConfirmed) error { return nil }
func (Nop) Close() error { return nil }
