// Package events publishes domain events for users and media to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const deliveryTimeout = 5 * time.Second

const (
	UserRegistered = "user_registered"
	UserLoggedIn   = "user_logged_in"
	UserLoggedOut  = "user_logged_out"
	MediaUpserted  = "media_upserted"
	MediaDeleted   = "media_deleted"
)

// Event is the envelope written as the message value.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     uint      `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

func NewEvent(typ string, userID uint, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter

	// OnFailure is called once per message the broker never acknowledged.
	OnFailure func(eventType string)
}

// NewProducer writes to brokers with topics chosen per message. Writes are
// async: PublishEvent only enqueues, and delivery errors surface through
// OnFailure.
func NewProducer(brokers []string) *Producer {
	p := &Producer{}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           deliveryTimeout,
		Async:                  true,
		Completion:             p.completed,
	}
	return p
}

func (p *Producer) completed(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, msg := range msgs {
		eventType := header(msg, "event_type")
		slog.Default().Warn("event_delivery_failed",
			"topic", msg.Topic,
			"event_type", eventType,
			"event_id", header(msg, "event_id"),
			"error", err.Error(),
		)
		if p.OnFailure != nil {
			p.OnFailure(eventType)
		}
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (p *Producer) PublishEvent(ctx context.Context, topic, key string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: delivery failed: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) PublishEvent(context.Context, string, string, Event) error { return nil }

func (Nop) Close() error { return nil }

// Topics derives the topic names from a prefix.
type Topics struct {
	Users string
	Media string
}

func NewTopics(prefix string) Topics {
	if prefix == "" {
		return Topics{Users: "user_events", Media: "media_events"}
	}
	return Topics{Users: prefix + ".user_events", Media: prefix + ".media_events"}
}
