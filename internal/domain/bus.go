package domain

import (
	"context"
)

// EventBus defines the interface for event-driven side effects.
// Supports Go channels or NATS. Topics are scoped by module.
type EventBus interface {
	// Publish sends a message to a topic. Delivery is fire-and-forget
	// from the publisher's perspective.
	Publish(ctx context.Context, module Module, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	Subscribe(ctx context.Context, module Module, topic string, handler MessageHandler) (Subscription, error)

	// Request sends a message and waits for a response.
	Request(ctx context.Context, module Module, topic string, payload []byte) ([]byte, error)

	Ping(ctx context.Context) error
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Module    Module            `json:"module"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings
	ChannelBufferSize int

	// NATS settings
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Standard topic names for dispatched side effects. The bus
// implementations scope them per module.
const (
	TopicEmailSend          = "email.send"
	TopicNotificationCreate = "notification.create"
	TopicTargetEvaluated    = "target.evaluated"
	TopicEscalation         = "escalation"
)
