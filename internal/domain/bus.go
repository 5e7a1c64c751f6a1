package domain

import (
	"context"
)

// EventBus carries session lifecycle events to interested consumers.
// Supports Go channels (single process) or NATS (external consumers).
// Events are observability, not correctness: the pipeline never blocks
// on the bus and a lost event does not affect a run's outcome.
type EventBus interface {
	// Publish sends a message scoped to a session.
	Publish(ctx context.Context, sessionID string, topic string, payload []byte) error

	// Subscribe registers a handler for a session's topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, sessionID string, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	SessionID string            `json:"sessionId"`
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

// Standard topic names for the triage pipeline.
const (
	TopicSessionCreated = "kestrel.session.created"
	TopicSessionDeleted = "kestrel.session.deleted"
	TopicRunStarted     = "kestrel.run.started"
	TopicRunCompleted   = "kestrel.run.completed"
	TopicRunFailed      = "kestrel.run.failed"
)
