// Package events publishes meeting lifecycle events for dashboards and
// other subscribers. Events fan out over a Redis channel and over the
// in-process WebSocket hub; both receive the same payloads.
package events

import (
	"time"
)

// Event types emitted during a meeting.
const (
	TypeTranscript = "transcript"
	TypeFactCheck  = "fact_check"
	TypeIntent     = "intent"
	TypeSummary    = "summary"
	TypeStatus     = "status"
)

// Event is a single meeting lifecycle notification.
type Event struct {
	Type          string      `json:"type"`
	BotID         string      `json:"bot_id,omitempty"`
	Data          interface{} `json:"data"`
	Timestamp     time.Time   `json:"timestamp"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// New builds an event stamped with the current time.
func New(eventType, botID string, data interface{}) Event {
	return Event{
		Type:      eventType,
		BotID:     botID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher delivers events to subscribers. Implementations must be safe
// for concurrent use.
type Publisher interface {
	Publish(event Event)
	Close() error
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
func (NopPublisher) Close() error  { return nil }

var _ Publisher = NopPublisher{}

// Multi fans events out to several publishers.
type Multi []Publisher

func (m Multi) Publish(event Event) {
	for _, p := range m {
		p.Publish(event)
	}
}

func (m Multi) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Publisher = Multi{}
