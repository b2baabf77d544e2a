package session

import (
	"sync"
	"time"

	"resumelift/internal/models"
)

// EventType classifies messages emitted by a session.
type EventType string

const (
	EventTypeState      EventType = "state"
	EventTypeResult     EventType = "result"
	EventTypeError      EventType = "error"
	EventTypeConnection EventType = "connection"
)

// Event is a sequenced payload consumed by pollers of the local API.
type Event struct {
	Seq        int64            `json:"seq"`
	Timestamp  time.Time        `json:"timestamp"`
	AttemptID  string           `json:"attemptId,omitempty"`
	Type       EventType        `json:"type"`
	Phase      models.Phase     `json:"phase,omitempty"`
	Kind       models.ErrorKind `json:"kind,omitempty"`
	StatusCode int              `json:"statusCode,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// EventBus stores recent events and provides incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 200
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// LastSeq is the sequence number of the newest event, 0 when none.
func (b *EventBus) LastSeq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}
