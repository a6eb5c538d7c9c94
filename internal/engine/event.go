package engine

import (
	"sync"
	"time"
)

// EventType represents the type of interaction event
type EventType string

const (
	// EventRoundStarted is emitted before the forward pass of a round
	EventRoundStarted EventType = "round_started"

	// EventRoundCompleted is emitted once a round's guidance is rendered
	EventRoundCompleted EventType = "round_completed"

	// EventEpisodeStopped is emitted when the stopping policy ends an episode
	EventEpisodeStopped EventType = "episode_stopped"
)

// Event represents one notification of an interaction episode
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Time      time.Time      `json:"time"`
	EpisodeID string         `json:"episode_id"`
	SampleID  string         `json:"sample_id"`
	Iteration int            `json:"iteration"`
	Loss      float64        `json:"loss,omitempty"`
	Metric    float64        `json:"metric,omitempty"`
	Clicks    map[string]int `json:"clicks,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// Observer receives episode events
type Observer interface {
	Observe(event *Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(event *Event)

// Observe calls f
func (f ObserverFunc) Observe(event *Event) {
	f(event)
}

// EventLog is an Observer that keeps every event in arrival order
type EventLog struct {
	events []*Event
	mu     sync.RWMutex
}

// NewEventLog creates an empty event log
func NewEventLog() *EventLog {
	return &EventLog{events: make([]*Event, 0)}
}

// Observe appends an event (thread-safe)
func (l *EventLog) Observe(event *Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

// Events returns a copy of the logged events (thread-safe)
func (l *EventLog) Events() []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*Event(nil), l.events...)
}

// OfType returns the logged events of one type
func (l *EventLog) OfType(eventType EventType) []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Event
	for _, ev := range l.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
