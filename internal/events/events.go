// Package events publishes disruption activity to interested subscribers.
package events

import (
	"time"

	"github.com/google/uuid"

	"chaos-disruptor/pkg/disruptor"
)

// EventType represents the type of event
type EventType string

const (
	// EventTriggered is emitted when a config's trigger fires
	EventTriggered EventType = "triggered"
	// EventDisruptionApplied is emitted when a disruption ran without failing
	EventDisruptionApplied EventType = "disruption_applied"
	// EventDisruptionFailed is emitted when a disruption failed the operation
	EventDisruptionFailed EventType = "disruption_failed"
)

// Event represents a single disruption notification
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Group     string    `json:"group"`
	Phase     string    `json:"phase"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Kind    string `json:"kind,omitempty"`
	Elapsed string `json:"elapsed,omitempty"`
	Error   string `json:"error,omitempty"`
}

func newEvent(typ EventType, group string, phase disruptor.Phase) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: time.Now(),
		Group:     group,
		Phase:     phase.String(),
	}
}

// NewTriggeredEvent creates a trigger event
func NewTriggeredEvent(group string, phase disruptor.Phase) Event {
	return newEvent(EventTriggered, group, phase)
}

// NewDisruptionEvent creates an applied or failed event depending on err
func NewDisruptionEvent(group string, phase disruptor.Phase, kind string, elapsed time.Duration, err error) Event {
	typ := EventDisruptionApplied
	if err != nil {
		typ = EventDisruptionFailed
	}
	e := newEvent(typ, group, phase)
	e.Data = EventData{
		Kind:    kind,
		Elapsed: elapsed.String(),
	}
	if err != nil {
		e.Data.Error = err.Error()
	}
	return e
}

// observer forwards engine notifications to a Bus
type observer struct {
	disruptor.NopObserver
	bus *Bus
}

// Observer returns a disruptor.Observer that publishes to bus
func Observer(bus *Bus) disruptor.Observer {
	return &observer{bus: bus}
}

func (o *observer) Triggered(dc disruptor.Context, phase disruptor.Phase) {
	o.bus.Publish(NewTriggeredEvent(dc.Group(), phase))
}

func (o *observer) DisruptionApplied(dc disruptor.Context, phase disruptor.Phase, d disruptor.Disruption, elapsed time.Duration, err error) {
	o.bus.Publish(NewDisruptionEvent(dc.Group(), phase, d.Kind(), elapsed, err))
}
