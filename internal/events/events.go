// Package events provides an event system for worker pool lifecycle notifications.
package events

import (
	"fmt"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// EventWorkerStarted is emitted when a worker goroutine enters its dispatch loop
	EventWorkerStarted EventType = "worker_started"
	// EventWorkerStopped is emitted when a worker leaves its dispatch loop
	EventWorkerStopped EventType = "worker_stopped"
	// EventJobPanicked is emitted when a job panics and the worker recovers it
	EventJobPanicked EventType = "job_panicked"
	// EventReceiverPoisoned is emitted when a worker finds the shared receiver unusable
	EventReceiverPoisoned EventType = "receiver_poisoned"
	// EventPoolClosed is emitted once every worker of a pool has been joined
	EventPoolClosed EventType = "pool_closed"
)

// Event represents a pool lifecycle event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Worker    string    `json:"worker,omitempty"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Panic   string `json:"panic,omitempty"`
	Error   string `json:"error,omitempty"`
	Workers int    `json:"workers,omitempty"`
}

// NewWorkerStartedEvent creates a worker started event
func NewWorkerStartedEvent(worker string) Event {
	return Event{
		Type:      EventWorkerStarted,
		Timestamp: time.Now(),
		Worker:    worker,
	}
}

// NewWorkerStoppedEvent creates a worker stopped event.
// err is the reason the loop ended abnormally, nil on a normal shutdown.
func NewWorkerStoppedEvent(worker string, err error) Event {
	return Event{
		Type:      EventWorkerStopped,
		Timestamp: time.Now(),
		Worker:    worker,
		Data: EventData{
			Error: errString(err),
		},
	}
}

// NewJobPanickedEvent creates a job panicked event
func NewJobPanickedEvent(worker string, v any) Event {
	return Event{
		Type:      EventJobPanicked,
		Timestamp: time.Now(),
		Worker:    worker,
		Data: EventData{
			Panic: fmt.Sprint(v),
		},
	}
}

// NewReceiverPoisonedEvent creates a receiver poisoned event
func NewReceiverPoisonedEvent(worker string, err error) Event {
	return Event{
		Type:      EventReceiverPoisoned,
		Timestamp: time.Now(),
		Worker:    worker,
		Data: EventData{
			Error: errString(err),
		},
	}
}

// NewPoolClosedEvent creates a pool closed event
func NewPoolClosedEvent(workers int, err error) Event {
	return Event{
		Type:      EventPoolClosed,
		Timestamp: time.Now(),
		Data: EventData{
			Workers: workers,
			Error:   errString(err),
		},
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
