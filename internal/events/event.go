// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Task Domain Events
// =============================================================================

// TaskCreated is published after a new task is persisted.
type TaskCreated struct {
	BaseEvent
	TaskID   uuid.UUID       `json:"taskId"`
	TaskName domain.TaskName `json:"taskName"`
	PartyID  uuid.UUID       `json:"partyId"`
	UserIDs  []uuid.UUID     `json:"userIds"`
	DueDate  string          `json:"dueDate"`
}

func (e TaskCreated) EventName() string { return "tasks.task.created" }

// TaskUpdated is published after a task transitions state or its metadata
// is extended by a merge.
type TaskUpdated struct {
	BaseEvent
	TaskID   uuid.UUID        `json:"taskId"`
	TaskName domain.TaskName  `json:"taskName"`
	PartyID  uuid.UUID        `json:"partyId"`
	State    domain.TaskState `json:"state"`
}

func (e TaskUpdated) EventName() string { return "tasks.task.updated" }

// =============================================================================
// Party Domain Events
// =============================================================================

// PartyEventsReceived is published when a batch of party events is ingested
// through the decision API, before dispatch runs.
type PartyEventsReceived struct {
	BaseEvent
	PartyID    uuid.UUID          `json:"partyId"`
	EventTypes []domain.EventType `json:"eventTypes"`
}

func (e PartyEventsReceived) EventName() string { return "party.events.received" }
