// Package domain provides core business entities for the party bounded context.
// A party is a leasing transaction: it owns tasks, leases, and promotions, and
// receives domain events as the transaction evolves.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowName classifies the process type of a party.
type WorkflowName string

const (
	WorkflowNewLease    WorkflowName = "NEW_LEASE"
	WorkflowRenewal     WorkflowName = "RENEWAL"
	WorkflowActiveLease WorkflowName = "ACTIVE_LEASE"
)

var knownWorkflowNames = map[WorkflowName]struct{}{
	WorkflowNewLease:    {},
	WorkflowRenewal:     {},
	WorkflowActiveLease: {},
}

// IsKnownWorkflowName reports whether the workflow name is one of the
// recognized process types.
func IsKnownWorkflowName(name WorkflowName) bool {
	_, ok := knownWorkflowNames[name]
	return ok
}

// WorkflowState is the lifecycle phase of a party's workflow.
type WorkflowState string

const (
	WorkflowStateActive   WorkflowState = "ACTIVE"
	WorkflowStateArchived WorkflowState = "ARCHIVED"
)

// LeaseType distinguishes traditional from corporate leasing parties.
type LeaseType string

const (
	LeaseTypeTraditional LeaseType = "TRADITIONAL"
	LeaseTypeCorporate   LeaseType = "CORPORATE"
)

// Party is the persisted leasing transaction record.
type Party struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	WorkflowName       WorkflowName
	WorkflowState      WorkflowState
	LeaseType          LeaseType
	UserID             uuid.UUID // owning agent
	AssignedPropertyID uuid.UUID
	CreatedAt          time.Time
}

// IsCorporate reports whether the party is a corporate leasing transaction.
func (p Party) IsCorporate() bool {
	return p.LeaseType == LeaseTypeCorporate
}

// IsArchived reports whether the party's workflow has been archived.
func (p Party) IsArchived() bool {
	return p.WorkflowState == WorkflowStateArchived
}

// Snapshot is the immutable-per-evaluation view of a party handed to task
// definitions: the party record plus its pending events, current tasks,
// leases, and promotions. Definitions read it, never mutate it.
type Snapshot struct {
	Party      Party
	Events     []Event
	Tasks      []Task
	Leases     []Lease
	Promotions []Promotion
}

// FindEvent returns the first pending event of the given type.
func (s *Snapshot) FindEvent(eventType EventType) (Event, bool) {
	for _, evt := range s.Events {
		if evt.Type == eventType {
			return evt, true
		}
	}
	return Event{}, false
}

// FindEvents returns all pending events of the given type, in arrival order.
func (s *Snapshot) FindEvents(eventType EventType) []Event {
	var out []Event
	for _, evt := range s.Events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// HasEvent reports whether any pending event of the given type exists.
func (s *Snapshot) HasEvent(eventType EventType) bool {
	_, ok := s.FindEvent(eventType)
	return ok
}

// ActiveTasksByName returns the party's ACTIVE tasks with the given name.
func (s *Snapshot) ActiveTasksByName(name TaskName) []Task {
	var out []Task
	for _, t := range s.Tasks {
		if t.Name == name && t.State == TaskStateActive {
			out = append(out, t)
		}
	}
	return out
}

// FindLease returns the lease with the given id from the snapshot.
func (s *Snapshot) FindLease(leaseID uuid.UUID) (Lease, bool) {
	for _, l := range s.Leases {
		if l.ID == leaseID {
			return l, true
		}
	}
	return Lease{}, false
}

// FindPromotion returns the quote promotion with the given id.
func (s *Snapshot) FindPromotion(promotionID uuid.UUID) (Promotion, bool) {
	for _, p := range s.Promotions {
		if p.ID == promotionID {
			return p, true
		}
	}
	return Promotion{}, false
}
