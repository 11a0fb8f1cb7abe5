package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskName is the stable identifier of a task type.
type TaskName string

const (
	TaskSendContract                 TaskName = "SEND_CONTRACT"
	TaskCountersignLease             TaskName = "COUNTERSIGN_LEASE"
	TaskNotifyConditionalApproval    TaskName = "NOTIFY_CONDITIONAL_APPROVAL"
	TaskHoldInventory                TaskName = "HOLD_INVENTORY"
	TaskReviewApplication            TaskName = "REVIEW_APPLICATION"
	TaskIntroduceYourself            TaskName = "INTRODUCE_YOURSELF"
	TaskCompleteContactInfo          TaskName = "COMPLETE_CONTACT_INFO"
	TaskContactPartyDeclinedDecision TaskName = "CONTACT_PARTY_DECLINED_DECISION"
	TaskFollowupParty                TaskName = "FOLLOWUP_PARTY"
	TaskSendRenewalReminder          TaskName = "SEND_RENEWAL_REMINDER"
	// TaskSendRenewalQuote is created by the renewal module, outside this
	// engine. Its presence suppresses renewal reminders.
	TaskSendRenewalQuote TaskName = "SEND_RENEWAL_QUOTE"
)

// TaskCategory groups tasks for bulk operations and display.
type TaskCategory string

const (
	CategoryParty               TaskCategory = "PARTY"
	CategoryInactive            TaskCategory = "INACTIVE"
	CategoryContractSigning     TaskCategory = "CONTRACT_SIGNING"
	CategoryApplicationApproval TaskCategory = "APPLICATION_APPROVAL"
	CategoryRequireWork         TaskCategory = "REQUIRE_WORK"
	CategoryManual              TaskCategory = "MANUAL"
)

// IsKnownTaskCategory reports whether the category is one of the engine's
// grouping tags.
func IsKnownTaskCategory(c TaskCategory) bool {
	switch c {
	case CategoryParty, CategoryInactive, CategoryContractSigning,
		CategoryApplicationApproval, CategoryRequireWork, CategoryManual:
		return true
	}
	return false
}

// TaskState is the lifecycle state of a task. Transitions are one-directional:
// ACTIVE to COMPLETED or ACTIVE to CANCELED; terminal states are immutable.
type TaskState string

const (
	TaskStateActive    TaskState = "ACTIVE"
	TaskStateCompleted TaskState = "COMPLETED"
	TaskStateCanceled  TaskState = "CANCELED"
)

// CompletedBySystem is the sentinel recorded when the engine completes a task
// without an acting user.
const CompletedBySystem = "SYSTEM"

// TaskMetadata is the typed payload attached to a task. Leases is where
// idempotent merging happens: related lease ids accumulate on one active task
// instead of spawning duplicates.
type TaskMetadata struct {
	Leases             []uuid.UUID
	CompletedBy        string
	ApprovalConditions []string
	InventoryName      string
	HoldDepositPayer   string
	PersonID           uuid.UUID
}

// HasLease reports whether the lease id is already associated with the task.
func (m TaskMetadata) HasLease(leaseID uuid.UUID) bool {
	for _, id := range m.Leases {
		if id == leaseID {
			return true
		}
	}
	return false
}

// AuditInfo holds write-once provenance fields stamped when the task is
// first persisted. Later transitions never overwrite them.
type AuditInfo struct {
	CreatedBy          uuid.UUID
	OriginalPartyOwner uuid.UUID
	OriginalAssignees  []uuid.UUID
}

// Task is a unit of actionable work derived from party state.
type Task struct {
	ID             uuid.UUID
	Name           TaskName
	Category       TaskCategory
	PartyID        uuid.UUID
	UserIDs        []uuid.UUID
	State          TaskState
	DueDate        time.Time
	CompletionDate *time.Time
	Metadata       TaskMetadata
	Audit          AuditInfo
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewTask builds an ACTIVE task with a generated id and sanitized assignees.
// It returns an error when the party id is absent or no valid assignee
// remains after sanitization; such a task must never be persisted.
func NewTask(name TaskName, category TaskCategory, partyID uuid.UUID, assignees []uuid.UUID, dueDate time.Time) (Task, error) {
	if partyID == uuid.Nil {
		return Task{}, fmt.Errorf("task %s: party id is required", name)
	}

	sanitized := SanitizeAssignees(assignees)
	if len(sanitized) == 0 {
		return Task{}, fmt.Errorf("task %s for party %s: no valid assignees", name, partyID)
	}

	return Task{
		ID:       uuid.New(),
		Name:     name,
		Category: category,
		PartyID:  partyID,
		UserIDs:  sanitized,
		State:    TaskStateActive,
		DueDate:  dueDate,
	}, nil
}

// SanitizeAssignees removes zero-value and duplicate user ids while
// preserving order.
func SanitizeAssignees(userIDs []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	out := make([]uuid.UUID, 0, len(userIDs))
	for _, id := range userIDs {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Completed returns a copy of the task transitioned to COMPLETED at the given
// time, recording who completed it. Only ACTIVE tasks can transition.
func (t Task) Completed(completedBy string, now time.Time) (Task, error) {
	if t.State != TaskStateActive {
		return Task{}, fmt.Errorf("task %s (%s): cannot complete from state %s", t.ID, t.Name, t.State)
	}
	t.State = TaskStateCompleted
	t.CompletionDate = &now
	t.Metadata.CompletedBy = completedBy
	return t, nil
}

// Canceled returns a copy of the task transitioned to CANCELED. Only ACTIVE
// tasks can transition.
func (t Task) Canceled() (Task, error) {
	if t.State != TaskStateActive {
		return Task{}, fmt.Errorf("task %s (%s): cannot cancel from state %s", t.ID, t.Name, t.State)
	}
	t.State = TaskStateCanceled
	return t, nil
}

// WithLease returns a copy of the task with the lease id appended to its
// metadata, and whether the metadata actually changed. An already-recorded
// lease id is a no-op.
func (t Task) WithLease(leaseID uuid.UUID) (Task, bool) {
	if leaseID == uuid.Nil || t.Metadata.HasLease(leaseID) {
		return t, false
	}
	leases := make([]uuid.UUID, len(t.Metadata.Leases), len(t.Metadata.Leases)+1)
	copy(leases, t.Metadata.Leases)
	t.Metadata.Leases = append(leases, leaseID)
	return t, true
}
