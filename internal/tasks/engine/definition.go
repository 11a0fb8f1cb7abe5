// Package engine provides the task decision engine's core abstractions: the
// task definition contract, workflow capability gating, and the definition
// registry. Concrete rules live in the definitions package.
package engine

import (
	"context"
	"time"

	"leasing_crm_backend/internal/party/domain"

	"github.com/google/uuid"
)

// RoleLeasingConsultant is the functional role resolved to task assignees
// for lease approval and contract work.
const RoleLeasingConsultant = "LCA"

// Definition is the unit of business logic for one named task type. Each
// phase is invoked independently and idempotently on every dispatch cycle;
// a phase that finds no matching trigger returns an empty slice, not an
// error.
type Definition interface {
	Name() domain.TaskName
	Category() domain.TaskCategory
	Capability() Capability

	// CreateTasks inspects the snapshot's pending events for this
	// definition's trigger set and returns the new ACTIVE tasks to persist,
	// or tasks whose metadata was extended by an idempotent merge.
	CreateTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error)

	// CompleteTasks returns active tasks of this name transitioned to
	// COMPLETED. Preconditions are re-validated independently of the create
	// phase.
	CompleteTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error)

	// CancelTasks returns active tasks of this name transitioned to
	// CANCELED. For triggers shared with CompleteTasks the preconditions
	// must be complementary so the two phases never both fire.
	CancelTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error)
}

// SweepDefinition is implemented by time-based definitions whose create
// phase is driven by a periodic eligibility sweep rather than events.
type SweepDefinition interface {
	Definition

	// SweepFamily identifies the eligibility query feeding this definition.
	SweepFamily() SweepFamily
}

// SweepFamily names a time-based eligibility query.
type SweepFamily string

const (
	SweepFollowup        SweepFamily = "followup"
	SweepRenewalReminder SweepFamily = "renewal_reminder"
)

// RoleResolver looks up task assignees by functional role. Implemented by
// the users repository.
type RoleResolver interface {
	UserIDsWithFunctionalRole(ctx context.Context, partyID uuid.UUID, role string, propertyID uuid.UUID) ([]uuid.UUID, error)
	PartyOwner(ctx context.Context, partyID uuid.UUID) (uuid.UUID, error)
}

// DuePolicy computes task due dates. Satisfied by config.EngineConfig.
type DuePolicy interface {
	GetTaskDueOffset(taskName string) time.Duration
}

// Clock abstracts time for deterministic tests.
type Clock func() time.Time
