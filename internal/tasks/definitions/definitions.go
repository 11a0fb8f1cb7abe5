// Package definitions contains the concrete task rules of the decision
// engine, one file per task type. Every rule implements engine.Definition;
// shared precondition helpers live in this file.
package definitions

import (
	"context"
	"time"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/engine"

	"github.com/google/uuid"
)

// Deps are the collaborators shared by all definitions.
type Deps struct {
	Roles engine.RoleResolver
	Due   engine.DuePolicy
	Now   engine.Clock
}

// All returns every task definition in registration order. The order is
// load-bearing: the dispatcher evaluates definitions in this sequence.
func All(deps Deps) []engine.Definition {
	return []engine.Definition{
		NewSendContract(deps),
		NewCountersignLease(deps),
		NewReviewApplication(deps),
		NewNotifyConditionalApproval(deps),
		NewContactPartyDeclinedDecision(deps),
		NewHoldInventory(deps),
		NewIntroduceYourself(deps),
		NewCompleteContactInfo(deps),
		NewFollowupParty(deps),
		NewSendRenewalReminder(deps),
	}
}

func (d Deps) dueDate(name domain.TaskName) time.Time {
	return d.Now().Add(d.Due.GetTaskDueOffset(string(name)))
}

// ownerAssignees returns the party's owning agent as the assignee list.
func ownerAssignees(snap *domain.Snapshot) []uuid.UUID {
	return []uuid.UUID{snap.Party.UserID}
}

// ownerAndRoleAssignees returns the owning agent followed by the users
// holding the functional role for the party's property.
func ownerAndRoleAssignees(ctx context.Context, deps Deps, snap *domain.Snapshot, role string) ([]uuid.UUID, error) {
	roleUsers, err := deps.Roles.UserIDsWithFunctionalRole(ctx, snap.Party.ID, role, snap.Party.AssignedPropertyID)
	if err != nil {
		return nil, err
	}
	return append([]uuid.UUID{snap.Party.UserID}, roleUsers...), nil
}

// partyClosedOrArchived reports whether a terminal party event is pending.
func partyClosedOrArchived(snap *domain.Snapshot) bool {
	return snap.HasEvent(domain.EventPartyClosed) || snap.HasEvent(domain.EventPartyArchived)
}

// cancelAllActive transitions every active task of the given name to
// CANCELED. Tasks already terminal are skipped.
func cancelAllActive(snap *domain.Snapshot, name domain.TaskName) []domain.Task {
	var out []domain.Task
	for _, t := range snap.ActiveTasksByName(name) {
		canceled, err := t.Canceled()
		if err != nil {
			continue
		}
		out = append(out, canceled)
	}
	return out
}

// completeAllActive transitions every active task of the given name to
// COMPLETED, recording the actor.
func completeAllActive(snap *domain.Snapshot, name domain.TaskName, completedBy string, now time.Time) []domain.Task {
	var out []domain.Task
	for _, t := range snap.ActiveTasksByName(name) {
		completed, err := t.Completed(completedBy, now)
		if err != nil {
			continue
		}
		out = append(out, completed)
	}
	return out
}

// completedByFrom resolves the completion actor from an event: the acting
// user when present, the system sentinel otherwise.
func completedByFrom(evt domain.Event) string {
	if evt.Metadata.UserID != uuid.Nil {
		return evt.Metadata.UserID.String()
	}
	return domain.CompletedBySystem
}
