package definitions

import (
	"context"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/engine"
)

// ContactPartyDeclinedDecision asks the agent to reach out after a denied
// application, before the party is closed out.
type ContactPartyDeclinedDecision struct {
	deps Deps
}

// NewContactPartyDeclinedDecision builds the CONTACT_PARTY_DECLINED_DECISION definition.
func NewContactPartyDeclinedDecision(deps Deps) *ContactPartyDeclinedDecision {
	return &ContactPartyDeclinedDecision{deps: deps}
}

func (d *ContactPartyDeclinedDecision) Name() domain.TaskName {
	return domain.TaskContactPartyDeclinedDecision
}

func (d *ContactPartyDeclinedDecision) Category() domain.TaskCategory {
	return domain.CategoryApplicationApproval
}

func (d *ContactPartyDeclinedDecision) Capability() engine.Capability {
	return engine.Capability{}
}

func (d *ContactPartyDeclinedDecision) CreateTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if !d.Capability().AllowsCreate(snap.Party) {
		return nil, nil
	}
	if len(snap.ActiveTasksByName(d.Name())) > 0 {
		return nil, nil
	}
	if !hasApplicationStatus(snap, domain.ApplicationStatusDenied) {
		return nil, nil
	}

	task, err := domain.NewTask(d.Name(), d.Category(), snap.Party.ID, ownerAssignees(snap), d.deps.dueDate(d.Name()))
	if err != nil {
		return nil, err
	}
	return []domain.Task{task}, nil
}

func (d *ContactPartyDeclinedDecision) CompleteTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	evt, ok := snap.FindEvent(domain.EventCommunicationSent)
	if !ok {
		return nil, nil
	}
	return completeAllActive(snap, d.Name(), completedByFrom(evt), d.deps.Now()), nil
}

func (d *ContactPartyDeclinedDecision) CancelTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if partyClosedOrArchived(snap) {
		return cancelAllActive(snap, d.Name()), nil
	}
	return nil, nil
}
