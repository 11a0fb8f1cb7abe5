package definitions

import (
	"context"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/engine"
)

// NotifyConditionalApproval asks the agent to inform the party that their
// application was approved with conditions. The conditions ride along in
// the task metadata so the agent can relay them.
type NotifyConditionalApproval struct {
	deps Deps
}

// NewNotifyConditionalApproval builds the NOTIFY_CONDITIONAL_APPROVAL definition.
func NewNotifyConditionalApproval(deps Deps) *NotifyConditionalApproval {
	return &NotifyConditionalApproval{deps: deps}
}

func (d *NotifyConditionalApproval) Name() domain.TaskName {
	return domain.TaskNotifyConditionalApproval
}

func (d *NotifyConditionalApproval) Category() domain.TaskCategory {
	return domain.CategoryApplicationApproval
}

func (d *NotifyConditionalApproval) Capability() engine.Capability {
	return engine.Capability{}
}

func (d *NotifyConditionalApproval) CreateTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if !d.Capability().AllowsCreate(snap.Party) {
		return nil, nil
	}
	if len(snap.ActiveTasksByName(d.Name())) > 0 {
		return nil, nil
	}
	evt, ok := applicationStatusEvent(snap, domain.ApplicationStatusConditionalApproval)
	if !ok {
		return nil, nil
	}

	task, err := domain.NewTask(d.Name(), d.Category(), snap.Party.ID, ownerAssignees(snap), d.deps.dueDate(d.Name()))
	if err != nil {
		return nil, err
	}
	task.Metadata.ApprovalConditions = evt.Metadata.ApprovalConditions
	return []domain.Task{task}, nil
}

func (d *NotifyConditionalApproval) CompleteTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if evt, ok := snap.FindEvent(domain.EventCommunicationSent); ok {
		return completeAllActive(snap, d.Name(), completedByFrom(evt), d.deps.Now()), nil
	}
	if evt, ok := applicationStatusEvent(snap, domain.ApplicationStatusApproved, domain.ApplicationStatusDenied); ok {
		return completeAllActive(snap, d.Name(), completedByFrom(evt), d.deps.Now()), nil
	}
	return nil, nil
}

func (d *NotifyConditionalApproval) CancelTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if partyClosedOrArchived(snap) {
		return cancelAllActive(snap, d.Name()), nil
	}
	return nil, nil
}
