package definitions

import (
	"context"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/engine"
)

// SendRenewalReminder is the cadence-driven reminder for renewal parties
// approaching lease end. The eligibility sweep owns the cadence math
// (moveout notice period plus the fixed day marks); the rule itself only
// re-validates suppression, since an open renewal quote or reminder means
// the conversation is already happening.
type SendRenewalReminder struct {
	deps Deps
}

// NewSendRenewalReminder builds the SEND_RENEWAL_REMINDER definition.
func NewSendRenewalReminder(deps Deps) *SendRenewalReminder {
	return &SendRenewalReminder{deps: deps}
}

func (d *SendRenewalReminder) Name() domain.TaskName           { return domain.TaskSendRenewalReminder }
func (d *SendRenewalReminder) Category() domain.TaskCategory   { return domain.CategoryInactive }
func (d *SendRenewalReminder) SweepFamily() engine.SweepFamily { return engine.SweepRenewalReminder }

func (d *SendRenewalReminder) Capability() engine.Capability {
	return engine.Capability{
		Workflows: map[domain.WorkflowName]bool{domain.WorkflowRenewal: true},
	}
}

func (d *SendRenewalReminder) CreateTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if !d.Capability().AllowsCreate(snap.Party) {
		return nil, nil
	}
	if len(snap.ActiveTasksByName(d.Name())) > 0 || len(snap.ActiveTasksByName(domain.TaskSendRenewalQuote)) > 0 {
		return nil, nil
	}

	task, err := domain.NewTask(d.Name(), d.Category(), snap.Party.ID, ownerAssignees(snap), d.deps.dueDate(d.Name()))
	if err != nil {
		return nil, err
	}
	return []domain.Task{task}, nil
}

func (d *SendRenewalReminder) CompleteTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	evt, ok := snap.FindEvent(domain.EventQuoteSent)
	if !ok {
		return nil, nil
	}
	return completeAllActive(snap, d.Name(), completedByFrom(evt), d.deps.Now()), nil
}

func (d *SendRenewalReminder) CancelTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if partyClosedOrArchived(snap) {
		return cancelAllActive(snap, d.Name()), nil
	}
	return nil, nil
}
