package definitions

import (
	"context"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/engine"
)

// IntroduceYourself nudges the owning agent to greet a brand-new prospect.
// Only new-lease parties get one; it completes on the agent's first
// outbound message.
type IntroduceYourself struct {
	deps Deps
}

// NewIntroduceYourself builds the INTRODUCE_YOURSELF definition.
func NewIntroduceYourself(deps Deps) *IntroduceYourself {
	return &IntroduceYourself{deps: deps}
}

func (d *IntroduceYourself) Name() domain.TaskName         { return domain.TaskIntroduceYourself }
func (d *IntroduceYourself) Category() domain.TaskCategory { return domain.CategoryParty }

func (d *IntroduceYourself) Capability() engine.Capability {
	return engine.Capability{
		Workflows: map[domain.WorkflowName]bool{domain.WorkflowNewLease: true},
	}
}

func (d *IntroduceYourself) CreateTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if !d.Capability().AllowsCreate(snap.Party) {
		return nil, nil
	}
	if len(snap.ActiveTasksByName(d.Name())) > 0 {
		return nil, nil
	}
	if !snap.HasEvent(domain.EventPartyCreated) {
		return nil, nil
	}

	task, err := domain.NewTask(d.Name(), d.Category(), snap.Party.ID, ownerAssignees(snap), d.deps.dueDate(d.Name()))
	if err != nil {
		return nil, err
	}
	return []domain.Task{task}, nil
}

func (d *IntroduceYourself) CompleteTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	for _, evt := range snap.FindEvents(domain.EventCommunicationSent) {
		if evt.Metadata.UserID != snap.Party.UserID {
			continue
		}
		return completeAllActive(snap, d.Name(), completedByFrom(evt), d.deps.Now()), nil
	}
	return nil, nil
}

func (d *IntroduceYourself) CancelTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if partyClosedOrArchived(snap) {
		return cancelAllActive(snap, d.Name()), nil
	}
	return nil, nil
}
