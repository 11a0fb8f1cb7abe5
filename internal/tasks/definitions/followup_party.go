package definitions

import (
	"context"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/engine"
)

// FollowupParty is the time-based "this prospect went quiet" task. Its
// create phase runs from the periodic eligibility sweep, never from event
// dispatch; completion and cancellation remain event-driven.
type FollowupParty struct {
	deps Deps
}

// NewFollowupParty builds the FOLLOWUP_PARTY definition.
func NewFollowupParty(deps Deps) *FollowupParty {
	return &FollowupParty{deps: deps}
}

func (d *FollowupParty) Name() domain.TaskName           { return domain.TaskFollowupParty }
func (d *FollowupParty) Category() domain.TaskCategory   { return domain.CategoryInactive }
func (d *FollowupParty) SweepFamily() engine.SweepFamily { return engine.SweepFollowup }

func (d *FollowupParty) Capability() engine.Capability {
	return engine.Capability{
		Workflows: map[domain.WorkflowName]bool{domain.WorkflowNewLease: true},
	}
}

// CreateTasks re-validates what the eligibility query promised: the party
// is still an active new-lease prospect and has no open work at all.
func (d *FollowupParty) CreateTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if !d.Capability().AllowsCreate(snap.Party) {
		return nil, nil
	}
	for _, t := range snap.Tasks {
		if t.State == domain.TaskStateActive {
			return nil, nil
		}
	}

	task, err := domain.NewTask(d.Name(), d.Category(), snap.Party.ID, ownerAssignees(snap), d.deps.dueDate(d.Name()))
	if err != nil {
		return nil, err
	}
	return []domain.Task{task}, nil
}

func (d *FollowupParty) CompleteTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	for _, eventType := range []domain.EventType{
		domain.EventCommunicationSent,
		domain.EventCommunicationReceived,
		domain.EventAppointmentCompleted,
	} {
		if evt, ok := snap.FindEvent(eventType); ok {
			return completeAllActive(snap, d.Name(), completedByFrom(evt), d.deps.Now()), nil
		}
	}
	return nil, nil
}

func (d *FollowupParty) CancelTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if partyClosedOrArchived(snap) {
		return cancelAllActive(snap, d.Name()), nil
	}
	return nil, nil
}
