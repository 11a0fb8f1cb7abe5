package definitions

import (
	"context"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/engine"

	"github.com/google/uuid"
)

// CompleteContactInfo tracks a party member whose contact details are
// missing. The engine auto-completes it once the details arrive, stamping
// the system sentinel when no user drove the change.
type CompleteContactInfo struct {
	deps Deps
}

// NewCompleteContactInfo builds the COMPLETE_CONTACT_INFO definition.
func NewCompleteContactInfo(deps Deps) *CompleteContactInfo {
	return &CompleteContactInfo{deps: deps}
}

func (d *CompleteContactInfo) Name() domain.TaskName         { return domain.TaskCompleteContactInfo }
func (d *CompleteContactInfo) Category() domain.TaskCategory { return domain.CategoryRequireWork }

func (d *CompleteContactInfo) Capability() engine.Capability {
	return engine.Capability{}
}

func (d *CompleteContactInfo) CreateTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if !d.Capability().AllowsCreate(snap.Party) {
		return nil, nil
	}
	if len(snap.ActiveTasksByName(d.Name())) > 0 {
		return nil, nil
	}

	personID := d.personMissingContactInfo(snap)
	if personID == uuid.Nil {
		return nil, nil
	}

	task, err := domain.NewTask(d.Name(), d.Category(), snap.Party.ID, ownerAssignees(snap), d.deps.dueDate(d.Name()))
	if err != nil {
		return nil, err
	}
	task.Metadata.PersonID = personID
	return []domain.Task{task}, nil
}

func (d *CompleteContactInfo) CompleteTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	var out []domain.Task
	for _, evt := range snap.FindEvents(domain.EventContactInfoAdded) {
		for _, task := range snap.ActiveTasksByName(d.Name()) {
			if task.Metadata.PersonID != uuid.Nil && task.Metadata.PersonID != evt.Metadata.PersonID {
				continue
			}
			completed, err := task.Completed(completedByFrom(evt), d.deps.Now())
			if err != nil {
				continue
			}
			out = append(out, completed)
		}
	}
	return dedupeByID(out), nil
}

func (d *CompleteContactInfo) CancelTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if partyClosedOrArchived(snap) {
		return cancelAllActive(snap, d.Name()), nil
	}
	return nil, nil
}

// personMissingContactInfo returns the member flagged by a creation trigger,
// or uuid.Nil when none is pending.
func (d *CompleteContactInfo) personMissingContactInfo(snap *domain.Snapshot) uuid.UUID {
	for _, eventType := range []domain.EventType{domain.EventPartyCreated, domain.EventCommunicationReceived} {
		for _, evt := range snap.FindEvents(eventType) {
			if evt.Metadata.PersonID != uuid.Nil {
				return evt.Metadata.PersonID
			}
		}
	}
	return uuid.Nil
}
