package definitions

import (
	"context"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/engine"

	"github.com/google/uuid"
)

// CountersignLease asks the leasing consultant to countersign once every
// party member has signed a lease. Unlike SEND_CONTRACT this is a per-lease
// task: each fully signed lease gets its own instance.
type CountersignLease struct {
	deps Deps
}

// NewCountersignLease builds the COUNTERSIGN_LEASE definition.
func NewCountersignLease(deps Deps) *CountersignLease {
	return &CountersignLease{deps: deps}
}

func (d *CountersignLease) Name() domain.TaskName         { return domain.TaskCountersignLease }
func (d *CountersignLease) Category() domain.TaskCategory { return domain.CategoryContractSigning }

func (d *CountersignLease) Capability() engine.Capability {
	return engine.Capability{
		AllowedOnCorporate: true,
		RoleRestricted:     true,
	}
}

func (d *CountersignLease) CreateTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if !d.Capability().AllowsCreate(snap.Party) {
		return nil, nil
	}

	var out []domain.Task
	for _, evt := range snap.FindEvents(domain.EventLeaseSigned) {
		leaseID := evt.Metadata.LeaseID
		if leaseID == uuid.Nil {
			continue
		}
		lease, ok := snap.FindLease(leaseID)
		if !ok || !lease.AllMembersSigned() {
			continue
		}
		if d.hasActiveForLease(snap, leaseID) {
			continue
		}

		assignees, err := d.deps.Roles.UserIDsWithFunctionalRole(ctx, snap.Party.ID, engine.RoleLeasingConsultant, snap.Party.AssignedPropertyID)
		if err != nil {
			return nil, err
		}

		task, err := domain.NewTask(d.Name(), d.Category(), snap.Party.ID, assignees, d.deps.dueDate(d.Name()))
		if err != nil {
			return nil, err
		}
		task.Metadata.Leases = []uuid.UUID{leaseID}
		out = append(out, task)
	}
	return out, nil
}

func (d *CountersignLease) CompleteTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	var out []domain.Task
	for _, eventType := range []domain.EventType{domain.EventLeaseCountersigned, domain.EventLeaseExecuted} {
		for _, evt := range snap.FindEvents(eventType) {
			for _, task := range snap.ActiveTasksByName(d.Name()) {
				if !task.Metadata.HasLease(evt.Metadata.LeaseID) {
					continue
				}
				completed, err := task.Completed(completedByFrom(evt), d.deps.Now())
				if err != nil {
					continue
				}
				out = append(out, completed)
			}
		}
	}
	return dedupeByID(out), nil
}

func (d *CountersignLease) CancelTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if partyClosedOrArchived(snap) {
		return cancelAllActive(snap, d.Name()), nil
	}

	var out []domain.Task
	for _, evt := range snap.FindEvents(domain.EventLeaseVoided) {
		for _, task := range snap.ActiveTasksByName(d.Name()) {
			if !task.Metadata.HasLease(evt.Metadata.LeaseID) {
				continue
			}
			canceled, err := task.Canceled()
			if err != nil {
				continue
			}
			out = append(out, canceled)
		}
	}
	return dedupeByID(out), nil
}

func (d *CountersignLease) hasActiveForLease(snap *domain.Snapshot, leaseID uuid.UUID) bool {
	for _, t := range snap.ActiveTasksByName(d.Name()) {
		if t.Metadata.HasLease(leaseID) {
			return true
		}
	}
	return false
}

func dedupeByID(tasks []domain.Task) []domain.Task {
	if len(tasks) < 2 {
		return tasks
	}
	seen := make(map[uuid.UUID]struct{}, len(tasks))
	out := tasks[:0]
	for _, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
