package definitions

import (
	"context"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/engine"
	"leasing_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// SendContract tracks the "send the lease contract" work item. One active
// task per party regardless of how many leases the transaction spans:
// additional approved promotions merge their lease id into the existing
// task's metadata instead of creating duplicates.
type SendContract struct {
	deps Deps
}

// NewSendContract builds the SEND_CONTRACT definition.
func NewSendContract(deps Deps) *SendContract {
	return &SendContract{deps: deps}
}

func (d *SendContract) Name() domain.TaskName         { return domain.TaskSendContract }
func (d *SendContract) Category() domain.TaskCategory { return domain.CategoryContractSigning }

func (d *SendContract) Capability() engine.Capability {
	return engine.Capability{
		AllowedOnCorporate: true,
		RoleRestricted:     true,
	}
}

// CreateTasks fires on QUOTE_PROMOTION_UPDATED once the promotion is
// approved. Finding more than one active task here is a data integrity
// violation: the at-most-one invariant is foundational.
func (d *SendContract) CreateTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if !d.Capability().AllowsCreate(snap.Party) {
		return nil, nil
	}

	leaseIDs := d.approvedLeaseIDs(snap)
	if len(leaseIDs) == 0 {
		return nil, nil
	}

	active := snap.ActiveTasksByName(d.Name())
	if len(active) > 1 {
		return nil, apperr.Integrity("multiple active SEND_CONTRACT tasks for party " + snap.Party.ID.String())
	}

	if len(active) == 1 {
		task := active[0]
		changed := false
		for _, leaseID := range leaseIDs {
			merged, ok := task.WithLease(leaseID)
			if ok {
				task = merged
				changed = true
			}
		}
		if !changed {
			return nil, nil
		}
		return []domain.Task{task}, nil
	}

	assignees, err := ownerAndRoleAssignees(ctx, d.deps, snap, engine.RoleLeasingConsultant)
	if err != nil {
		return nil, err
	}

	task, err := domain.NewTask(d.Name(), d.Category(), snap.Party.ID, assignees, d.deps.dueDate(d.Name()))
	if err != nil {
		return nil, err
	}
	task.Metadata.Leases = leaseIDs

	return []domain.Task{task}, nil
}

// CompleteTasks fires when a tracked lease went out: LEASE_SENT with a
// mailed signature, or LEASE_VOIDED after at least one signature was
// mailed. Corporate parties additionally require every tracked lease to
// have a mailed signature before the task settles.
func (d *SendContract) CompleteTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	active := snap.ActiveTasksByName(d.Name())
	if len(active) == 0 {
		return nil, nil
	}
	task := active[0]

	evt, ok := d.completionTrigger(snap, task)
	if !ok {
		return nil, nil
	}

	if snap.Party.IsCorporate() && !allLeasesMailed(snap, task) {
		return nil, nil
	}

	completed, err := task.Completed(completedByFrom(evt), d.deps.Now())
	if err != nil {
		return nil, nil
	}
	return []domain.Task{completed}, nil
}

// CancelTasks fires on LEASE_VOIDED when no signature on that lease was
// ever mailed, and on party close/archive. The mailed check is the exact
// complement of the completion precondition, so a single LEASE_VOIDED
// event settles the task exactly one way.
func (d *SendContract) CancelTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if partyClosedOrArchived(snap) {
		return cancelAllActive(snap, d.Name()), nil
	}

	active := snap.ActiveTasksByName(d.Name())
	if len(active) == 0 {
		return nil, nil
	}
	task := active[0]

	for _, evt := range snap.FindEvents(domain.EventLeaseVoided) {
		if !task.Metadata.HasLease(evt.Metadata.LeaseID) {
			continue
		}
		if leaseMailed(snap, evt.Metadata.LeaseID) {
			continue
		}
		canceled, err := task.Canceled()
		if err != nil {
			return nil, nil
		}
		return []domain.Task{canceled}, nil
	}
	return nil, nil
}

func (d *SendContract) approvedLeaseIDs(snap *domain.Snapshot) []uuid.UUID {
	var out []uuid.UUID
	for _, evt := range snap.FindEvents(domain.EventQuotePromotionUpdated) {
		promo, ok := snap.FindPromotion(evt.Metadata.QuotePromotionID)
		if !ok || promo.Status != domain.PromotionApproved {
			continue
		}
		leaseID := evt.Metadata.LeaseID
		if leaseID == uuid.Nil {
			leaseID = promo.LeaseID
		}
		if leaseID == uuid.Nil {
			continue
		}
		out = append(out, leaseID)
	}
	return out
}

func (d *SendContract) completionTrigger(snap *domain.Snapshot, task domain.Task) (domain.Event, bool) {
	for _, evt := range snap.FindEvents(domain.EventLeaseSent) {
		if task.Metadata.HasLease(evt.Metadata.LeaseID) && leaseMailed(snap, evt.Metadata.LeaseID) {
			return evt, true
		}
	}
	for _, evt := range snap.FindEvents(domain.EventLeaseVoided) {
		if task.Metadata.HasLease(evt.Metadata.LeaseID) && leaseMailed(snap, evt.Metadata.LeaseID) {
			return evt, true
		}
	}
	return domain.Event{}, false
}

func leaseMailed(snap *domain.Snapshot, leaseID uuid.UUID) bool {
	lease, ok := snap.FindLease(leaseID)
	return ok && lease.HasMailedSignature()
}

func allLeasesMailed(snap *domain.Snapshot, task domain.Task) bool {
	for _, leaseID := range task.Metadata.Leases {
		if !leaseMailed(snap, leaseID) {
			return false
		}
	}
	return true
}
