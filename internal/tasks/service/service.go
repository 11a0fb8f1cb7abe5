// Package service contains the dispatcher that drives the task decision
// engine: it loads party snapshots, runs every applicable task definition,
// and persists the resulting mutations.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"leasing_crm_backend/internal/events"
	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/engine"
	"leasing_crm_backend/platform/apperr"
	"leasing_crm_backend/platform/logger"
)

// followupQuietDays is how long a prospect must be silent before the
// follow-up sweep picks the party up.
const followupQuietDays = 2

// renewalReminderDayMarks are the days-before-lease-end marks, after the
// moveout-notice mark, at which a renewal reminder is due.
var renewalReminderDayMarks = []int{50, 35, 20, 5}

// SnapshotProvider assembles the party evaluation view, stores incoming
// event batches, and serializes dispatch cycles per party. LoadSnapshot
// consumes the party's pending events with the read; PeekSnapshot leaves
// them pending for the next event-driven cycle.
type SnapshotProvider interface {
	LoadSnapshot(ctx context.Context, partyID uuid.UUID) (*domain.Snapshot, error)
	PeekSnapshot(ctx context.Context, partyID uuid.UUID) (*domain.Snapshot, error)
	AppendEvents(ctx context.Context, partyID uuid.UUID, events []domain.Event) error
	WithPartyLock(ctx context.Context, partyID uuid.UUID, fn func() error) error
}

// TaskStore persists task mutations. InTx groups the writes of one
// definition phase into a single transaction. SaveTask reports whether a
// row was actually written; the store's state guard silently skips updates
// to tasks that reached a terminal state since the snapshot was taken.
// BulkCancelTasks returns the ids it actually canceled for the same reason.
type TaskStore interface {
	FindActiveTasks(ctx context.Context, partyID uuid.UUID, name domain.TaskName) ([]domain.Task, error)
	FindActiveTasksByCategory(ctx context.Context, partyID uuid.UUID, category domain.TaskCategory) ([]domain.Task, error)
	SaveTask(ctx context.Context, task domain.Task) (bool, error)
	BulkCancelTasks(ctx context.Context, taskIDs []uuid.UUID) ([]uuid.UUID, error)
	InTx(ctx context.Context, fn func(store TaskStore) error) error
}

// EligibilityStore runs the time-based sweep queries.
type EligibilityStore interface {
	FollowupEligibleParties(ctx context.Context, quietDays int) ([]uuid.UUID, error)
	RenewalReminderEligibleParties(ctx context.Context, dayMarks []int) ([]uuid.UUID, error)
}

// AuditSink records task mutations. Calls are fire-and-forget: the sink
// logs its own failures and never blocks a mutation.
type AuditSink interface {
	TaskCreated(ctx context.Context, task domain.Task)
	TaskUpdated(ctx context.Context, task domain.Task)
}

// NoticePolicy supplies the renewal cadence inputs. Satisfied by
// config.EngineConfig.
type NoticePolicy interface {
	GetMoveoutNoticePeriodDays() int
}

// DispatchQueue hands dispatch cycles to the background worker. Satisfied
// by the scheduler client; optional, ingestion runs inline without one.
type DispatchQueue interface {
	EnqueuePartyDispatch(ctx context.Context, partyIDs []uuid.UUID, actorID uuid.UUID) error
}

// Dispatcher orchestrates dispatch cycles. Every cycle for a party runs
// under that party's lock, so the idempotency lookups never race a
// concurrent cycle for the same party even when worker jobs overlap.
type Dispatcher struct {
	registry    *engine.Registry
	snapshots   SnapshotProvider
	store       TaskStore
	roles       engine.RoleResolver
	eligibility EligibilityStore
	audit       AuditSink
	bus         events.Bus
	notice      NoticePolicy
	now         engine.Clock
	log         *logger.Logger
	queue       DispatchQueue
}

// NewDispatcher wires the dispatcher.
func NewDispatcher(
	registry *engine.Registry,
	snapshots SnapshotProvider,
	store TaskStore,
	roles engine.RoleResolver,
	eligibility EligibilityStore,
	audit AuditSink,
	bus events.Bus,
	notice NoticePolicy,
	now engine.Clock,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		snapshots:   snapshots,
		store:       store,
		roles:       roles,
		eligibility: eligibility,
		audit:       audit,
		bus:         bus,
		notice:      notice,
		now:         now,
		log:         log,
	}
}

// SetDispatchQueue routes ingestion dispatch cycles through the background
// worker instead of running them inline.
func (d *Dispatcher) SetDispatchQueue(queue DispatchQueue) {
	d.queue = queue
}

// IngestEvents stores an event batch for the party and runs a dispatch
// cycle over it, queued when a dispatch queue is configured. The actor is
// the acting user from the request, or uuid.Nil for system-driven ingestion.
func (d *Dispatcher) IngestEvents(ctx context.Context, partyID uuid.UUID, batch []domain.Event, actor uuid.UUID) error {
	if err := d.snapshots.AppendEvents(ctx, partyID, batch); err != nil {
		return err
	}

	eventTypes := make([]domain.EventType, 0, len(batch))
	for _, evt := range batch {
		eventTypes = append(eventTypes, evt.Type)
	}
	d.bus.Publish(ctx, events.PartyEventsReceived{
		BaseEvent:  events.NewBaseEvent(),
		PartyID:    partyID,
		EventTypes: eventTypes,
	})

	if d.queue != nil {
		if err := d.queue.EnqueuePartyDispatch(ctx, []uuid.UUID{partyID}, actor); err == nil {
			return nil
		} else {
			d.log.Warn("dispatch enqueue failed, running inline", "party_id", partyID, "error", err)
		}
	}

	d.ProcessParties(ctx, []uuid.UUID{partyID}, actor)
	return nil
}

// ProcessParties runs one dispatch cycle per party, in order. Each party's
// cycle runs under the party lock so a concurrent worker job or sweep never
// interleaves its snapshot-decide-persist sequence. A failure for one
// party's one task type never aborts the batch: errors are logged and the
// loop continues.
func (d *Dispatcher) ProcessParties(ctx context.Context, partyIDs []uuid.UUID, actor uuid.UUID) {
	for _, partyID := range partyIDs {
		err := d.snapshots.WithPartyLock(ctx, partyID, func() error {
			snap, err := d.snapshots.LoadSnapshot(ctx, partyID)
			if err != nil {
				return err
			}

			for _, def := range d.registry.All() {
				// Sweep-driven definitions create only from their
				// eligibility sweep; event dispatch still settles them.
				if _, sweepDriven := def.(engine.SweepDefinition); !sweepDriven {
					d.runPhase(ctx, snap, def, phaseCreate, actor)
				}
				d.runPhase(ctx, snap, def, phaseComplete, actor)
				d.runPhase(ctx, snap, def, phaseCancel, actor)
			}
			return nil
		})
		if err != nil {
			d.log.Error("party dispatch cycle", "party_id", partyID, "error", err)
		}
	}
}

// ProcessSweep loads the parties eligible for a time-based task family and
// runs that family's create phase over them, one party lock at a time. The
// snapshot is peeked, not consumed: a sweep only creates its own tasks, and
// pending events must survive for the next event-driven dispatch.
func (d *Dispatcher) ProcessSweep(ctx context.Context, family engine.SweepFamily) error {
	def, ok := d.registry.BySweepFamily(family)
	if !ok {
		return apperr.NotFound("unknown sweep family: " + string(family))
	}

	partyIDs, err := d.eligibleParties(ctx, family)
	if err != nil {
		return err
	}

	for _, partyID := range partyIDs {
		err := d.snapshots.WithPartyLock(ctx, partyID, func() error {
			snap, err := d.snapshots.PeekSnapshot(ctx, partyID)
			if err != nil {
				return err
			}
			d.runPhase(ctx, snap, def, phaseCreate, uuid.Nil)
			return nil
		})
		if err != nil {
			d.log.Error("party sweep cycle", "party_id", partyID, "error", err)
		}
	}
	return nil
}

// CompleteOnDemand completes the named active tasks for each party,
// recording the actor. Used by the decision API.
func (d *Dispatcher) CompleteOnDemand(ctx context.Context, partyIDs []uuid.UUID, names []domain.TaskName, actor uuid.UUID) {
	d.settleOnDemand(ctx, partyIDs, names, actor, true)
}

// CancelOnDemand cancels the named active tasks for each party.
func (d *Dispatcher) CancelOnDemand(ctx context.Context, partyIDs []uuid.UUID, names []domain.TaskName, actor uuid.UUID) {
	d.settleOnDemand(ctx, partyIDs, names, actor, false)
}

// CancelCategoryOnDemand bulk-cancels every active task in the category for
// each party. Used when a closing party's manual work is swept away at once.
func (d *Dispatcher) CancelCategoryOnDemand(ctx context.Context, partyIDs []uuid.UUID, category domain.TaskCategory) {
	for _, partyID := range partyIDs {
		active, err := d.store.FindActiveTasksByCategory(ctx, partyID, category)
		if err != nil {
			d.log.TaskMutationFailed(partyID, string(category), "category_lookup", err)
			continue
		}
		if len(active) == 0 {
			continue
		}

		taskIDs := make([]uuid.UUID, 0, len(active))
		for _, task := range active {
			taskIDs = append(taskIDs, task.ID)
		}
		canceledIDs, err := d.store.BulkCancelTasks(ctx, taskIDs)
		if err != nil {
			d.log.TaskMutationFailed(partyID, string(category), "bulk_cancel", err)
			continue
		}
		wasCanceled := make(map[uuid.UUID]bool, len(canceledIDs))
		for _, id := range canceledIDs {
			wasCanceled[id] = true
		}

		for _, task := range active {
			if !wasCanceled[task.ID] {
				continue
			}
			canceled, err := task.Canceled()
			if err != nil {
				continue
			}
			d.audit.TaskUpdated(ctx, canceled)
			d.bus.Publish(ctx, events.TaskUpdated{
				BaseEvent: events.NewBaseEvent(),
				TaskID:    canceled.ID,
				TaskName:  canceled.Name,
				PartyID:   canceled.PartyID,
				State:     canceled.State,
			})
		}
	}
}

func (d *Dispatcher) settleOnDemand(ctx context.Context, partyIDs []uuid.UUID, names []domain.TaskName, actor uuid.UUID, complete bool) {
	completedBy := domain.CompletedBySystem
	if actor != uuid.Nil {
		completedBy = actor.String()
	}

	for _, partyID := range partyIDs {
		for _, name := range names {
			active, err := d.store.FindActiveTasks(ctx, partyID, name)
			if err != nil {
				d.log.TaskMutationFailed(partyID, string(name), "on_demand_lookup", err)
				continue
			}

			var settled []domain.Task
			for _, task := range active {
				var next domain.Task
				if complete {
					next, err = task.Completed(completedBy, d.now())
				} else {
					next, err = task.Canceled()
				}
				if err != nil {
					continue
				}
				settled = append(settled, next)
			}
			if len(settled) == 0 {
				continue
			}

			if err := d.persist(ctx, nil, settled); err != nil {
				d.log.TaskMutationFailed(partyID, string(name), "on_demand_persist", err)
			}
		}
	}
}

type phase int

const (
	phaseCreate phase = iota
	phaseComplete
	phaseCancel
)

func (p phase) String() string {
	switch p {
	case phaseCreate:
		return "create"
	case phaseComplete:
		return "complete"
	default:
		return "cancel"
	}
}

// runPhase evaluates one definition phase against the snapshot and
// persists its mutations. Errors are contained here: they are logged with
// full context and never propagate to sibling definitions or parties.
func (d *Dispatcher) runPhase(ctx context.Context, snap *domain.Snapshot, def engine.Definition, p phase, actor uuid.UUID) {
	var tasks []domain.Task
	var err error

	switch p {
	case phaseCreate:
		tasks, err = def.CreateTasks(ctx, snap)
	case phaseComplete:
		tasks, err = def.CompleteTasks(ctx, snap)
	case phaseCancel:
		tasks, err = def.CancelTasks(ctx, snap)
	}
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindIntegrity {
			d.log.IntegrityViolation(snap.Party.ID, string(def.Name()), appErr.Message)
			return
		}
		d.log.TaskMutationFailed(snap.Party.ID, string(def.Name()), p.String(), err)
		return
	}
	if len(tasks) == 0 {
		return
	}

	if p == phaseCreate {
		tasks, err = d.stampNewTasks(ctx, snap, tasks, actor)
		if err != nil {
			d.log.TaskMutationFailed(snap.Party.ID, string(def.Name()), p.String(), err)
			return
		}
	}

	if err := d.persist(ctx, snap, tasks); err != nil {
		d.log.TaskMutationFailed(snap.Party.ID, string(def.Name()), p.String(), err)
	}
}

// stampNewTasks writes the write-once audit fields on tasks the create
// phase produced. Tasks that already existed in the snapshot (merge path)
// keep their original provenance untouched.
func (d *Dispatcher) stampNewTasks(ctx context.Context, snap *domain.Snapshot, tasks []domain.Task, actor uuid.UUID) ([]domain.Task, error) {
	out := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if existsInSnapshot(snap, task.ID) {
			out = append(out, task)
			continue
		}

		owner, err := d.roles.PartyOwner(ctx, task.PartyID)
		if err != nil {
			return nil, err
		}

		createdBy := actor
		if createdBy == uuid.Nil {
			createdBy = owner
		}

		task.Audit = domain.AuditInfo{
			CreatedBy:          createdBy,
			OriginalPartyOwner: owner,
			OriginalAssignees:  append([]uuid.UUID(nil), task.UserIDs...),
		}
		out = append(out, task)
	}
	return out, nil
}

// persist writes one phase's mutations in a single transaction, then fires
// the audit sink and bus notifications for each task the store actually
// wrote. Saves the state guard rejected (the stored task went terminal
// after the snapshot) produce no audit row and no event.
func (d *Dispatcher) persist(ctx context.Context, snap *domain.Snapshot, tasks []domain.Task) error {
	written := make([]bool, len(tasks))
	err := d.store.InTx(ctx, func(store TaskStore) error {
		for i, task := range tasks {
			ok, err := store.SaveTask(ctx, task)
			if err != nil {
				return err
			}
			written[i] = ok
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i, task := range tasks {
		if !written[i] {
			continue
		}
		if snap != nil && !existsInSnapshot(snap, task.ID) {
			d.audit.TaskCreated(ctx, task)
			d.bus.Publish(ctx, events.TaskCreated{
				BaseEvent: events.NewBaseEvent(),
				TaskID:    task.ID,
				TaskName:  task.Name,
				PartyID:   task.PartyID,
				UserIDs:   task.UserIDs,
				DueDate:   task.DueDate.Format(time.RFC3339),
			})
			continue
		}
		d.audit.TaskUpdated(ctx, task)
		d.bus.Publish(ctx, events.TaskUpdated{
			BaseEvent: events.NewBaseEvent(),
			TaskID:    task.ID,
			TaskName:  task.Name,
			PartyID:   task.PartyID,
			State:     task.State,
		})
	}
	return nil
}

func (d *Dispatcher) eligibleParties(ctx context.Context, family engine.SweepFamily) ([]uuid.UUID, error) {
	switch family {
	case engine.SweepFollowup:
		return d.eligibility.FollowupEligibleParties(ctx, followupQuietDays)
	case engine.SweepRenewalReminder:
		marks := append([]int{d.notice.GetMoveoutNoticePeriodDays() + 3}, renewalReminderDayMarks...)
		return d.eligibility.RenewalReminderEligibleParties(ctx, marks)
	default:
		return nil, apperr.NotFound("unknown sweep family: " + string(family))
	}
}

func existsInSnapshot(snap *domain.Snapshot, taskID uuid.UUID) bool {
	for _, t := range snap.Tasks {
		if t.ID == taskID {
			return true
		}
	}
	return false
}
