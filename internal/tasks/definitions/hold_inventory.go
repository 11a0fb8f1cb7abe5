package definitions

import (
	"context"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/engine"
)

// HoldInventory tracks a request to take a unit off the market for this
// party, including who fronts the hold deposit.
type HoldInventory struct {
	deps Deps
}

// NewHoldInventory builds the HOLD_INVENTORY definition.
func NewHoldInventory(deps Deps) *HoldInventory {
	return &HoldInventory{deps: deps}
}

func (d *HoldInventory) Name() domain.TaskName         { return domain.TaskHoldInventory }
func (d *HoldInventory) Category() domain.TaskCategory { return domain.CategoryParty }

func (d *HoldInventory) Capability() engine.Capability {
	return engine.Capability{AllowedOnCorporate: true}
}

func (d *HoldInventory) CreateTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if !d.Capability().AllowsCreate(snap.Party) {
		return nil, nil
	}
	if len(snap.ActiveTasksByName(d.Name())) > 0 {
		return nil, nil
	}
	evt, ok := snap.FindEvent(domain.EventHoldInventoryRequested)
	if !ok {
		return nil, nil
	}

	task, err := domain.NewTask(d.Name(), d.Category(), snap.Party.ID, ownerAssignees(snap), d.deps.dueDate(d.Name()))
	if err != nil {
		return nil, err
	}
	task.Metadata.InventoryName = evt.Metadata.InventoryName
	task.Metadata.HoldDepositPayer = evt.Metadata.HoldDepositPayer
	return []domain.Task{task}, nil
}

func (d *HoldInventory) CompleteTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	evt, ok := snap.FindEvent(domain.EventInventoryHeld)
	if !ok {
		return nil, nil
	}
	return completeAllActive(snap, d.Name(), completedByFrom(evt), d.deps.Now()), nil
}

func (d *HoldInventory) CancelTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if partyClosedOrArchived(snap) || snap.HasEvent(domain.EventInventoryReleased) {
		return cancelAllActive(snap, d.Name()), nil
	}
	return nil, nil
}
