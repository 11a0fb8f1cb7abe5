package definitions

import (
	"context"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/engine"
)

// ReviewApplication asks an agent to review a submitted rental application.
// Corporate parties skip individual screening, so the rule never fires for
// them.
type ReviewApplication struct {
	deps Deps
}

// NewReviewApplication builds the REVIEW_APPLICATION definition.
func NewReviewApplication(deps Deps) *ReviewApplication {
	return &ReviewApplication{deps: deps}
}

func (d *ReviewApplication) Name() domain.TaskName         { return domain.TaskReviewApplication }
func (d *ReviewApplication) Category() domain.TaskCategory { return domain.CategoryApplicationApproval }

func (d *ReviewApplication) Capability() engine.Capability {
	return engine.Capability{}
}

func (d *ReviewApplication) CreateTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if !d.Capability().AllowsCreate(snap.Party) {
		return nil, nil
	}
	if len(snap.ActiveTasksByName(d.Name())) > 0 {
		return nil, nil
	}
	if !hasApplicationStatus(snap, domain.ApplicationStatusSubmitted, domain.ApplicationStatusScreeningComplete) {
		return nil, nil
	}

	task, err := domain.NewTask(d.Name(), d.Category(), snap.Party.ID, ownerAssignees(snap), d.deps.dueDate(d.Name()))
	if err != nil {
		return nil, err
	}
	return []domain.Task{task}, nil
}

func (d *ReviewApplication) CompleteTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if evt, ok := approvedPromotionEvent(snap); ok {
		return completeAllActive(snap, d.Name(), completedByFrom(evt), d.deps.Now()), nil
	}
	if evt, ok := applicationStatusEvent(snap, domain.ApplicationStatusApproved, domain.ApplicationStatusConditionalApproval, domain.ApplicationStatusDenied); ok {
		return completeAllActive(snap, d.Name(), completedByFrom(evt), d.deps.Now()), nil
	}
	return nil, nil
}

func (d *ReviewApplication) CancelTasks(ctx context.Context, snap *domain.Snapshot) ([]domain.Task, error) {
	if partyClosedOrArchived(snap) {
		return cancelAllActive(snap, d.Name()), nil
	}
	if _, ok := applicationStatusEvent(snap, domain.ApplicationStatusVoided); ok {
		return cancelAllActive(snap, d.Name()), nil
	}
	return nil, nil
}

// applicationStatusEvent returns the first APPLICATION_STATUS_UPDATED event
// carrying one of the given statuses.
func applicationStatusEvent(snap *domain.Snapshot, statuses ...string) (domain.Event, bool) {
	for _, evt := range snap.FindEvents(domain.EventApplicationStatusUpdated) {
		for _, status := range statuses {
			if evt.Metadata.ApplicationStatus == status {
				return evt, true
			}
		}
	}
	return domain.Event{}, false
}

func hasApplicationStatus(snap *domain.Snapshot, statuses ...string) bool {
	_, ok := applicationStatusEvent(snap, statuses...)
	return ok
}

// approvedPromotionEvent returns the first QUOTE_PROMOTION_UPDATED event
// whose promotion is approved.
func approvedPromotionEvent(snap *domain.Snapshot) (domain.Event, bool) {
	for _, evt := range snap.FindEvents(domain.EventQuotePromotionUpdated) {
		promo, ok := snap.FindPromotion(evt.Metadata.QuotePromotionID)
		if ok && promo.Status == domain.PromotionApproved {
			return evt, true
		}
	}
	return domain.Event{}, false
}
