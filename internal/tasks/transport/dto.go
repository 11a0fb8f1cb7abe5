// Package transport defines the request and response shapes of the
// decision API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/platform/apperr"
)

// EventMetadataDTO mirrors domain.EventMetadata on the wire.
type EventMetadataDTO struct {
	LeaseID            *uuid.UUID `json:"leaseId,omitempty"`
	QuotePromotionID   *uuid.UUID `json:"quotePromotionId,omitempty"`
	EnvelopeID         string     `json:"envelopeId,omitempty"`
	UserID             *uuid.UUID `json:"userId,omitempty"`
	PersonID           *uuid.UUID `json:"personId,omitempty"`
	InventoryName      string     `json:"inventoryName,omitempty"`
	HoldDepositPayer   string     `json:"holdDepositPayer,omitempty"`
	ApplicationStatus  string     `json:"applicationStatus,omitempty"`
	ApprovalConditions []string   `json:"approvalConditions,omitempty"`
}

// EventDTO is one party event in an ingest batch.
type EventDTO struct {
	Event    string           `json:"event" validate:"required,min=1,max=100"`
	Metadata EventMetadataDTO `json:"metadata"`
}

// IngestEventsRequest is the body of POST /decision/parties/:id/events.
type IngestEventsRequest struct {
	Events []EventDTO `json:"events" validate:"required,min=1,max=100,dive"`
}

// ToDomain converts the batch, rejecting unknown event types.
func (r IngestEventsRequest) ToDomain(now time.Time) ([]domain.Event, error) {
	out := make([]domain.Event, 0, len(r.Events))
	for _, dto := range r.Events {
		eventType := domain.EventType(dto.Event)
		if !domain.IsKnownEventType(eventType) {
			return nil, apperr.Validation("unknown event type: " + dto.Event)
		}
		out = append(out, domain.Event{
			Type:       eventType,
			OccurredAt: now,
			Metadata: domain.EventMetadata{
				LeaseID:            deref(dto.Metadata.LeaseID),
				QuotePromotionID:   deref(dto.Metadata.QuotePromotionID),
				EnvelopeID:         dto.Metadata.EnvelopeID,
				UserID:             deref(dto.Metadata.UserID),
				PersonID:           deref(dto.Metadata.PersonID),
				InventoryName:      dto.Metadata.InventoryName,
				HoldDepositPayer:   dto.Metadata.HoldDepositPayer,
				ApplicationStatus:  dto.Metadata.ApplicationStatus,
				ApprovalConditions: dto.Metadata.ApprovalConditions,
			},
		})
	}
	return out, nil
}

// ProcessPartiesRequest is the body of POST /decision/tasks/process.
type ProcessPartiesRequest struct {
	PartyIDs []uuid.UUID `json:"partyIds" validate:"required,min=1,max=500"`
}

// SettleTasksRequest is the body of the complete and cancel endpoints.
type SettleTasksRequest struct {
	PartyIDs  []uuid.UUID `json:"partyIds" validate:"required,min=1,max=500"`
	TaskNames []string    `json:"taskNames" validate:"required,min=1,dive,min=1,max=100"`
}

// CancelCategoryRequest is the body of POST /decision/tasks/cancel-category.
type CancelCategoryRequest struct {
	PartyIDs []uuid.UUID `json:"partyIds" validate:"required,min=1,max=500"`
	Category string      `json:"category" validate:"required,min=1,max=50"`
}

// Names converts the request's task names.
func (r SettleTasksRequest) Names() []domain.TaskName {
	out := make([]domain.TaskName, 0, len(r.TaskNames))
	for _, name := range r.TaskNames {
		out = append(out, domain.TaskName(name))
	}
	return out
}

// AcceptedResponse reports how many parties a dispatch touched.
type AcceptedResponse struct {
	Status  string `json:"status"`
	Parties int    `json:"parties"`
}

func deref(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
