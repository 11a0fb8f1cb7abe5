package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a domain event observed on a party.
type EventType string

const (
	EventQuotePromotionUpdated    EventType = "QUOTE_PROMOTION_UPDATED"
	EventQuoteSent                EventType = "QUOTE_SENT"
	EventLeaseSent                EventType = "LEASE_SENT"
	EventLeaseSigned              EventType = "LEASE_SIGNED"
	EventLeaseCountersigned       EventType = "LEASE_COUNTERSIGNED"
	EventLeaseVoided              EventType = "LEASE_VOIDED"
	EventLeaseExecuted            EventType = "LEASE_EXECUTED"
	EventPartyCreated             EventType = "PARTY_CREATED"
	EventPartyClosed              EventType = "PARTY_CLOSED"
	EventPartyArchived            EventType = "PARTY_ARCHIVED"
	EventApplicationStatusUpdated EventType = "APPLICATION_STATUS_UPDATED"
	EventCommunicationSent        EventType = "COMMUNICATION_SENT"
	EventCommunicationReceived    EventType = "COMMUNICATION_RECEIVED"
	EventContactInfoAdded         EventType = "CONTACT_INFO_ADDED"
	EventHoldInventoryRequested   EventType = "HOLD_INVENTORY_REQUESTED"
	EventInventoryHeld            EventType = "INVENTORY_HELD"
	EventInventoryReleased        EventType = "INVENTORY_RELEASED"
	EventAppointmentCompleted     EventType = "APPOINTMENT_COMPLETED"
)

var knownEventTypes = map[EventType]struct{}{
	EventQuotePromotionUpdated:    {},
	EventQuoteSent:                {},
	EventLeaseSent:                {},
	EventLeaseSigned:              {},
	EventLeaseCountersigned:       {},
	EventLeaseVoided:              {},
	EventLeaseExecuted:            {},
	EventPartyCreated:             {},
	EventPartyClosed:              {},
	EventPartyArchived:            {},
	EventApplicationStatusUpdated: {},
	EventCommunicationSent:        {},
	EventCommunicationReceived:    {},
	EventContactInfoAdded:         {},
	EventHoldInventoryRequested:   {},
	EventInventoryHeld:            {},
	EventInventoryReleased:        {},
	EventAppointmentCompleted:     {},
}

// IsKnownEventType reports whether the event type is recognized by the engine.
func IsKnownEventType(t EventType) bool {
	_, ok := knownEventTypes[t]
	return ok
}

// ApplicationStatus values carried on APPLICATION_STATUS_UPDATED events.
const (
	ApplicationStatusSubmitted           = "SUBMITTED"
	ApplicationStatusScreeningComplete   = "SCREENING_COMPLETE"
	ApplicationStatusApproved            = "APPROVED"
	ApplicationStatusConditionalApproval = "CONDITIONAL_APPROVAL"
	ApplicationStatusDenied              = "DENIED"
	ApplicationStatusVoided              = "VOIDED"
)

// EventMetadata carries the typed payload of an event. Absent identifiers are
// the uuid zero value; absent strings are empty.
type EventMetadata struct {
	LeaseID            uuid.UUID
	QuotePromotionID   uuid.UUID
	EnvelopeID         string
	UserID             uuid.UUID // acting user, when the event was user-driven
	PersonID           uuid.UUID // party member the event concerns
	InventoryName      string
	HoldDepositPayer   string
	ApplicationStatus  string
	ApprovalConditions []string
}

// Event is a typed domain notification attached to a party snapshot. Multiple
// events may arrive per evaluation cycle.
type Event struct {
	Type       EventType
	Metadata   EventMetadata
	OccurredAt time.Time
}
