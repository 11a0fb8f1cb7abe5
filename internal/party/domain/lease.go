package domain

import (
	"time"

	"github.com/google/uuid"
)

// LeaseStatus is the lifecycle state of a lease document.
type LeaseStatus string

const (
	LeaseStatusDraft     LeaseStatus = "DRAFT"
	LeaseStatusSubmitted LeaseStatus = "SUBMITTED"
	LeaseStatusExecuted  LeaseStatus = "EXECUTED"
	LeaseStatusVoided    LeaseStatus = "VOIDED"
)

// SignatureStatus tracks the state of one party member's lease signature.
type SignatureStatus string

const (
	SignatureNotSent   SignatureStatus = "NOT_SENT"
	SignatureSent      SignatureStatus = "SENT"
	SignatureSigned    SignatureStatus = "SIGNED"
	SignatureWetSigned SignatureStatus = "WET_SIGNED"
	SignatureVoided    SignatureStatus = "VOIDED"
)

// Signature is one party member's signature slot on a lease.
type Signature struct {
	PartyMemberID uuid.UUID
	Status        SignatureStatus
	CounterSigner bool
}

// Mailed reports whether the signature request left the building: sent,
// signed, or wet-signed all count.
func (s Signature) Mailed() bool {
	switch s.Status {
	case SignatureSent, SignatureSigned, SignatureWetSigned:
		return true
	}
	return false
}

// Signed reports whether the member signed, digitally or on paper.
func (s Signature) Signed() bool {
	return s.Status == SignatureSigned || s.Status == SignatureWetSigned
}

// Lease is an external lease document referenced by the engine.
type Lease struct {
	ID         uuid.UUID
	PartyID    uuid.UUID
	Status     LeaseStatus
	Signatures []Signature
	EndDate    *time.Time
}

// HasMailedSignature reports whether any signature on the lease was ever
// mailed. Decides whether a voided lease completes or cancels the contract
// task.
func (l Lease) HasMailedSignature() bool {
	for _, s := range l.Signatures {
		if s.Mailed() {
			return true
		}
	}
	return false
}

// AllMembersSigned reports whether every non-countersigner signature is
// signed. Countersigning becomes actionable only then.
func (l Lease) AllMembersSigned() bool {
	members := 0
	for _, s := range l.Signatures {
		if s.CounterSigner {
			continue
		}
		members++
		if !s.Signed() {
			return false
		}
	}
	return members > 0
}

// PromotionStatus is the approval state of a quote promotion.
type PromotionStatus string

const (
	PromotionPendingApproval PromotionStatus = "PENDING_APPROVAL"
	PromotionApproved        PromotionStatus = "APPROVED"
	PromotionCanceled        PromotionStatus = "CANCELED"
	PromotionRequiresWork    PromotionStatus = "REQUIRES_WORK"
)

// Promotion is a quote-to-lease transition on a party.
type Promotion struct {
	ID      uuid.UUID
	PartyID uuid.UUID
	LeaseID uuid.UUID
	Status  PromotionStatus
}
