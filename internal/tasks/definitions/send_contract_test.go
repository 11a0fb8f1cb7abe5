package definitions

import (
	"context"
	"errors"
	"testing"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestSendContractCreatesTaskOnApprovedPromotion(t *testing.T) {
	roleUser := uuid.New()
	def := NewSendContract(testDeps(roleUser))
	snap := newTestSnapshot()

	leaseID := uuid.New()
	promoID := addApprovedPromotion(snap, leaseID)
	addEvent(snap, domain.EventQuotePromotionUpdated, domain.EventMetadata{QuotePromotionID: promoID})

	tasks, err := def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}

	task := tasks[0]
	if task.Name != domain.TaskSendContract {
		t.Fatalf("expected SEND_CONTRACT, got %s", task.Name)
	}
	if !task.Metadata.HasLease(leaseID) {
		t.Fatal("expected lease id from the promotion to be tracked")
	}
	if len(task.UserIDs) != 2 || task.UserIDs[0] != snap.Party.UserID || task.UserIDs[1] != roleUser {
		t.Fatalf("expected owner followed by role user, got %v", task.UserIDs)
	}
}

func TestSendContractSkipsUnapprovedPromotion(t *testing.T) {
	def := NewSendContract(testDeps())
	snap := newTestSnapshot()

	promoID := uuid.New()
	snap.Promotions = append(snap.Promotions, domain.Promotion{
		ID:      promoID,
		PartyID: snap.Party.ID,
		LeaseID: uuid.New(),
		Status:  domain.PromotionPendingApproval,
	})
	addEvent(snap, domain.EventQuotePromotionUpdated, domain.EventMetadata{QuotePromotionID: promoID})

	tasks, err := def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks for pending promotion, got %d", len(tasks))
	}
}

func TestSendContractAllowsCorporateParties(t *testing.T) {
	def := NewSendContract(testDeps())
	snap := newTestSnapshot()
	snap.Party.LeaseType = domain.LeaseTypeCorporate

	leaseID := uuid.New()
	promoID := addApprovedPromotion(snap, leaseID)
	addEvent(snap, domain.EventQuotePromotionUpdated, domain.EventMetadata{QuotePromotionID: promoID})

	tasks, err := def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected corporate party to get a task, got %d", len(tasks))
	}
}

func TestSendContractBlocksArchivedParties(t *testing.T) {
	def := NewSendContract(testDeps())
	snap := newTestSnapshot()
	snap.Party.WorkflowState = domain.WorkflowStateArchived

	promoID := addApprovedPromotion(snap, uuid.New())
	addEvent(snap, domain.EventQuotePromotionUpdated, domain.EventMetadata{QuotePromotionID: promoID})

	tasks, err := def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no creation on archived party, got %d", len(tasks))
	}
}

func TestSendContractMergesLeaseIntoExistingTask(t *testing.T) {
	def := NewSendContract(testDeps())
	snap := newTestSnapshot()

	firstLease := uuid.New()
	existing := addActiveTask(t, snap, domain.TaskSendContract, domain.CategoryContractSigning)
	snap.Tasks[0].Metadata.Leases = []uuid.UUID{firstLease}

	secondLease := uuid.New()
	promoID := addApprovedPromotion(snap, secondLease)
	addEvent(snap, domain.EventQuotePromotionUpdated, domain.EventMetadata{QuotePromotionID: promoID})

	tasks, err := def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected merged task, got %d tasks", len(tasks))
	}
	if tasks[0].ID != existing.ID {
		t.Fatal("expected the existing task, not a new one")
	}
	if !tasks[0].Metadata.HasLease(firstLease) || !tasks[0].Metadata.HasLease(secondLease) {
		t.Fatalf("expected both leases tracked, got %v", tasks[0].Metadata.Leases)
	}
}

func TestSendContractMergeIsIdempotent(t *testing.T) {
	def := NewSendContract(testDeps())
	snap := newTestSnapshot()

	leaseID := uuid.New()
	addActiveTask(t, snap, domain.TaskSendContract, domain.CategoryContractSigning)
	snap.Tasks[0].Metadata.Leases = []uuid.UUID{leaseID}

	promoID := addApprovedPromotion(snap, leaseID)
	addEvent(snap, domain.EventQuotePromotionUpdated, domain.EventMetadata{QuotePromotionID: promoID})

	tasks, err := def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected already-tracked lease to be a no-op, got %d tasks", len(tasks))
	}
}

func TestSendContractReportsIntegrityViolation(t *testing.T) {
	def := NewSendContract(testDeps())
	snap := newTestSnapshot()

	addActiveTask(t, snap, domain.TaskSendContract, domain.CategoryContractSigning)
	addActiveTask(t, snap, domain.TaskSendContract, domain.CategoryContractSigning)

	promoID := addApprovedPromotion(snap, uuid.New())
	addEvent(snap, domain.EventQuotePromotionUpdated, domain.EventMetadata{QuotePromotionID: promoID})

	_, err := def.CreateTasks(context.Background(), snap)
	if err == nil {
		t.Fatal("expected integrity error for duplicate active tasks")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindIntegrity {
		t.Fatalf("expected integrity kind, got %v", err)
	}
}

func TestSendContractCompletesOnLeaseSentWithMailedSignature(t *testing.T) {
	def := NewSendContract(testDeps())
	snap := newTestSnapshot()

	leaseID := uuid.New()
	addActiveTask(t, snap, domain.TaskSendContract, domain.CategoryContractSigning)
	snap.Tasks[0].Metadata.Leases = []uuid.UUID{leaseID}
	addLease(snap, leaseID, domain.Signature{PartyMemberID: uuid.New(), Status: domain.SignatureSent})

	actor := uuid.New()
	addEvent(snap, domain.EventLeaseSent, domain.EventMetadata{LeaseID: leaseID, UserID: actor})

	tasks, err := def.CompleteTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 completed task, got %d", len(tasks))
	}
	if tasks[0].State != domain.TaskStateCompleted {
		t.Fatalf("expected COMPLETED, got %s", tasks[0].State)
	}
	if tasks[0].Metadata.CompletedBy != actor.String() {
		t.Fatalf("expected completed-by %s, got %q", actor, tasks[0].Metadata.CompletedBy)
	}
}

func TestSendContractIgnoresLeaseSentWithoutMailedSignature(t *testing.T) {
	def := NewSendContract(testDeps())
	snap := newTestSnapshot()

	leaseID := uuid.New()
	addActiveTask(t, snap, domain.TaskSendContract, domain.CategoryContractSigning)
	snap.Tasks[0].Metadata.Leases = []uuid.UUID{leaseID}
	addLease(snap, leaseID, domain.Signature{PartyMemberID: uuid.New(), Status: domain.SignatureNotSent})

	addEvent(snap, domain.EventLeaseSent, domain.EventMetadata{LeaseID: leaseID})

	tasks, err := def.CompleteTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no completion without a mailed signature, got %d", len(tasks))
	}
}

// A voided lease settles the task exactly one way: completion when a
// signature was mailed, cancellation when none ever was.
func TestSendContractVoidedLeaseSettlesExactlyOneWay(t *testing.T) {
	cases := []struct {
		name         string
		sigStatus    domain.SignatureStatus
		wantComplete bool
	}{
		{"mailed signature completes", domain.SignatureSent, true},
		{"unmailed signature cancels", domain.SignatureNotSent, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := NewSendContract(testDeps())
			snap := newTestSnapshot()

			leaseID := uuid.New()
			addActiveTask(t, snap, domain.TaskSendContract, domain.CategoryContractSigning)
			snap.Tasks[0].Metadata.Leases = []uuid.UUID{leaseID}
			addLease(snap, leaseID, domain.Signature{PartyMemberID: uuid.New(), Status: tc.sigStatus})
			addEvent(snap, domain.EventLeaseVoided, domain.EventMetadata{LeaseID: leaseID})

			completed, err := def.CompleteTasks(context.Background(), snap)
			if err != nil {
				t.Fatalf("complete: %v", err)
			}
			canceled, err := def.CancelTasks(context.Background(), snap)
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}

			if tc.wantComplete {
				if len(completed) != 1 || len(canceled) != 0 {
					t.Fatalf("expected complete only, got %d completed %d canceled", len(completed), len(canceled))
				}
				if completed[0].Metadata.CompletedBy != domain.CompletedBySystem {
					t.Fatalf("expected system completion, got %q", completed[0].Metadata.CompletedBy)
				}
			} else {
				if len(completed) != 0 || len(canceled) != 1 {
					t.Fatalf("expected cancel only, got %d completed %d canceled", len(completed), len(canceled))
				}
				if canceled[0].State != domain.TaskStateCanceled {
					t.Fatalf("expected CANCELED, got %s", canceled[0].State)
				}
			}
		})
	}
}

func TestSendContractCorporateRequiresAllLeasesMailed(t *testing.T) {
	def := NewSendContract(testDeps())
	snap := newTestSnapshot()
	snap.Party.LeaseType = domain.LeaseTypeCorporate

	mailedLease := uuid.New()
	pendingLease := uuid.New()
	addActiveTask(t, snap, domain.TaskSendContract, domain.CategoryContractSigning)
	snap.Tasks[0].Metadata.Leases = []uuid.UUID{mailedLease, pendingLease}
	addLease(snap, mailedLease, domain.Signature{PartyMemberID: uuid.New(), Status: domain.SignatureSent})
	addLease(snap, pendingLease, domain.Signature{PartyMemberID: uuid.New(), Status: domain.SignatureNotSent})

	addEvent(snap, domain.EventLeaseSent, domain.EventMetadata{LeaseID: mailedLease})

	tasks, err := def.CompleteTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatal("expected corporate task to stay open until every lease is mailed")
	}

	// Mail the second lease and the task settles.
	snap.Leases[1].Signatures[0].Status = domain.SignatureSent
	tasks, err = def.CompleteTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected completion once all leases mailed, got %d", len(tasks))
	}
}

func TestSendContractCancelsOnPartyClose(t *testing.T) {
	def := NewSendContract(testDeps())
	snap := newTestSnapshot()

	addActiveTask(t, snap, domain.TaskSendContract, domain.CategoryContractSigning)
	addEvent(snap, domain.EventPartyClosed, domain.EventMetadata{})

	tasks, err := def.CancelTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(tasks) != 1 || tasks[0].State != domain.TaskStateCanceled {
		t.Fatalf("expected the task canceled on close, got %v", tasks)
	}
}
