package definitions

import (
	"context"
	"testing"

	"leasing_crm_backend/internal/party/domain"

	"github.com/google/uuid"
)

func TestReviewApplicationLifecycle(t *testing.T) {
	def := NewReviewApplication(testDeps())

	t.Run("creates on submitted application", func(t *testing.T) {
		snap := newTestSnapshot()
		addEvent(snap, domain.EventApplicationStatusUpdated, domain.EventMetadata{ApplicationStatus: domain.ApplicationStatusSubmitted})

		tasks, err := def.CreateTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(tasks) != 1 || tasks[0].Name != domain.TaskReviewApplication {
			t.Fatalf("expected one REVIEW_APPLICATION task, got %v", tasks)
		}
	})

	t.Run("blocks corporate parties", func(t *testing.T) {
		snap := newTestSnapshot()
		snap.Party.LeaseType = domain.LeaseTypeCorporate
		addEvent(snap, domain.EventApplicationStatusUpdated, domain.EventMetadata{ApplicationStatus: domain.ApplicationStatusSubmitted})

		tasks, err := def.CreateTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(tasks) != 0 {
			t.Fatal("expected no screening task for corporate parties")
		}
	})

	t.Run("suppressed by existing active task", func(t *testing.T) {
		snap := newTestSnapshot()
		addActiveTask(t, snap, domain.TaskReviewApplication, domain.CategoryApplicationApproval)
		addEvent(snap, domain.EventApplicationStatusUpdated, domain.EventMetadata{ApplicationStatus: domain.ApplicationStatusScreeningComplete})

		tasks, err := def.CreateTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(tasks) != 0 {
			t.Fatal("expected no duplicate task")
		}
	})

	t.Run("completes on final decision", func(t *testing.T) {
		snap := newTestSnapshot()
		addActiveTask(t, snap, domain.TaskReviewApplication, domain.CategoryApplicationApproval)
		actor := uuid.New()
		addEvent(snap, domain.EventApplicationStatusUpdated, domain.EventMetadata{ApplicationStatus: domain.ApplicationStatusApproved, UserID: actor})

		tasks, err := def.CompleteTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if len(tasks) != 1 || tasks[0].State != domain.TaskStateCompleted {
			t.Fatalf("expected completion, got %v", tasks)
		}
		if tasks[0].Metadata.CompletedBy != actor.String() {
			t.Fatalf("expected completed-by to record actor, got %q", tasks[0].Metadata.CompletedBy)
		}
	})

	t.Run("completes on approved promotion", func(t *testing.T) {
		snap := newTestSnapshot()
		addActiveTask(t, snap, domain.TaskReviewApplication, domain.CategoryApplicationApproval)
		promoID := addApprovedPromotion(snap, uuid.New())
		addEvent(snap, domain.EventQuotePromotionUpdated, domain.EventMetadata{QuotePromotionID: promoID})

		tasks, err := def.CompleteTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if len(tasks) != 1 {
			t.Fatalf("expected completion via promotion, got %d", len(tasks))
		}
	})

	t.Run("cancels on voided application", func(t *testing.T) {
		snap := newTestSnapshot()
		addActiveTask(t, snap, domain.TaskReviewApplication, domain.CategoryApplicationApproval)
		addEvent(snap, domain.EventApplicationStatusUpdated, domain.EventMetadata{ApplicationStatus: domain.ApplicationStatusVoided})

		tasks, err := def.CancelTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if len(tasks) != 1 || tasks[0].State != domain.TaskStateCanceled {
			t.Fatalf("expected cancellation, got %v", tasks)
		}
	})
}

func TestNotifyConditionalApprovalCarriesConditions(t *testing.T) {
	def := NewNotifyConditionalApproval(testDeps())
	snap := newTestSnapshot()
	conditions := []string{"higher deposit", "co-signer"}
	addEvent(snap, domain.EventApplicationStatusUpdated, domain.EventMetadata{
		ApplicationStatus:  domain.ApplicationStatusConditionalApproval,
		ApprovalConditions: conditions,
	})

	tasks, err := def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if len(tasks[0].Metadata.ApprovalConditions) != 2 {
		t.Fatalf("expected conditions in metadata, got %v", tasks[0].Metadata.ApprovalConditions)
	}
}

func TestContactPartyDeclinedDecisionLifecycle(t *testing.T) {
	def := NewContactPartyDeclinedDecision(testDeps())

	snap := newTestSnapshot()
	addEvent(snap, domain.EventApplicationStatusUpdated, domain.EventMetadata{ApplicationStatus: domain.ApplicationStatusDenied})

	tasks, err := def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected task on denied application, got %d", len(tasks))
	}

	snap = newTestSnapshot()
	addActiveTask(t, snap, domain.TaskContactPartyDeclinedDecision, domain.CategoryApplicationApproval)
	addEvent(snap, domain.EventCommunicationSent, domain.EventMetadata{UserID: uuid.New()})

	tasks, err = def.CompleteTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(tasks) != 1 || tasks[0].State != domain.TaskStateCompleted {
		t.Fatalf("expected completion on outreach, got %v", tasks)
	}
}

func TestHoldInventoryLifecycle(t *testing.T) {
	def := NewHoldInventory(testDeps())

	snap := newTestSnapshot()
	snap.Party.LeaseType = domain.LeaseTypeCorporate
	addEvent(snap, domain.EventHoldInventoryRequested, domain.EventMetadata{
		InventoryName:    "Unit 4B",
		HoldDepositPayer: "applicant",
	})

	tasks, err := def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected hold task on corporate party, got %d", len(tasks))
	}
	if tasks[0].Metadata.InventoryName != "Unit 4B" || tasks[0].Metadata.HoldDepositPayer != "applicant" {
		t.Fatalf("expected inventory details in metadata, got %+v", tasks[0].Metadata)
	}

	snap = newTestSnapshot()
	addActiveTask(t, snap, domain.TaskHoldInventory, domain.CategoryParty)
	addEvent(snap, domain.EventInventoryHeld, domain.EventMetadata{})

	tasks, err = def.CompleteTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(tasks) != 1 || tasks[0].State != domain.TaskStateCompleted {
		t.Fatalf("expected completion on INVENTORY_HELD, got %v", tasks)
	}

	snap = newTestSnapshot()
	addActiveTask(t, snap, domain.TaskHoldInventory, domain.CategoryParty)
	addEvent(snap, domain.EventInventoryReleased, domain.EventMetadata{})

	tasks, err = def.CancelTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(tasks) != 1 || tasks[0].State != domain.TaskStateCanceled {
		t.Fatalf("expected cancellation on INVENTORY_RELEASED, got %v", tasks)
	}
}

func TestIntroduceYourselfLifecycle(t *testing.T) {
	def := NewIntroduceYourself(testDeps())

	t.Run("creates for new-lease party", func(t *testing.T) {
		snap := newTestSnapshot()
		addEvent(snap, domain.EventPartyCreated, domain.EventMetadata{})

		tasks, err := def.CreateTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(tasks) != 1 {
			t.Fatalf("expected 1 task, got %d", len(tasks))
		}
		if len(tasks[0].UserIDs) != 1 || tasks[0].UserIDs[0] != snap.Party.UserID {
			t.Fatalf("expected owner as sole assignee, got %v", tasks[0].UserIDs)
		}
	})

	t.Run("skips renewal workflow", func(t *testing.T) {
		snap := newTestSnapshot()
		snap.Party.WorkflowName = domain.WorkflowRenewal
		addEvent(snap, domain.EventPartyCreated, domain.EventMetadata{})

		tasks, err := def.CreateTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(tasks) != 0 {
			t.Fatal("expected no task outside NEW_LEASE workflow")
		}
	})

	t.Run("completes only on owner outreach", func(t *testing.T) {
		snap := newTestSnapshot()
		addActiveTask(t, snap, domain.TaskIntroduceYourself, domain.CategoryParty)
		addEvent(snap, domain.EventCommunicationSent, domain.EventMetadata{UserID: uuid.New()})

		tasks, err := def.CompleteTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if len(tasks) != 0 {
			t.Fatal("expected outreach by another user to be ignored")
		}

		addEvent(snap, domain.EventCommunicationSent, domain.EventMetadata{UserID: snap.Party.UserID})
		tasks, err = def.CompleteTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if len(tasks) != 1 || tasks[0].State != domain.TaskStateCompleted {
			t.Fatalf("expected completion on owner outreach, got %v", tasks)
		}
	})

	t.Run("cancels on archive even though create is blocked", func(t *testing.T) {
		snap := newTestSnapshot()
		snap.Party.WorkflowState = domain.WorkflowStateArchived
		addActiveTask(t, snap, domain.TaskIntroduceYourself, domain.CategoryParty)
		addEvent(snap, domain.EventPartyArchived, domain.EventMetadata{})

		tasks, err := def.CancelTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if len(tasks) != 1 || tasks[0].State != domain.TaskStateCanceled {
			t.Fatalf("expected cancellation on archived party, got %v", tasks)
		}
	})
}

func TestCompleteContactInfoMatchesPerson(t *testing.T) {
	def := NewCompleteContactInfo(testDeps())
	personID := uuid.New()

	snap := newTestSnapshot()
	addEvent(snap, domain.EventPartyCreated, domain.EventMetadata{PersonID: personID})

	tasks, err := def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Metadata.PersonID != personID {
		t.Fatalf("expected task tracking person %s, got %v", personID, tasks)
	}

	snap = newTestSnapshot()
	addActiveTask(t, snap, domain.TaskCompleteContactInfo, domain.CategoryRequireWork)
	snap.Tasks[0].Metadata.PersonID = personID
	addEvent(snap, domain.EventContactInfoAdded, domain.EventMetadata{PersonID: uuid.New()})

	tasks, err = def.CompleteTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatal("expected contact info for another person to be ignored")
	}

	addEvent(snap, domain.EventContactInfoAdded, domain.EventMetadata{PersonID: personID})
	tasks, err = def.CompleteTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(tasks) != 1 || tasks[0].State != domain.TaskStateCompleted {
		t.Fatalf("expected completion for matching person, got %v", tasks)
	}
	if tasks[0].Metadata.CompletedBy != domain.CompletedBySystem {
		t.Fatalf("expected system completion, got %q", tasks[0].Metadata.CompletedBy)
	}
}

func TestCountersignLeasePerLeaseLifecycle(t *testing.T) {
	roleUser := uuid.New()
	def := NewCountersignLease(testDeps(roleUser))

	t.Run("creates once per fully signed lease", func(t *testing.T) {
		snap := newTestSnapshot()
		leaseID := uuid.New()
		addLease(snap, leaseID,
			domain.Signature{PartyMemberID: uuid.New(), Status: domain.SignatureSigned},
			domain.Signature{PartyMemberID: uuid.New(), Status: domain.SignatureWetSigned},
		)
		addEvent(snap, domain.EventLeaseSigned, domain.EventMetadata{LeaseID: leaseID})

		tasks, err := def.CreateTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(tasks) != 1 {
			t.Fatalf("expected 1 task, got %d", len(tasks))
		}
		if !tasks[0].Metadata.HasLease(leaseID) {
			t.Fatal("expected task to track the lease")
		}
		if len(tasks[0].UserIDs) != 1 || tasks[0].UserIDs[0] != roleUser {
			t.Fatalf("expected role users only as assignees, got %v", tasks[0].UserIDs)
		}
	})

	t.Run("skips lease with unsigned member", func(t *testing.T) {
		snap := newTestSnapshot()
		leaseID := uuid.New()
		addLease(snap, leaseID,
			domain.Signature{PartyMemberID: uuid.New(), Status: domain.SignatureSigned},
			domain.Signature{PartyMemberID: uuid.New(), Status: domain.SignatureSent},
		)
		addEvent(snap, domain.EventLeaseSigned, domain.EventMetadata{LeaseID: leaseID})

		tasks, err := def.CreateTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(tasks) != 0 {
			t.Fatal("expected no task while a member has not signed")
		}
	})

	t.Run("suppressed by existing task for the lease", func(t *testing.T) {
		snap := newTestSnapshot()
		leaseID := uuid.New()
		addLease(snap, leaseID, domain.Signature{PartyMemberID: uuid.New(), Status: domain.SignatureSigned})
		addActiveTask(t, snap, domain.TaskCountersignLease, domain.CategoryContractSigning)
		snap.Tasks[0].Metadata.Leases = []uuid.UUID{leaseID}
		addEvent(snap, domain.EventLeaseSigned, domain.EventMetadata{LeaseID: leaseID})

		tasks, err := def.CreateTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(tasks) != 0 {
			t.Fatal("expected no duplicate per-lease task")
		}
	})

	t.Run("completes only the matching lease task", func(t *testing.T) {
		snap := newTestSnapshot()
		leaseA, leaseB := uuid.New(), uuid.New()
		addActiveTask(t, snap, domain.TaskCountersignLease, domain.CategoryContractSigning)
		snap.Tasks[0].Metadata.Leases = []uuid.UUID{leaseA}
		addActiveTask(t, snap, domain.TaskCountersignLease, domain.CategoryContractSigning)
		snap.Tasks[1].Metadata.Leases = []uuid.UUID{leaseB}
		addEvent(snap, domain.EventLeaseCountersigned, domain.EventMetadata{LeaseID: leaseA})

		tasks, err := def.CompleteTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if len(tasks) != 1 || !tasks[0].Metadata.HasLease(leaseA) {
			t.Fatalf("expected only the lease A task to complete, got %v", tasks)
		}
	})

	t.Run("cancels on voided lease", func(t *testing.T) {
		snap := newTestSnapshot()
		leaseID := uuid.New()
		addActiveTask(t, snap, domain.TaskCountersignLease, domain.CategoryContractSigning)
		snap.Tasks[0].Metadata.Leases = []uuid.UUID{leaseID}
		addEvent(snap, domain.EventLeaseVoided, domain.EventMetadata{LeaseID: leaseID})

		tasks, err := def.CancelTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if len(tasks) != 1 || tasks[0].State != domain.TaskStateCanceled {
			t.Fatalf("expected cancellation, got %v", tasks)
		}
	})
}

func TestFollowupPartyCreateRequiresNoOpenWork(t *testing.T) {
	def := NewFollowupParty(testDeps())

	snap := newTestSnapshot()
	tasks, err := def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Name != domain.TaskFollowupParty {
		t.Fatalf("expected followup task on idle party, got %v", tasks)
	}

	snap = newTestSnapshot()
	addActiveTask(t, snap, domain.TaskIntroduceYourself, domain.CategoryParty)
	tasks, err = def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatal("expected any open task to suppress followup")
	}

	snap = newTestSnapshot()
	snap.Party.WorkflowName = domain.WorkflowRenewal
	tasks, err = def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatal("expected no followup outside NEW_LEASE workflow")
	}
}

func TestFollowupPartyCompletesOnAnyActivity(t *testing.T) {
	def := NewFollowupParty(testDeps())

	for _, eventType := range []domain.EventType{
		domain.EventCommunicationSent,
		domain.EventCommunicationReceived,
		domain.EventAppointmentCompleted,
	} {
		snap := newTestSnapshot()
		addActiveTask(t, snap, domain.TaskFollowupParty, domain.CategoryInactive)
		addEvent(snap, eventType, domain.EventMetadata{})

		tasks, err := def.CompleteTasks(context.Background(), snap)
		if err != nil {
			t.Fatalf("%s: complete: %v", eventType, err)
		}
		if len(tasks) != 1 || tasks[0].State != domain.TaskStateCompleted {
			t.Fatalf("%s: expected completion, got %v", eventType, tasks)
		}
	}
}

func TestSendRenewalReminderSuppression(t *testing.T) {
	def := NewSendRenewalReminder(testDeps())

	snap := newTestSnapshot()
	snap.Party.WorkflowName = domain.WorkflowRenewal
	tasks, err := def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected reminder for renewal party, got %d", len(tasks))
	}

	// An open renewal quote task means the conversation already started.
	snap = newTestSnapshot()
	snap.Party.WorkflowName = domain.WorkflowRenewal
	addActiveTask(t, snap, domain.TaskSendRenewalQuote, domain.CategoryManual)
	tasks, err = def.CreateTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatal("expected open renewal quote to suppress the reminder")
	}

	snap = newTestSnapshot()
	snap.Party.WorkflowName = domain.WorkflowRenewal
	addActiveTask(t, snap, domain.TaskSendRenewalReminder, domain.CategoryInactive)
	addEvent(snap, domain.EventQuoteSent, domain.EventMetadata{UserID: uuid.New()})

	tasks, err = def.CompleteTasks(context.Background(), snap)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(tasks) != 1 || tasks[0].State != domain.TaskStateCompleted {
		t.Fatalf("expected completion on QUOTE_SENT, got %v", tasks)
	}
}
