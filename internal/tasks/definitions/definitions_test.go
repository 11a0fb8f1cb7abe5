package definitions

import (
	"context"
	"testing"
	"time"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/engine"

	"github.com/google/uuid"
)

// fakeRoles is an in-test engine.RoleResolver with fixed answers.
type fakeRoles struct {
	roleUsers []uuid.UUID
	owner     uuid.UUID
	err       error
}

func (f *fakeRoles) UserIDsWithFunctionalRole(ctx context.Context, partyID uuid.UUID, role string, propertyID uuid.UUID) ([]uuid.UUID, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.roleUsers, nil
}

func (f *fakeRoles) PartyOwner(ctx context.Context, partyID uuid.UUID) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.owner, nil
}

type fixedDuePolicy struct{}

func (fixedDuePolicy) GetTaskDueOffset(taskName string) time.Duration { return 24 * time.Hour }

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testDeps(roleUsers ...uuid.UUID) Deps {
	return Deps{
		Roles: &fakeRoles{roleUsers: roleUsers},
		Due:   fixedDuePolicy{},
		Now:   func() time.Time { return testTime },
	}
}

func newTestSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Party: domain.Party{
			ID:            uuid.New(),
			TenantID:      uuid.New(),
			WorkflowName:  domain.WorkflowNewLease,
			WorkflowState: domain.WorkflowStateActive,
			LeaseType:     domain.LeaseTypeTraditional,
			UserID:        uuid.New(),
		},
	}
}

func addEvent(snap *domain.Snapshot, eventType domain.EventType, metadata domain.EventMetadata) {
	snap.Events = append(snap.Events, domain.Event{
		Type:       eventType,
		Metadata:   metadata,
		OccurredAt: testTime,
	})
}

func addActiveTask(t *testing.T, snap *domain.Snapshot, name domain.TaskName, category domain.TaskCategory) domain.Task {
	t.Helper()
	task, err := domain.NewTask(name, category, snap.Party.ID, []uuid.UUID{snap.Party.UserID}, testTime.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}
	snap.Tasks = append(snap.Tasks, task)
	return task
}

func addLease(snap *domain.Snapshot, leaseID uuid.UUID, signatures ...domain.Signature) {
	snap.Leases = append(snap.Leases, domain.Lease{
		ID:         leaseID,
		PartyID:    snap.Party.ID,
		Status:     domain.LeaseStatusSubmitted,
		Signatures: signatures,
	})
}

func addApprovedPromotion(snap *domain.Snapshot, leaseID uuid.UUID) uuid.UUID {
	promoID := uuid.New()
	snap.Promotions = append(snap.Promotions, domain.Promotion{
		ID:      promoID,
		PartyID: snap.Party.ID,
		LeaseID: leaseID,
		Status:  domain.PromotionApproved,
	})
	return promoID
}

var _ engine.RoleResolver = (*fakeRoles)(nil)
