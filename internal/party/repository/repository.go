// Package repository assembles party snapshots from PostgreSQL.
package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/platform/apperr"
)

const partyNotFoundMessage = "party not found"

// Repo loads party snapshots and appends pending events.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new party repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// LoadSnapshot assembles the party's evaluation view: the party row, its
// tasks, leases with signatures, promotions, and the batch of pending
// events. Pending events are consumed atomically with the read so a second
// dispatch cycle never re-observes them.
func (r *Repo) LoadSnapshot(ctx context.Context, partyID uuid.UUID) (*domain.Snapshot, error) {
	return r.loadSnapshot(ctx, partyID, true)
}

// PeekSnapshot assembles the same view without consuming pending events.
// Sweep cycles use it: they only create time-based tasks, so events staged
// for the next event-driven dispatch must stay pending.
func (r *Repo) PeekSnapshot(ctx context.Context, partyID uuid.UUID) (*domain.Snapshot, error) {
	return r.loadSnapshot(ctx, partyID, false)
}

func (r *Repo) loadSnapshot(ctx context.Context, partyID uuid.UUID, consume bool) (*domain.Snapshot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	party, err := loadParty(ctx, tx, partyID)
	if err != nil {
		return nil, err
	}

	tasks, err := loadTasks(ctx, tx, partyID)
	if err != nil {
		return nil, err
	}

	leases, err := loadLeases(ctx, tx, partyID)
	if err != nil {
		return nil, err
	}

	promotions, err := loadPromotions(ctx, tx, partyID)
	if err != nil {
		return nil, err
	}

	events, err := pendingEvents(ctx, tx, partyID, consume)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit snapshot tx: %w", err)
	}

	return &domain.Snapshot{
		Party:      party,
		Events:     events,
		Tasks:      tasks,
		Leases:     leases,
		Promotions: promotions,
	}, nil
}

// AppendEvents stores a batch of events for the party's next dispatch cycle.
func (r *Repo) AppendEvents(ctx context.Context, partyID uuid.UUID, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append events tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO party_events (id, party_id, event_type, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`

	for _, evt := range events {
		metadata, err := json.Marshal(eventMetadataRow{
			LeaseID:            nilIfZero(evt.Metadata.LeaseID),
			QuotePromotionID:   nilIfZero(evt.Metadata.QuotePromotionID),
			EnvelopeID:         evt.Metadata.EnvelopeID,
			UserID:             nilIfZero(evt.Metadata.UserID),
			PersonID:           nilIfZero(evt.Metadata.PersonID),
			InventoryName:      evt.Metadata.InventoryName,
			HoldDepositPayer:   evt.Metadata.HoldDepositPayer,
			ApplicationStatus:  evt.Metadata.ApplicationStatus,
			ApprovalConditions: evt.Metadata.ApprovalConditions,
		})
		if err != nil {
			return fmt.Errorf("marshal event metadata: %w", err)
		}
		if _, err := tx.Exec(ctx, query, uuid.New(), partyID, string(evt.Type), metadata, evt.OccurredAt); err != nil {
			return fmt.Errorf("insert party event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append events tx: %w", err)
	}
	return nil
}

// WithPartyLock runs fn while holding a session-scoped advisory lock keyed
// on the party id. A dispatch cycle spans several statements (snapshot,
// decisions, task writes); the lock keeps concurrent worker jobs and sweeps
// from interleaving those cycles for the same party.
func (r *Repo) WithPartyLock(ctx context.Context, partyID uuid.UUID, fn func() error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire lock connection: %w", err)
	}
	defer conn.Release()

	key := advisoryLockKey(partyID)
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		return fmt.Errorf("acquire party lock: %w", err)
	}
	defer func() {
		// Release even when the surrounding context is already canceled,
		// otherwise the session keeps the lock until the connection dies.
		_, _ = conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", key)
	}()

	return fn()
}

func advisoryLockKey(partyID uuid.UUID) int64 {
	return int64(binary.BigEndian.Uint64(partyID[:8]))
}

func loadParty(ctx context.Context, tx pgx.Tx, partyID uuid.UUID) (domain.Party, error) {
	query := `
		SELECT id, tenant_id, workflow_name, workflow_state, lease_type, user_id, assigned_property_id, created_at
		FROM parties
		WHERE id = $1`

	var p domain.Party
	var workflowName, workflowState, leaseType string

	err := tx.QueryRow(ctx, query, partyID).Scan(
		&p.ID, &p.TenantID, &workflowName, &workflowState, &leaseType,
		&p.UserID, &p.AssignedPropertyID, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Party{}, apperr.NotFound(partyNotFoundMessage)
		}
		return domain.Party{}, fmt.Errorf("load party: %w", err)
	}

	p.WorkflowName = domain.WorkflowName(workflowName)
	p.WorkflowState = domain.WorkflowState(workflowState)
	p.LeaseType = domain.LeaseType(leaseType)
	return p, nil
}

func loadTasks(ctx context.Context, tx pgx.Tx, partyID uuid.UUID) ([]domain.Task, error) {
	query := `
		SELECT id, name, category, party_id, user_ids, state, due_date, completion_date,
		       metadata, created_by, original_party_owner, original_assignees, created_at, updated_at
		FROM tasks
		WHERE party_id = $1
		ORDER BY created_at ASC`

	rows, err := tx.Query(ctx, query, partyID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

func loadLeases(ctx context.Context, tx pgx.Tx, partyID uuid.UUID) ([]domain.Lease, error) {
	query := `
		SELECT l.id, l.party_id, l.status, l.end_date,
		       s.party_member_id, s.status, s.counter_signer
		FROM leases l
		LEFT JOIN lease_signatures s ON s.lease_id = l.id
		WHERE l.party_id = $1
		ORDER BY l.created_at ASC, s.created_at ASC`

	rows, err := tx.Query(ctx, query, partyID)
	if err != nil {
		return nil, fmt.Errorf("load leases: %w", err)
	}
	defer rows.Close()

	var out []domain.Lease
	index := make(map[uuid.UUID]int)

	for rows.Next() {
		var (
			lease         domain.Lease
			status        string
			memberID      *uuid.UUID
			sigStatus     *string
			counterSigner *bool
		)
		if err := rows.Scan(&lease.ID, &lease.PartyID, &status, &lease.EndDate, &memberID, &sigStatus, &counterSigner); err != nil {
			return nil, fmt.Errorf("scan lease: %w", err)
		}
		lease.Status = domain.LeaseStatus(status)

		i, seen := index[lease.ID]
		if !seen {
			out = append(out, lease)
			i = len(out) - 1
			index[lease.ID] = i
		}
		if memberID != nil && sigStatus != nil {
			sig := domain.Signature{
				PartyMemberID: *memberID,
				Status:        domain.SignatureStatus(*sigStatus),
			}
			if counterSigner != nil {
				sig.CounterSigner = *counterSigner
			}
			out[i].Signatures = append(out[i].Signatures, sig)
		}
	}
	return out, rows.Err()
}

func loadPromotions(ctx context.Context, tx pgx.Tx, partyID uuid.UUID) ([]domain.Promotion, error) {
	query := `
		SELECT id, party_id, lease_id, status
		FROM quote_promotions
		WHERE party_id = $1
		ORDER BY created_at ASC`

	rows, err := tx.Query(ctx, query, partyID)
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}
	defer rows.Close()

	var out []domain.Promotion
	for rows.Next() {
		var p domain.Promotion
		var leaseID *uuid.UUID
		var status string
		if err := rows.Scan(&p.ID, &p.PartyID, &leaseID, &status); err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		if leaseID != nil {
			p.LeaseID = *leaseID
		}
		p.Status = domain.PromotionStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

func pendingEvents(ctx context.Context, tx pgx.Tx, partyID uuid.UUID, consume bool) ([]domain.Event, error) {
	query := `
		SELECT event_type, metadata, occurred_at
		FROM party_events
		WHERE party_id = $1 AND consumed_at IS NULL
		ORDER BY occurred_at ASC`
	if consume {
		query = `
		UPDATE party_events
		SET consumed_at = NOW()
		WHERE party_id = $1 AND consumed_at IS NULL
		RETURNING event_type, metadata, occurred_at`
	}

	rows, err := tx.Query(ctx, query, partyID)
	if err != nil {
		return nil, fmt.Errorf("read pending events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var evt domain.Event
		var eventType string
		var metadata []byte
		if err := rows.Scan(&eventType, &metadata, &evt.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan party event: %w", err)
		}
		evt.Type = domain.EventType(eventType)

		var row eventMetadataRow
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &row); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
		}
		evt.Metadata = domain.EventMetadata{
			LeaseID:            zeroIfNil(row.LeaseID),
			QuotePromotionID:   zeroIfNil(row.QuotePromotionID),
			EnvelopeID:         row.EnvelopeID,
			UserID:             zeroIfNil(row.UserID),
			PersonID:           zeroIfNil(row.PersonID),
			InventoryName:      row.InventoryName,
			HoldDepositPayer:   row.HoldDepositPayer,
			ApplicationStatus:  row.ApplicationStatus,
			ApprovalConditions: row.ApprovalConditions,
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

// eventMetadataRow is the JSONB shape of event metadata.
type eventMetadataRow struct {
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

func nilIfZero(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func zeroIfNil(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
