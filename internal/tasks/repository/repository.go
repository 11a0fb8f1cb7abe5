// Package repository implements the task store and the time-based
// eligibility queries with PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"leasing_crm_backend/internal/party/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same
// queries run inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo is the PostgreSQL task store.
type Repo struct {
	db   querier
	pool *pgxpool.Pool
}

// New creates a new task repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{db: pool, pool: pool}
}

// InTx runs fn against a transaction-bound copy of the repository. One
// dispatch mutation group (save-task plus audit-log) shares one call.
func (r *Repo) InTx(ctx context.Context, fn func(store *Repo) error) error {
	if r.pool == nil {
		// Already inside a transaction.
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin task tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Repo{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit task tx: %w", err)
	}
	return nil
}

// FindActiveTasks returns the party's ACTIVE tasks with the given name.
func (r *Repo) FindActiveTasks(ctx context.Context, partyID uuid.UUID, name domain.TaskName) ([]domain.Task, error) {
	query := taskSelect + `
		WHERE party_id = $1 AND name = $2 AND state = 'ACTIVE'
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, partyID, string(name))
	if err != nil {
		return nil, fmt.Errorf("find active tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// FindActiveTasksByCategory returns the party's ACTIVE tasks in a category.
func (r *Repo) FindActiveTasksByCategory(ctx context.Context, partyID uuid.UUID, category domain.TaskCategory) ([]domain.Task, error) {
	query := taskSelect + `
		WHERE party_id = $1 AND category = $2 AND state = 'ACTIVE'
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, partyID, string(category))
	if err != nil {
		return nil, fmt.Errorf("find active tasks by category: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// SaveTask persists a task. New tasks insert with their audit fields;
// existing tasks only update mutable columns, and only while still ACTIVE,
// so terminal states and audit provenance stay immutable in the store.
// Returns whether a row was actually written: false means the state guard
// rejected the update because the stored task is already terminal.
func (r *Repo) SaveTask(ctx context.Context, task domain.Task) (bool, error) {
	metadata, err := marshalTaskMetadata(task.Metadata)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO tasks (
			id, name, category, party_id, user_ids, state, due_date, completion_date,
			metadata, created_by, original_party_owner, original_assignees, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			user_ids = EXCLUDED.user_ids,
			state = EXCLUDED.state,
			due_date = EXCLUDED.due_date,
			completion_date = EXCLUDED.completion_date,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		WHERE tasks.state = 'ACTIVE'`

	tag, err := r.db.Exec(ctx, query,
		task.ID, string(task.Name), string(task.Category), task.PartyID, task.UserIDs,
		string(task.State), task.DueDate, task.CompletionDate, metadata,
		task.Audit.CreatedBy, task.Audit.OriginalPartyOwner, task.Audit.OriginalAssignees,
	)
	if err != nil {
		return false, fmt.Errorf("save task %s (%s): %w", task.ID, task.Name, err)
	}
	return tag.RowsAffected() > 0, nil
}

// TaskDelta is the partial update applied by BulkUpdateTasks.
type TaskDelta struct {
	State   *domain.TaskState
	DueDate *time.Time
	UserIDs []uuid.UUID
}

// BulkUpdateTasks applies the delta to every given task id in one
// statement and returns the ids it actually touched. Terminal tasks are
// skipped by the state guard and are absent from the result.
func (r *Repo) BulkUpdateTasks(ctx context.Context, taskIDs []uuid.UUID, delta TaskDelta) ([]uuid.UUID, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}

	query := `
		UPDATE tasks
		SET state = COALESCE($2, state),
		    due_date = COALESCE($3, due_date),
		    user_ids = COALESCE($4, user_ids),
		    completion_date = CASE WHEN $2 = 'COMPLETED' THEN NOW() ELSE completion_date END,
		    updated_at = NOW()
		WHERE id = ANY($1) AND state = 'ACTIVE'
		RETURNING id`

	var state *string
	if delta.State != nil {
		s := string(*delta.State)
		state = &s
	}

	rows, err := r.db.Query(ctx, query, taskIDs, state, delta.DueDate, delta.UserIDs)
	if err != nil {
		return nil, fmt.Errorf("bulk update tasks: %w", err)
	}
	defer rows.Close()

	var updated []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan updated task id: %w", err)
		}
		updated = append(updated, id)
	}
	return updated, rows.Err()
}

// FollowupEligibleParties returns active, non-corporate new-lease parties
// whose last communication is older than the quiet window and that have no
// open tasks at all.
func (r *Repo) FollowupEligibleParties(ctx context.Context, quietDays int) ([]uuid.UUID, error) {
	query := `
		SELECT p.id
		FROM parties p
		WHERE p.workflow_name = 'NEW_LEASE'
		  AND p.workflow_state = 'ACTIVE'
		  AND p.lease_type <> 'CORPORATE'
		  AND NOT EXISTS (
		      SELECT 1 FROM tasks t
		      WHERE t.party_id = p.id AND t.state = 'ACTIVE'
		  )
		  AND COALESCE(
		      (SELECT MAX(c.created_at) FROM communications c WHERE c.party_id = p.id),
		      p.created_at
		  ) < NOW() - ($1 * INTERVAL '1 day')
		ORDER BY p.created_at ASC`

	return r.queryPartyIDs(ctx, query, quietDays)
}

// RenewalReminderEligibleParties returns active renewal parties whose lease
// end date is exactly at one of the reminder day marks and that have no
// open renewal quote or reminder.
func (r *Repo) RenewalReminderEligibleParties(ctx context.Context, dayMarks []int) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT p.id
		FROM parties p
		JOIN leases l ON l.party_id = p.id
		WHERE p.workflow_name = 'RENEWAL'
		  AND p.workflow_state = 'ACTIVE'
		  AND l.status <> 'VOIDED'
		  AND l.end_date IS NOT NULL
		  AND date_part('day', l.end_date - NOW()) = ANY($1)
		  AND NOT EXISTS (
		      SELECT 1 FROM tasks t
		      WHERE t.party_id = p.id
		        AND t.state = 'ACTIVE'
		        AND t.name IN ('SEND_RENEWAL_REMINDER', 'SEND_RENEWAL_QUOTE')
		  )
		ORDER BY p.id`

	return r.queryPartyIDs(ctx, query, dayMarks)
}

func (r *Repo) queryPartyIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query eligible parties: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan party id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const taskSelect = `
		SELECT id, name, category, party_id, user_ids, state, due_date, completion_date,
		       metadata, created_by, original_party_owner, original_assignees, created_at, updated_at
		FROM tasks`

// taskMetadataRow is the JSONB shape of task metadata.
type taskMetadataRow struct {
	Leases             []uuid.UUID `json:"leases,omitempty"`
	CompletedBy        string      `json:"completedBy,omitempty"`
	ApprovalConditions []string    `json:"approvalConditions,omitempty"`
	InventoryName      string      `json:"inventoryName,omitempty"`
	HoldDepositPayer   string      `json:"holdDepositPayer,omitempty"`
	PersonID           *uuid.UUID  `json:"personId,omitempty"`
}

func marshalTaskMetadata(m domain.TaskMetadata) ([]byte, error) {
	var personID *uuid.UUID
	if m.PersonID != uuid.Nil {
		personID = &m.PersonID
	}
	payload, err := json.Marshal(taskMetadataRow{
		Leases:             m.Leases,
		CompletedBy:        m.CompletedBy,
		ApprovalConditions: m.ApprovalConditions,
		InventoryName:      m.InventoryName,
		HoldDepositPayer:   m.HoldDepositPayer,
		PersonID:           personID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal task metadata: %w", err)
	}
	return payload, nil
}

func scanTasks(rows pgx.Rows) ([]domain.Task, error) {
	var out []domain.Task
	for rows.Next() {
		var (
			t        domain.Task
			name     string
			category string
			state    string
			metadata []byte
		)
		err := rows.Scan(
			&t.ID, &name, &category, &t.PartyID, &t.UserIDs, &state, &t.DueDate, &t.CompletionDate,
			&metadata, &t.Audit.CreatedBy, &t.Audit.OriginalPartyOwner, &t.Audit.OriginalAssignees,
			&t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Name = domain.TaskName(name)
		t.Category = domain.TaskCategory(category)
		t.State = domain.TaskState(state)

		var row taskMetadataRow
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &row); err != nil {
				return nil, fmt.Errorf("unmarshal task metadata: %w", err)
			}
		}
		t.Metadata = domain.TaskMetadata{
			Leases:             row.Leases,
			CompletedBy:        row.CompletedBy,
			ApprovalConditions: row.ApprovalConditions,
			InventoryName:      row.InventoryName,
			HoldDepositPayer:   row.HoldDepositPayer,
		}
		if row.PersonID != nil {
			t.Metadata.PersonID = *row.PersonID
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
