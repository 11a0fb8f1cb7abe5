// Package audit records task mutations to the activity log. The log is an
// observability sink: writes are fire-and-forget and never block or fail
// the mutation they describe.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/platform/logger"
)

const (
	actionTaskCreated = "TASK_CREATED"
	actionTaskUpdated = "TASK_UPDATED"
)

// Repo writes activity log entries to PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New creates a new activity log repository.
func New(pool *pgxpool.Pool, log *logger.Logger) *Repo {
	return &Repo{pool: pool, log: log}
}

// TaskCreated records a newly persisted task.
func (r *Repo) TaskCreated(ctx context.Context, task domain.Task) {
	r.write(ctx, actionTaskCreated, task)
}

// TaskUpdated records a task state or metadata transition.
func (r *Repo) TaskUpdated(ctx context.Context, task domain.Task) {
	r.write(ctx, actionTaskUpdated, task)
}

func (r *Repo) write(ctx context.Context, action string, task domain.Task) {
	details, err := json.Marshal(entryDetails{
		Name:        string(task.Name),
		Category:    string(task.Category),
		State:       string(task.State),
		UserIDs:     task.UserIDs,
		CompletedBy: task.Metadata.CompletedBy,
	})
	if err != nil {
		r.log.Error("marshal activity log details", "task_id", task.ID, "error", err)
		return
	}

	query := `
		INSERT INTO activity_log (id, party_id, task_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`

	if _, err := r.pool.Exec(ctx, query, uuid.New(), task.PartyID, task.ID, action, details); err != nil {
		r.log.Error("write activity log entry",
			"party_id", task.PartyID,
			"task_id", task.ID,
			"action", action,
			"error", err,
		)
	}
}

type entryDetails struct {
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	State       string      `json:"state"`
	UserIDs     []uuid.UUID `json:"userIds"`
	CompletedBy string      `json:"completedBy,omitempty"`
}
