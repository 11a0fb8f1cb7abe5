// Package tasks provides the task decision engine bounded context module.
// It derives actionable work items from party events and keeps their
// lifecycle consistent as the party evolves.
package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"leasing_crm_backend/internal/audit"
	"leasing_crm_backend/internal/events"
	apphttp "leasing_crm_backend/internal/http"
	"leasing_crm_backend/internal/party/domain"
	partyrepo "leasing_crm_backend/internal/party/repository"
	"leasing_crm_backend/internal/tasks/definitions"
	"leasing_crm_backend/internal/tasks/engine"
	"leasing_crm_backend/internal/tasks/handler"
	taskrepo "leasing_crm_backend/internal/tasks/repository"
	"leasing_crm_backend/internal/tasks/service"
	usersrepo "leasing_crm_backend/internal/users/repository"
	"leasing_crm_backend/platform/config"
	"leasing_crm_backend/platform/logger"
	"leasing_crm_backend/platform/validator"
)

// Module is the task decision engine module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	dispatcher *service.Dispatcher
	registry   *engine.Registry
}

// NewModule creates and initializes the tasks module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, cfg config.EngineConfig, log *logger.Logger) (*Module, error) {
	partyRepo := partyrepo.New(pool)
	taskRepo := taskrepo.New(pool)
	auditRepo := audit.New(pool, log)
	usersRepo := usersrepo.New(pool)

	deps := definitions.Deps{
		Roles: usersRepo,
		Due:   cfg,
		Now:   time.Now,
	}
	registry, err := engine.NewRegistry(definitions.All(deps)...)
	if err != nil {
		return nil, err
	}

	dispatcher := service.NewDispatcher(
		registry,
		partyRepo,
		taskStoreAdapter{repo: taskRepo},
		usersRepo,
		taskRepo,
		auditRepo,
		bus,
		cfg,
		time.Now,
		log,
	)

	return &Module{
		handler:    handler.New(dispatcher, val),
		dispatcher: dispatcher,
		registry:   registry,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "tasks"
}

// Dispatcher returns the dispatcher for the scheduler worker.
func (m *Module) Dispatcher() *service.Dispatcher {
	return m.dispatcher
}

// Registry returns the task definition registry.
func (m *Module) Registry() *engine.Registry {
	return m.registry
}

// RegisterRoutes mounts the decision API on the service-token group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Decision.POST("/parties/:id/events", m.handler.IngestEvents)

	tasksGroup := ctx.Decision.Group("/tasks")
	tasksGroup.POST("/process", m.handler.ProcessParties)
	tasksGroup.POST("/complete", m.handler.CompleteTasks)
	tasksGroup.POST("/cancel", m.handler.CancelTasks)
	tasksGroup.POST("/cancel-category", m.handler.CancelCategory)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

// taskStoreAdapter bridges the repository's concrete InTx signature to the
// dispatcher's TaskStore port.
type taskStoreAdapter struct {
	repo *taskrepo.Repo
}

func (a taskStoreAdapter) FindActiveTasks(ctx context.Context, partyID uuid.UUID, name domain.TaskName) ([]domain.Task, error) {
	return a.repo.FindActiveTasks(ctx, partyID, name)
}

func (a taskStoreAdapter) FindActiveTasksByCategory(ctx context.Context, partyID uuid.UUID, category domain.TaskCategory) ([]domain.Task, error) {
	return a.repo.FindActiveTasksByCategory(ctx, partyID, category)
}

func (a taskStoreAdapter) SaveTask(ctx context.Context, task domain.Task) (bool, error) {
	return a.repo.SaveTask(ctx, task)
}

func (a taskStoreAdapter) BulkCancelTasks(ctx context.Context, taskIDs []uuid.UUID) ([]uuid.UUID, error) {
	canceled := domain.TaskStateCanceled
	return a.repo.BulkUpdateTasks(ctx, taskIDs, taskrepo.TaskDelta{State: &canceled})
}

func (a taskStoreAdapter) InTx(ctx context.Context, fn func(store service.TaskStore) error) error {
	return a.repo.InTx(ctx, func(txRepo *taskrepo.Repo) error {
		return fn(taskStoreAdapter{repo: txRepo})
	})
}
