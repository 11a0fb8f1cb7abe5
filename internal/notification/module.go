// Package notification subscribes to task lifecycle events and fans out
// email notifications to assignees. Domain modules publish events and stay
// unaware of email providers or templates.
package notification

import (
	"context"
	"fmt"

	"leasing_crm_backend/internal/email"
	"leasing_crm_backend/internal/events"
	"leasing_crm_backend/platform/config"
	"leasing_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// UserEmailReader resolves user IDs to email addresses.
type UserEmailReader interface {
	UserEmails(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

type Module struct {
	sender  email.Sender
	users   UserEmailReader
	baseURL string
	log     *logger.Logger
}

func New(sender email.Sender, users UserEmailReader, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		sender:  sender,
		users:   users,
		baseURL: cfg.GetAppBaseURL(),
		log:     log,
	}
}

// RegisterHandlers subscribes to the task lifecycle events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.TaskCreated{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.TaskCreated:
		return m.handleTaskCreated(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleTaskCreated(ctx context.Context, e events.TaskCreated) error {
	emails, err := m.users.UserEmails(ctx, e.UserIDs)
	if err != nil {
		return fmt.Errorf("resolve assignee emails: %w", err)
	}

	taskURL := fmt.Sprintf("%s/parties/%s/tasks/%s", m.baseURL, e.PartyID, e.TaskID)

	for _, userID := range e.UserIDs {
		addr, ok := emails[userID]
		if !ok {
			continue
		}
		if err := m.sender.SendTaskAssignedEmail(ctx, addr, string(e.TaskName), taskURL, e.DueDate); err != nil {
			m.log.Warn("failed to send task assigned email",
				"task_id", e.TaskID, "user_id", userID, "error", err)
		}
	}

	return nil
}
