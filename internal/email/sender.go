package email

import (
	"context"

	"leasing_crm_backend/platform/config"
)

type Sender interface {
	SendTaskAssignedEmail(ctx context.Context, toEmail, taskName, taskURL string, dueDate string) error
}

type NoopSender struct{}

func (NoopSender) SendTaskAssignedEmail(ctx context.Context, toEmail, taskName, taskURL string, dueDate string) error {
	return nil
}

func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
