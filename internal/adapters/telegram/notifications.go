package telegram

import (
	"context"

	"brandpulse/internal/domain/alert"
	"brandpulse/internal/domain/approval"
	"brandpulse/pkg/logger"
	"brandpulse/pkg/templates"
)

// Sender delivers a rendered message to a chat
type Sender interface {
	SendMessageWithContext(ctx context.Context, chatID int64, text string) error
}

// NotificationService renders alert templates and sends them to the alert chat
type NotificationService struct {
	sender    Sender
	templates *templates.Registry
	chatID    int64
	log       *logger.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(sender Sender, tmpl *templates.Registry, chatID int64, log *logger.Logger) *NotificationService {
	return &NotificationService{
		sender:    sender,
		templates: tmpl,
		chatID:    chatID,
		log:       log.With("component", "telegram_notifications"),
	}
}

// NotifyCrisis sends a crisis escalation notification
func (ns *NotificationService) NotifyCrisis(ctx context.Context, e alert.Escalation) error {
	return ns.send(ctx, "alerts/crisis", e)
}

// NotifyReview sends a pending human review notification
func (ns *NotificationService) NotifyReview(ctx context.Context, req approval.ReviewRequest) error {
	return ns.send(ctx, "alerts/review", req)
}

func (ns *NotificationService) send(ctx context.Context, id string, data any) error {
	text, err := ns.templates.Render(id, data)
	if err != nil {
		ns.log.Errorw("Failed to render template", "template", id, "error", err)
		return err
	}

	return ns.sender.SendMessageWithContext(ctx, ns.chatID, text)
}
