package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintCreated, n.handleComplaintCreated)
	n.dispatcher.Subscribe(events.EventComplaintStatusChanged, n.handleComplaintStatusChanged)
	n.dispatcher.Subscribe(events.EventComplaintResponseAttached, n.handleComplaintResponseAttached)
	n.dispatcher.Subscribe(events.EventComplaintUpdated, n.handleComplaintUpdated)
}

func (n *NotificationService) handleComplaintCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ComplaintCreated", zap.String("complaint_id", event.ComplaintID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleComplaintStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ComplaintStatusChanged", zap.String("complaint_id", event.ComplaintID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleComplaintResponseAttached(ctx context.Context, event events.Event) error {
	n.logger.Info("ComplaintResponseAttached", zap.String("complaint_id", event.ComplaintID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleComplaintUpdated(ctx context.Context, event events.Event) error {
	n.logger.Info("ComplaintUpdated", zap.String("complaint_id", event.ComplaintID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("complaint_id", event.ComplaintID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("complaint_id", event.ComplaintID),
		zap.String("event_type", string(event.Type)))
}
