package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ispdesk/routing-service/internal/config"
	"github.com/ispdesk/routing-service/internal/domain"
	"github.com/ispdesk/routing-service/internal/events"
	"github.com/ispdesk/routing-service/internal/notifier"
)

// NotificationService delivers transfer events to humans through the
// notification hook. Delivery failures are logged and never surface to
// the transfer that triggered them.
type NotificationService struct {
	dispatcher events.Dispatcher
	hook       notifier.Notifier
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, hook notifier.Notifier, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		hook:       hook,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketTransferred, n.handleTicketTransferred)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
}

func (n *NotificationService) handleTicketTransferred(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketTransferredPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketTransferred",
		zap.String("ticket_id", event.TicketID),
		zap.String("ticket_kind", string(event.TicketKind)),
		zap.String("from_role", string(payload.FromRole)),
		zap.String("to_role", string(payload.ToRole)))
	n.deliver(ctx, payload.ToRole, event, string(events.EventTicketTransferred))
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketAssigned",
		zap.String("ticket_id", event.TicketID),
		zap.String("ticket_kind", string(event.TicketKind)),
		zap.String("role", string(payload.Role)))
	n.deliver(ctx, payload.Role, event, string(events.EventTicketAssigned))
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, role domain.Role, event events.Event, eventKind string) {
	if n.hook == nil {
		return
	}
	// Own deadline: the hook must never block the caller's path.
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.cfg.Timeout())
	defer cancel()

	ref := domain.TicketRef{Kind: event.TicketKind, ID: event.TicketID}
	if err := n.hook.Notify(hookCtx, role, ref, eventKind); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("role", string(role)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
