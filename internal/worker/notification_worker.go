package worker

import (
	"go.uber.org/zap"

	"github.com/ispdesk/routing-service/internal/service"
)

// StartNotificationWorker attaches the notification pipeline to the
// event stream. Delivery happens inline with event publication; this
// worker only performs the subscription wiring.
func StartNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) {
	notifications.RegisterHandlers()
	logger.Info("notification worker registered")
}
