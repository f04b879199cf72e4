package worker

import (
	"github.com/spec-kit/municipal-requests/internal/service"
)

// StartNotificationWorker wires the notification service into the event
// dispatcher.
func StartNotificationWorker(ns *service.NotificationService) {
	ns.RegisterHandlers()
}
