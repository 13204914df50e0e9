package handler

import (
	"net/http"

	"github.com/trainerhub/schedule-assistant/internal/notify"
)

// NotificationHandler exposes the transient notification banner.
type NotificationHandler struct {
	notifier *notify.Notifier
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(notifier *notify.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// Current handles GET /api/v1/notifications/current. The message field is
// null once the banner has expired.
func (h *NotificationHandler) Current(w http.ResponseWriter, r *http.Request) {
	current := h.notifier.Current()

	var message *string
	if current != "" {
		message = &current
	}
	writeJSON(w, http.StatusOK, map[string]*string{
		"message": message,
	})
}
