// Package notify implements the notification sink: every message is
// published to a JetStream stream for downstream consumers, and the most
// recent one is held as a transient banner that clears itself after a
// fixed window.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	natsclient "github.com/trainerhub/schedule-assistant/internal/nats"
	"github.com/trainerhub/schedule-assistant/pkg/logger"
	"github.com/trainerhub/schedule-assistant/pkg/metrics"
)

const (
	// StreamName is the name of the notifications stream.
	StreamName = "NOTIFICATIONS"

	// Subject is the subject notifications are published under.
	Subject = "notifications.admin"
)

// Notification is the payload published for each emitted message.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink accepts fire-and-forget notifications.
type Sink interface {
	Notify(ctx context.Context, message string)
}

// Notifier publishes notifications to JetStream and maintains the
// transient current banner.
type Notifier struct {
	client *natsclient.Client
	logger *logger.Logger
	ttl    time.Duration

	mu      sync.Mutex
	current string
	timer   *time.Timer
}

// New creates a notifier. ttl controls how long the current banner stays
// visible.
func New(client *natsclient.Client, ttl time.Duration, log *logger.Logger) *Notifier {
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	return &Notifier{
		client: client,
		logger: log,
		ttl:    ttl,
	}
}

// EnsureStream ensures the notifications stream exists.
func (n *Notifier) EnsureStream(ctx context.Context) error {
	js := n.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{"notifications.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Admin notifications emitted by the schedule assistant",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// Notify publishes the message and replaces the current banner. Publish
// failures are logged, not surfaced; notification delivery is best effort.
func (n *Notifier) Notify(ctx context.Context, message string) {
	payload := Notification{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Message:   message,
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("failed to marshal notification", zap.Error(err))
	} else if n.client != nil {
		if _, err := n.client.JetStream().Publish(ctx, Subject, data); err != nil {
			n.logger.Warn("failed to publish notification", zap.Error(err))
		}
	}

	metrics.NotificationsTotal.Inc()
	n.setCurrent(message)
}

// Current returns the banner message, or "" once it has expired.
func (n *Notifier) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *Notifier) setCurrent(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.current = message
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.ttl, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if n.current == message {
			n.current = ""
		}
	})
}
