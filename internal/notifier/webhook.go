package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ispdesk/routing-service/internal/config"
	"github.com/ispdesk/routing-service/internal/domain"
)

// Notifier delivers a transfer/assignment event to a human. Delivery is
// best effort; the routing core only guarantees the inbox record.
type Notifier interface {
	Notify(ctx context.Context, role domain.Role, ref domain.TicketRef, eventKind string) error
}

// Webhook posts notification events as JSON to a configured endpoint
// (the bot gateway that turns them into chat messages).
type Webhook struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhook builds the hook client with its own short timeout so a
// slow endpoint can never block a transfer.
func NewWebhook(cfg config.NotificationConfig, logger *zap.Logger) *Webhook {
	return &Webhook{
		url:    cfg.WebhookURL,
		client: &http.Client{Timeout: cfg.Timeout()},
		logger: logger,
	}
}

type webhookPayload struct {
	Role       domain.Role       `json:"role"`
	TicketID   string            `json:"ticket_id"`
	TicketKind domain.TicketKind `json:"ticket_kind"`
	EventKind  string            `json:"event_kind"`
	SentAt     time.Time         `json:"sent_at"`
}

// Notify posts the event. An unset URL disables delivery.
func (w *Webhook) Notify(ctx context.Context, role domain.Role, ref domain.TicketRef, eventKind string) error {
	if w.url == "" {
		return nil
	}

	body, err := json.Marshal(webhookPayload{
		Role:       role,
		TicketID:   ref.ID,
		TicketKind: ref.Kind,
		EventKind:  eventKind,
		SentAt:     time.Now(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}
