package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/maktba/fulfillment/internal/domain"
)

// Handler turns order lifecycle events into customer notifications via the
// email service. It never touches the store: by the time an event is
// consumed the order transaction has already committed.
type Handler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *Handler {
	return &Handler{
		emailServiceURL: emailServiceURL,
		httpClient:      client,
		logger:          logger,
	}
}

func (h *Handler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("processing order created event", "order_id", event.OrderID, "user_id", event.UserID)

	body := fmt.Sprintf("We received your order of %d item(s), total %d cents. We'll let you know once it ships.",
		len(event.Items), event.Total)
	if err := h.send(ctx, event.UserID, event.OrderID, "Order received", body); err != nil {
		return fmt.Errorf("send order created notification: %w", err)
	}

	return nil
}

func (h *Handler) HandleOrderProcessed(ctx context.Context, payload []byte) error {
	var event domain.OrderProcessedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order processed event: %w", err)
	}

	h.logger.Info("processing order processed event", "order_id", event.OrderID, "user_id", event.UserID)

	if err := h.send(ctx, event.UserID, event.OrderID, "Order prepared", "Your order has been prepared and is ready for pickup."); err != nil {
		return fmt.Errorf("send order processed notification: %w", err)
	}

	return nil
}

func (h *Handler) send(ctx context.Context, userID, orderID, subject, body string) error {
	payload := map[string]string{
		"user_id":  userID,
		"order_id": orderID,
		"subject":  subject,
		"body":     body,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	url := h.emailServiceURL + "/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification for order %s: %w", orderID, err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d for order %s", resp.StatusCode, orderID)
	}

	return nil
}
