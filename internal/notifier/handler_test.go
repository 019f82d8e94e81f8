package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/maktba/fulfillment/internal/domain"
)

type emailCapture struct {
	mu       sync.Mutex
	requests []map[string]string
	status   int
}

func (e *emailCapture) handler(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	status := e.status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `{"status":"sent"}`)
}

func (e *emailCapture) getRequests() []map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]map[string]string, len(e.requests))
	copy(result, e.requests)
	return result
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleOrderCreated(t *testing.T) {
	capture := &emailCapture{}
	server := httptest.NewServer(http.HandlerFunc(capture.handler))
	defer server.Close()

	handler := NewHandler(server.URL, server.Client(), testLogger())

	event := domain.OrderCreatedEvent{
		OrderID: "o-1",
		UserID:  "u-1",
		Items: []domain.OrderItem{
			{ProductID: "p-1", Quantity: 2},
		},
		Total:     2000,
		Timestamp: time.Now().UTC(),
	}
	payload, _ := json.Marshal(event)

	if err := handler.HandleOrderCreated(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	requests := capture.getRequests()
	if len(requests) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(requests))
	}
	if requests[0]["user_id"] != "u-1" {
		t.Errorf("expected user u-1, got %s", requests[0]["user_id"])
	}
	if requests[0]["order_id"] != "o-1" {
		t.Errorf("expected order o-1, got %s", requests[0]["order_id"])
	}
	if requests[0]["subject"] != "Order received" {
		t.Errorf("unexpected subject: %s", requests[0]["subject"])
	}
}

func TestHandleOrderProcessed(t *testing.T) {
	capture := &emailCapture{}
	server := httptest.NewServer(http.HandlerFunc(capture.handler))
	defer server.Close()

	handler := NewHandler(server.URL, server.Client(), testLogger())

	event := domain.OrderProcessedEvent{
		OrderID:   "o-2",
		UserID:    "u-2",
		Timestamp: time.Now().UTC(),
	}
	payload, _ := json.Marshal(event)

	if err := handler.HandleOrderProcessed(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	requests := capture.getRequests()
	if len(requests) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(requests))
	}
	if requests[0]["subject"] != "Order prepared" {
		t.Errorf("unexpected subject: %s", requests[0]["subject"])
	}
}

func TestHandleOrderCreated_EmailServiceDown(t *testing.T) {
	capture := &emailCapture{status: http.StatusInternalServerError}
	server := httptest.NewServer(http.HandlerFunc(capture.handler))
	defer server.Close()

	handler := NewHandler(server.URL, server.Client(), testLogger())

	payload, _ := json.Marshal(domain.OrderCreatedEvent{OrderID: "o-3", UserID: "u-3"})

	if err := handler.HandleOrderCreated(context.Background(), payload); err == nil {
		t.Fatal("expected an error when the email service fails")
	}
}

func TestHandleOrderCreated_MalformedPayload(t *testing.T) {
	handler := NewHandler("http://unused", http.DefaultClient, testLogger())

	if err := handler.HandleOrderCreated(context.Background(), []byte(`{`)); err == nil {
		t.Fatal("expected an error for malformed payload")
	}
}
