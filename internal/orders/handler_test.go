package orders

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maktba/fulfillment/internal/domain"
)

type stubEngine struct {
	modifyOrder  func(ctx context.Context, userID, orderID string, updates map[string]int) (*domain.OrderView, error)
	prepareOrder func(ctx context.Context, orderID string) (*domain.OrderView, error)
	removeOrder  func(ctx context.Context, orderID string) error
	adminOrders  func(ctx context.Context) ([]domain.OrderView, error)
}

func (s *stubEngine) ModifyOrder(ctx context.Context, userID, orderID string, updates map[string]int) (*domain.OrderView, error) {
	return s.modifyOrder(ctx, userID, orderID, updates)
}

func (s *stubEngine) PrepareOrder(ctx context.Context, orderID string) (*domain.OrderView, error) {
	return s.prepareOrder(ctx, orderID)
}

func (s *stubEngine) RemoveOrder(ctx context.Context, orderID string) error {
	return s.removeOrder(ctx, orderID)
}

func (s *stubEngine) AdminOrders(ctx context.Context) ([]domain.OrderView, error) {
	return s.adminOrders(ctx)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMux(handler *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /orders/{id}", handler.HandleModify)
	mux.HandleFunc("GET /admin/orders", handler.HandleAdminList)
	mux.HandleFunc("POST /admin/orders/{id}/prepare", handler.HandlePrepare)
	mux.HandleFunc("DELETE /admin/orders/{id}", handler.HandleRemove)
	return mux
}

func TestHandler_HandleModify(t *testing.T) {
	t.Run("passes updates through", func(t *testing.T) {
		engine := &stubEngine{
			modifyOrder: func(_ context.Context, userID, orderID string, updates map[string]int) (*domain.OrderView, error) {
				if userID != "u-1" || orderID != "o-1" {
					t.Errorf("unexpected arguments: %s %s", userID, orderID)
				}
				if len(updates) != 1 || updates["p-1"] != 5 {
					t.Errorf("unexpected updates: %v", updates)
				}
				return &domain.OrderView{OrderID: orderID, UserID: userID, Status: domain.OrderStatusModified}, nil
			},
		}
		mux := newMux(NewHandler(engine, testLogger()))

		req := httptest.NewRequest(http.MethodPut, "/orders/o-1", strings.NewReader(`{"user_id":"u-1","updates":{"p-1":5}}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var order domain.OrderView
		if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if order.Status != domain.OrderStatusModified {
			t.Errorf("expected modified status, got %s", order.Status)
		}
	})

	t.Run("maps processed order to 409", func(t *testing.T) {
		engine := &stubEngine{
			modifyOrder: func(context.Context, string, string, map[string]int) (*domain.OrderView, error) {
				return nil, domain.InvalidTransition("o-1", "order already processed")
			},
		}
		mux := newMux(NewHandler(engine, testLogger()))

		req := httptest.NewRequest(http.MethodPut, "/orders/o-1", strings.NewReader(`{"user_id":"u-1","updates":{"p-1":5}}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rec.Code)
		}
	})

	t.Run("maps unknown order to 404", func(t *testing.T) {
		engine := &stubEngine{
			modifyOrder: func(context.Context, string, string, map[string]int) (*domain.OrderView, error) {
				return nil, domain.NotFound("order", "o-9")
			},
		}
		mux := newMux(NewHandler(engine, testLogger()))

		req := httptest.NewRequest(http.MethodPut, "/orders/o-9", strings.NewReader(`{"user_id":"u-1","updates":{"p-1":5}}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHandler_HandlePrepare(t *testing.T) {
	t.Run("returns processed order", func(t *testing.T) {
		engine := &stubEngine{
			prepareOrder: func(_ context.Context, orderID string) (*domain.OrderView, error) {
				return &domain.OrderView{OrderID: orderID, Status: domain.OrderStatusProcessed}, nil
			},
		}
		mux := newMux(NewHandler(engine, testLogger()))

		req := httptest.NewRequest(http.MethodPost, "/admin/orders/o-1/prepare", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("maps insufficient stock to 409", func(t *testing.T) {
		engine := &stubEngine{
			prepareOrder: func(context.Context, string) (*domain.OrderView, error) {
				return nil, domain.InsufficientStock("Widget")
			},
		}
		mux := newMux(NewHandler(engine, testLogger()))

		req := httptest.NewRequest(http.MethodPost, "/admin/orders/o-1/prepare", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rec.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !strings.Contains(resp["error"], "Widget") {
			t.Errorf("expected offending product in message, got %s", resp["error"])
		}
	})
}

func TestHandler_HandleRemove(t *testing.T) {
	t.Run("returns 204 on success", func(t *testing.T) {
		engine := &stubEngine{
			removeOrder: func(context.Context, string) error { return nil },
		}
		mux := newMux(NewHandler(engine, testLogger()))

		req := httptest.NewRequest(http.MethodDelete, "/admin/orders/o-1", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
	})

	t.Run("maps processed order to 409", func(t *testing.T) {
		engine := &stubEngine{
			removeOrder: func(context.Context, string) error {
				return domain.InvalidTransition("o-1", "cannot remove processed order")
			},
		}
		mux := newMux(NewHandler(engine, testLogger()))

		req := httptest.NewRequest(http.MethodDelete, "/admin/orders/o-1", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleAdminList(t *testing.T) {
	engine := &stubEngine{
		adminOrders: func(context.Context) ([]domain.OrderView, error) {
			return []domain.OrderView{
				{OrderID: "o-1", Status: domain.OrderStatusPending},
				{OrderID: "o-2", Status: domain.OrderStatusModified},
			}, nil
		},
	}
	mux := newMux(NewHandler(engine, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var orders []domain.OrderView
	if err := json.NewDecoder(rec.Body).Decode(&orders); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
}
