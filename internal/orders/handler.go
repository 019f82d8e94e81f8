package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/maktba/fulfillment/internal/domain"
)

// Engine is the order lifecycle contract the HTTP layer depends on.
type Engine interface {
	ModifyOrder(ctx context.Context, userID, orderID string, updates map[string]int) (*domain.OrderView, error)
	PrepareOrder(ctx context.Context, orderID string) (*domain.OrderView, error)
	RemoveOrder(ctx context.Context, orderID string) error
	AdminOrders(ctx context.Context) ([]domain.OrderView, error)
}

type Handler struct {
	engine Engine
	logger *slog.Logger
}

func NewHandler(engine Engine, logger *slog.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

type modifyOrderRequest struct {
	UserID  string         `json:"user_id"`
	Updates map[string]int `json:"updates"`
}

func (h *Handler) HandleModify(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	if orderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req modifyOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.engine.ModifyOrder(r.Context(), req.UserID, orderID, req.Updates)
	if err != nil {
		h.writeEngineError(w, err, "modify order failed", "order_id", orderID, "user_id", req.UserID)
		return
	}

	h.logger.Info("order modified", "order_id", order.OrderID, "user_id", order.UserID, "total", order.Total)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandlePrepare(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	if orderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.engine.PrepareOrder(r.Context(), orderID)
	if err != nil {
		h.writeEngineError(w, err, "prepare order failed", "order_id", orderID)
		return
	}

	h.logger.Info("order processed", "order_id", order.OrderID, "user_id", order.UserID)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	if orderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	if err := h.engine.RemoveOrder(r.Context(), orderID); err != nil {
		h.writeEngineError(w, err, "remove order failed", "order_id", orderID)
		return
	}

	h.logger.Info("order removed", "order_id", orderID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.engine.AdminOrders(r.Context())
	if err != nil {
		h.writeEngineError(w, err, "list admin orders failed")
		return
	}

	h.logger.Info("admin orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

// writeEngineError maps the business error kinds to status codes; anything
// without a kind is an internal failure and gets a generic 500.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error, msg string, args ...any) {
	kind, ok := domain.KindOf(err)
	if !ok {
		h.logger.Error(msg, append(args, "error", err)...)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch kind {
	case domain.ErrNotFound:
		h.writeError(w, http.StatusNotFound, err.Error())
	case domain.ErrInvalidInput:
		h.writeError(w, http.StatusBadRequest, err.Error())
	case domain.ErrInsufficientStock:
		h.writeError(w, http.StatusConflict, err.Error())
	case domain.ErrInvalidTransition:
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(msg, append(args, "error", err)...)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
