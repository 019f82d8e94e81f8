package cart

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/maktba/fulfillment/internal/domain"
)

// Engine is the cart manager contract the HTTP layer depends on.
type Engine interface {
	AddToCart(ctx context.Context, userID, productID string, quantity int) (*domain.LineView, error)
	RemoveFromCart(ctx context.Context, userID, productID string) error
	ResetCart(ctx context.Context, userID string) error
	ConfirmCart(ctx context.Context, userID string) (*domain.OrderView, error)
	GetCartByUser(ctx context.Context, userID string) (*domain.CartView, error)
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

type addToCartRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	line, err := h.engine.AddToCart(r.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeEngineError(w, err, "add to cart failed", "user_id", req.UserID, "product_id", req.ProductID)
		return
	}

	h.logger.Info("cart line added", "user_id", req.UserID, "product_id", req.ProductID, "quantity", line.Quantity)
	h.writeJSON(w, http.StatusOK, line)
}

type removeFromCartRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	var req removeFromCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.RemoveFromCart(r.Context(), req.UserID, req.ProductID); err != nil {
		h.writeEngineError(w, err, "remove from cart failed", "user_id", req.UserID, "product_id", req.ProductID)
		return
	}

	h.logger.Info("cart line removed", "user_id", req.UserID, "product_id", req.ProductID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	if err := h.engine.ResetCart(r.Context(), userID); err != nil {
		h.writeEngineError(w, err, "reset cart failed", "user_id", userID)
		return
	}

	h.logger.Info("cart reset", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	order, err := h.engine.ConfirmCart(r.Context(), userID)
	if err != nil {
		h.writeEngineError(w, err, "confirm cart failed", "user_id", userID)
		return
	}

	h.logger.Info("cart confirmed", "user_id", userID, "order_id", order.OrderID, "total", order.Total)
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	cart, err := h.engine.GetCartByUser(r.Context(), userID)
	if err != nil {
		h.writeEngineError(w, err, "get cart failed", "user_id", userID)
		return
	}

	h.writeJSON(w, http.StatusOK, cart)
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
