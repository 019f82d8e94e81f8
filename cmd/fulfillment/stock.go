package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/maktba/fulfillment/internal/catalog"
)

// handleListStock exposes the read-only catalog view used by storefront
// pages and by operators checking availability.
func handleListStock(w http.ResponseWriter, r *http.Request, products *catalog.ProductRepository, logger *slog.Logger) {
	list, err := products.ListAll(r.Context())
	if err != nil {
		logger.Error("failed to list stock", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(list); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
