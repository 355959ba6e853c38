package transport

import (
	"errors"
	"net/http"

	"glowmarket/internal/middleware"
	"glowmarket/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RestockRequest represents the admin restock payload
type RestockRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// RestockResponse reports the counter after a restock
type RestockResponse struct {
	ItemID string `json:"item_id"`
	Stock  int    `json:"stock"`
}

// StockHandler exposes the catalog-administration restock entry point.
// Restocks go through the same ledger discipline as checkout decrements.
type StockHandler struct {
	ledger repository.StockLedger
	logger *zap.Logger
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(ledger repository.StockLedger, logger *zap.Logger) *StockHandler {
	return &StockHandler{ledger: ledger, logger: logger}
}

// RegisterRoutes registers the admin stock routes
func (h *StockHandler) RegisterRoutes(r chi.Router, authMiddleware, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/api/admin/items", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(requireAdmin)
		r.Put("/{itemID}/stock", h.Restock)
	})
}

// Restock adds quantity to a product's available stock
func (h *StockHandler) Restock(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	var req RestockRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stock, err := h.ledger.Restock(r.Context(), itemID, req.Quantity)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to restock item", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to restock item")
		return
	}

	h.logger.Info("Item restocked",
		zap.String("item_id", itemID.String()),
		zap.Int("added", req.Quantity),
		zap.Int("stock", *stock),
	)
	middleware.RespondWithJSON(w, http.StatusOK, RestockResponse{ItemID: itemID.String(), Stock: *stock})
}
