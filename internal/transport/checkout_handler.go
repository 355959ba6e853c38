package transport

import (
	"errors"
	"net/http"

	"glowmarket/internal/domain"
	"glowmarket/internal/middleware"
	"glowmarket/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutRequest represents the checkout payload
type CheckoutRequest struct {
	Shipping      domain.ShippingInfo `json:"shipping" validate:"required"`
	PaymentMethod string              `json:"payment_method" validate:"required,oneof=cod card wallet"`
}

// CheckoutResponse is returned on successful checkout
type CheckoutResponse struct {
	OrderIDs []string `json:"order_ids"`
}

// CheckoutHandler handles the stock-check and checkout endpoints
type CheckoutHandler struct {
	checkout service.CheckoutService
	logger   *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkout service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, logger: logger}
}

// RegisterRoutes registers checkout routes. The rate limiter guards the
// contended commit path; the advisory stock check is a cheap read.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, authMiddleware, rateLimit func(http.Handler) http.Handler) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/stock-check", h.StockCheck)
		r.Group(func(r chi.Router) {
			if rateLimit != nil {
				r.Use(rateLimit)
			}
			r.Post("/", h.Checkout)
		})
	})
}

// StockCheck runs the advisory validator over the caller's cart
func (h *CheckoutHandler) StockCheck(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.checkout.StockCheck(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			middleware.RespondWithErrorCode(w, http.StatusBadRequest, "EMPTY_CART", "cart is empty")
			return
		}
		h.logger.Error("Stock check failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to check stock")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// Checkout turns the caller's cart into one or more orders
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orderIDs, err := h.checkout.Checkout(r.Context(), principal.UserID, req.Shipping, req.PaymentMethod)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			middleware.RespondWithErrorCode(w, http.StatusBadRequest, "EMPTY_CART", "cart is empty")
			return
		}

		var shortfall *domain.StockShortfallError
		if errors.As(err, &shortfall) {
			// Same shape as the stock-check verdict so clients reuse one
			// rendering path.
			middleware.RespondWithJSON(w, http.StatusConflict, shortfall.Result())
			return
		}

		h.logger.Error("Checkout failed",
			zap.String("user_id", principal.UserID.String()),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to complete checkout")
		return
	}

	ids := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = id.String()
	}

	middleware.RespondWithJSON(w, http.StatusCreated, CheckoutResponse{OrderIDs: ids})
}
