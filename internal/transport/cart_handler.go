package transport

import (
	"net/http"

	"glowmarket/internal/domain"
	"glowmarket/internal/middleware"
	"glowmarket/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddToCartRequest represents the add-to-cart payload
type AddToCartRequest struct {
	ItemID   string `json:"item_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateCartLineRequest represents the set-quantity payload
type UpdateCartLineRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// CartHandler handles HTTP requests for cart operations
type CartHandler struct {
	carts  repository.CartRepository
	items  repository.ItemRepository
	logger *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts repository.CartRepository, items repository.ItemRepository, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, items: items, logger: logger}
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{itemID}", h.UpdateItem)
		r.Delete("/items/{itemID}", h.RemoveItem)
	})
}

// AddItem adds an item to the caller's cart, accumulating quantity on re-add
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddToCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	// Capture the current price as the advisory snapshot. Checkout re-reads
	// the catalog, so a stale snapshot never reaches an order.
	item, err := h.items.FindByID(r.Context(), itemID)
	if err != nil {
		if err == repository.ErrItemNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.Error("Failed to load item for cart add", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add item to cart")
		return
	}

	if !item.Active {
		middleware.RespondWithError(w, http.StatusConflict, "item is not available")
		return
	}

	line := &domain.CartLine{
		UserID:    principal.UserID,
		ItemID:    item.ID,
		ItemType:  item.Type,
		UnitPrice: item.Price,
		Quantity:  req.Quantity,
	}

	if err := h.carts.AddLine(r.Context(), line); err != nil {
		h.logger.Error("Failed to add cart line", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add item to cart")
		return
	}

	h.logger.Info("Item added to cart",
		zap.String("user_id", principal.UserID.String()),
		zap.String("item_id", item.ID.String()),
		zap.Int("quantity", req.Quantity),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// UpdateItem sets the quantity of an existing cart line
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	var req UpdateCartLineRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.carts.SetQuantity(r.Context(), principal.UserID, itemID, req.Quantity); err != nil {
		if err == repository.ErrCartLineNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "item not in cart")
			return
		}
		h.logger.Error("Failed to update cart line", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// RemoveItem deletes one line from the caller's cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	if err := h.carts.RemoveLine(r.Context(), principal.UserID, itemID); err != nil {
		if err == repository.ErrCartLineNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "item not in cart")
			return
		}
		h.logger.Error("Failed to remove cart line", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// GetCart returns the caller's cart lines
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cart, err := h.carts.GetCart(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("Failed to load cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// ClearCart removes every line from the caller's cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.carts.Clear(r.Context(), principal.UserID); err != nil {
		h.logger.Error("Failed to clear cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
