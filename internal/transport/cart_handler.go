package transport

import (
	"net/http"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/middleware"
	"github.com/Manoj-git-hub/ecommerce-project/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AddItemRequest represents the add-to-cart payload. Only the upper bound is
// validated here; the cart service reports a non-positive quantity as
// INVALID_QUANTITY.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"lte=100000"`
}

// UpdateQuantityRequest sets a line's quantity; zero or less removes it.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"lte=100000"`
}

// CartResponse is a cart with its computed total.
type CartResponse struct {
	*domain.Cart
	Total decimal.Decimal `json:"total"`
}

func newCartResponse(cart *domain.Cart) CartResponse {
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return CartResponse{Cart: cart, Total: domain.CartTotalMinorUnits(cart)}
}

// CartHandler handles HTTP requests for the caller's cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{productID}", h.UpdateQuantity)
		r.Delete("/items/{productID}", h.RemoveItem)
	})
}

// GetCart returns the caller's cart, creating an empty one on first use.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r, h.logger)
	if !ok {
		return
	}

	cart, err := h.cartService.GetOrCreateCart(r.Context(), username)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r, h.logger)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add item validation failed", zap.Error(err))
		middleware.RespondWithBindError(w, err)
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product_id")
		return
	}

	item, err := h.cartService.AddItem(r.Context(), username, productID, req.Quantity)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, item)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithBindError(w, err)
		return
	}

	item, err := h.cartService.UpdateQuantity(r.Context(), username, productID, req.Quantity)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	if req.Quantity <= 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, item)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}

	if _, err := h.cartService.RemoveItem(r.Context(), username, productID); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
