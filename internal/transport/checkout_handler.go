package transport

import (
	"net/http"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/middleware"
	"github.com/Manoj-git-hub/ecommerce-project/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreatePaymentIntentRequest struct {
	AddressID string `json:"address_id" validate:"required,uuid"`
}

type ConfirmOrderRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required,max=255"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CheckoutHandler serves checkout, order history and the admin status path.
type CheckoutHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

func NewCheckoutHandler(checkoutService service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// RegisterRoutes mounts the checkout routes. limiter, when non-nil, guards the
// two checkout mutations.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, authMiddleware, limiter func(http.Handler) http.Handler) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(authMiddleware)
		if limiter != nil {
			r.Use(limiter)
		}
		r.Post("/payment-intents", h.CreatePaymentIntent)
		r.Post("/confirm", h.ConfirmOrder)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
	})

	r.Route("/api/admin/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin(h.logger))
		r.Put("/{orderID}/status", h.UpdateOrderStatus)
	})
}

func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r, h.logger)
	if !ok {
		return
	}

	var req CreatePaymentIntentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithBindError(w, err)
		return
	}

	addressID, err := uuid.Parse(req.AddressID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid address_id")
		return
	}

	handle, err := h.checkoutService.CreatePaymentIntent(r.Context(), username, addressID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, handle)
}

// ConfirmOrder is keyed by payment intent; possession of the intent id is
// what authorises the confirmation.
func (h *CheckoutHandler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	var req ConfirmOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithBindError(w, err)
		return
	}

	order, err := h.checkoutService.ConfirmOrder(r.Context(), req.PaymentIntentID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *CheckoutHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.checkoutService.ListUserOrders(r.Context(), username)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r, h.logger)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.checkoutService.GetUserOrder(r.Context(), username, orderID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *CheckoutHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "orderID")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithBindError(w, err)
		return
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	order, err := h.checkoutService.UpdateOrderStatus(r.Context(), orderID, status)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	admin, _ := middleware.GetUsername(r.Context())
	h.logger.Info("Order status updated by admin",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(order.Status)),
		zap.String("admin", admin),
	)
	middleware.RespondWithJSON(w, http.StatusOK, order)
}
