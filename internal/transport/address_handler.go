package transport

import (
	"net/http"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/middleware"
	"github.com/Manoj-git-hub/ecommerce-project/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AddressHandler struct {
	addressService service.AddressService
	logger         *zap.Logger
}

func NewAddressHandler(addressService service.AddressService, logger *zap.Logger) *AddressHandler {
	return &AddressHandler{
		addressService: addressService,
		logger:         logger,
	}
}

func (h *AddressHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/addresses", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListAddresses)
		r.Post("/", h.AddAddress)
	})
}

func (h *AddressHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r, h.logger)
	if !ok {
		return
	}

	addresses, err := h.addressService.ListAddresses(r.Context(), username)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	if addresses == nil {
		addresses = []*domain.Address{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, addresses)
}

func (h *AddressHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r, h.logger)
	if !ok {
		return
	}

	var req service.AddressInput
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithBindError(w, err)
		return
	}

	address, err := h.addressService.AddAddress(r.Context(), username, req)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, address)
}
