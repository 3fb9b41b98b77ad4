package transport

import (
	"net/http"

	"github.com/Manoj-git-hub/ecommerce-project/internal/middleware"
	"github.com/Manoj-git-hub/ecommerce-project/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserProfile represents user profile data
type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// UserHandler exposes the caller's local profile.
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/me", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetProfile)
	})
}

// GetProfile returns the caller's profile, provisioning the local user row
// the first time a token for a new username is seen.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r, h.logger)
	if !ok {
		return
	}
	role, _ := middleware.GetUserRole(r.Context())

	user, err := h.userService.Provision(r.Context(), username, "", role)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, UserProfile{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	})
}
