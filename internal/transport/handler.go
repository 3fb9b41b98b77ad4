package transport

import (
	"net/http"

	"github.com/Manoj-git-hub/ecommerce-project/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// requireUsername returns the authenticated username or writes a 401.
func requireUsername(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	username, ok := middleware.GetUsername(r.Context())
	if !ok || username == "" {
		logger.Error("Username not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return username, true
}

// uuidParam parses the named URL parameter or writes a 400.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, "invalid "+name, map[string]interface{}{
			name: chi.URLParam(r, name),
		})
		return uuid.Nil, false
	}
	return id, true
}
