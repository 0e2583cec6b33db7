package handlers

import (
	"errors"
	"net/http"

	"glammatch-backend/internal/auth"
	"glammatch-backend/internal/services"
	"glammatch-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// callerID extracts the authenticated user's ID from the request context.
// The messaging core addresses users by opaque string IDs, so the UUID is
// stringified at this boundary.
func callerID(r *http.Request) (string, bool) {
	id, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		return "", false
	}
	return id.String(), true
}

// conversationIDParam parses the {conversationID} URL parameter.
func conversationIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "conversationID"))
}

// respondServiceError maps the service error taxonomy to HTTP status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrUnauthenticated):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrUnavailable):
		httputil.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
