package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/FTEC-6v99/besttrade-Siyu-SG/internal/errors"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/middleware"
)

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// respondError translates an error into the JSON error envelope, mapping
// typed kinds to their status codes and everything else to a 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewInternalError("internal server error", err)
	}

	requestID := middleware.RequestIDFromContext(r.Context())
	respondJSON(w, appErr.StatusCode, apperrors.NewErrorResponse(appErr, requestID))
}
