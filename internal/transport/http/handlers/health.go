package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-auth-api/internal/errors"
)

// Health — публичный health-check эндпоинт API.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	apierrors.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "User Authentication API is running.",
	})
}
