package handlers

import (
	"errors"
	"net/http"

	apierrors "github.com/pribylovaa/go-auth-api/internal/errors"
	"github.com/pribylovaa/go-auth-api/internal/storage"
	"github.com/pribylovaa/go-auth-api/internal/transport/http/middleware"
)

// Profile возвращает публичную проекцию аутентифицированного пользователя.
// Subject берётся из контекста, куда его положил RequireAuth.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		apierrors.WriteJSON(w, http.StatusUnauthorized, apierrors.Detail{
			Detail: "Authentication credentials were not provided.",
			Code:   apierrors.CodeNotAuthenticated,
		})
		return
	}

	user, err := h.service.UserByID(r.Context(), userID)
	if err != nil {
		// Пользователь удалён после выпуска токена: токен формально валиден,
		// но субъекта больше нет.
		if errors.Is(err, storage.ErrNotFound) {
			apierrors.WriteJSON(w, http.StatusUnauthorized, apierrors.Detail{
				Detail: "User not found",
				Code:   apierrors.CodeTokenNotValid,
			})
			return
		}

		apierrors.WriteError(w, r, err)
		return
	}

	apierrors.WriteJSON(w, http.StatusOK, userResponse(user))
}
