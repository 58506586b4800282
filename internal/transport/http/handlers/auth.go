package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-auth-api/internal/errors"
	"github.com/pribylovaa/go-auth-api/internal/service"
)

// RegisterRequest — тело POST /register/.
// Поле password2 — подтверждение пароля, как его присылает форма регистрации.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// LoginRequest — тело POST /login/.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest — тело POST /token/refresh/ и POST /logout/.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// Register обрабатывает регистрацию нового пользователя.
// 201 — проекция пользователя; 400 — мапа поле->сообщения.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in RegisterRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteJSON(w, http.StatusBadRequest, apierrors.Detail{
			Detail: "Malformed request body.",
		})
		return
	}

	user, err := h.service.RegisterUser(r.Context(), service.RegisterInput{
		Username:        in.Username,
		Email:           in.Email,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Password:        in.Password,
		PasswordConfirm: in.Password2,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	apierrors.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully.",
		"user":    userResponse(user),
	})
}

// Login аутентифицирует пользователя и возвращает пару токенов.
// Ответ об ошибке единый для неизвестного username и неверного пароля.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteJSON(w, http.StatusBadRequest, apierrors.Detail{
			Detail: "Malformed request body.",
		})
		return
	}

	pair, _, err := h.service.LoginUser(r.Context(), in.Username, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	apierrors.WriteJSON(w, http.StatusOK, map[string]string{
		"access":  pair.AccessToken,
		"refresh": pair.RefreshToken,
	})
}

// Logout отзывает refresh-токен (jti попадает в блэклист).
// Уже выданный access-токен остаётся действительным до собственного exp —
// это осознанная цена stateless-проверки access-токенов.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var in RefreshRequest
	if err := decodeStrict(r, &in); err != nil || in.Refresh == "" {
		apierrors.WriteJSON(w, http.StatusBadRequest, map[string][]string{
			"refresh": {"This field is required."},
		})
		return
	}

	if err := h.service.RevokeToken(r.Context(), in.Refresh); err != nil {
		// Отзыв терпим к просроченным токенам, но не к битым.
		status, body := apierrors.ToHTTP(err)
		if status == http.StatusUnauthorized {
			status = http.StatusBadRequest
		}
		apierrors.WriteJSON(w, status, body)
		return
	}

	apierrors.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Successfully logged out.",
	})
}

// Refresh выпускает новый access-токен по refresh-токену.
// Access-токен для вызова не требуется: именно так истёкшая сессия
// переавторизуется без повторного ввода пароля.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in RefreshRequest
	if err := decodeStrict(r, &in); err != nil || in.Refresh == "" {
		apierrors.WriteJSON(w, http.StatusBadRequest, map[string][]string{
			"refresh": {"This field is required."},
		})
		return
	}

	access, _, err := h.service.RefreshAccessToken(r.Context(), in.Refresh)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	apierrors.WriteJSON(w, http.StatusOK, map[string]string{
		"access": access,
	})
}
