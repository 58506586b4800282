package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apierrors "github.com/pribylovaa/go-auth-api/internal/errors"
	"github.com/pribylovaa/go-auth-api/internal/models"
)

// TokenVerifier — контракт проверки access-токена, реализуемый сервисом.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string, expected models.TokenType) (*models.Claims, error)
}

type ctxUserIDKey struct{}

// UserIDFrom извлекает из контекста идентификатор аутентифицированного
// пользователя, положенный мидлваром RequireAuth.
func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxUserIDKey{}).(uuid.UUID)
	return id, ok
}

// RequireAuth защищает эндпоинт: извлекает Bearer-токен из Authorization,
// проверяет его как access-токен и кладёт subject в контекст запроса.
// Проверка не ходит в БД: access-токены stateless, достаточно подписи и exp.
func RequireAuth(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				apierrors.WriteJSON(w, http.StatusUnauthorized, apierrors.Detail{
					Detail: "Authentication credentials were not provided.",
					Code:   apierrors.CodeNotAuthenticated,
				})
				return
			}

			claims, err := v.VerifyToken(r.Context(), token, models.TokenTypeAccess)
			if err != nil {
				apierrors.WriteJSON(w, http.StatusUnauthorized, apierrors.Detail{
					Detail: "Given token not valid for any token type",
					Code:   apierrors.CodeTokenNotValid,
				})
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				apierrors.WriteJSON(w, http.StatusUnauthorized, apierrors.Detail{
					Detail: "Given token not valid for any token type",
					Code:   apierrors.CodeTokenNotValid,
				})
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserIDKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) || len(auth) == len(prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}
