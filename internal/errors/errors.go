// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход он принимает ошибку доменного слоя (service), а на выход даёт:
//   - корректный HTTP-статус;
//   - стабильное тело ответа без утечки внутренних деталей.
//
// Формы тел:
//   - ошибки валидации -> 400 c мапой поле->сообщения как есть;
//   - ошибки аутентификации/токенов -> {"detail": ..., "code": ...};
//   - прочее -> 500 {"detail": "Internal server error.", "code": "internal"}.
//
// Формулировки detail намеренно повторяют то, к чему привыкли клиенты
// DRF/SimpleJWT-бэкендов, чтобы фронт не пришлось переучивать.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-auth-api/internal/service"
)

// Коды машиночитаемой обработки на фронте.
const (
	CodeTokenNotValid    = "token_not_valid"
	CodeNotAuthenticated = "not_authenticated"
	CodeInternal         = "internal"
)

// Detail — ответ об ошибке без привязки к конкретному полю.
type Detail struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// ToHTTP конвертирует ошибку доменного слоя в HTTP-статус и тело ответа.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal, чтобы не послать
//     "200 OK" с телом ошибки и не маскировать баг;
//   - *service.ValidationError — 400 с мапой поле->сообщения;
//   - ErrInvalidCredentials — 401 с единым сообщением (без указания поля);
//   - ErrInvalidToken/ErrTokenExpired/ErrWrongTokenType — 401 token_not_valid;
//   - ErrTokenRevoked — 401 token_not_valid c detail "Token is blacklisted";
//   - прочее — 500/internal (без утечки деталей).
func ToHTTP(err error) (int, any) {
	if err == nil {
		return http.StatusInternalServerError, Detail{
			Detail: "Internal server error.",
			Code:   CodeInternal,
		}
	}

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Fields
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, Detail{
			Detail: "No active account found with the given credentials",
		}
	case errors.Is(err, service.ErrTokenRevoked):
		return http.StatusUnauthorized, Detail{
			Detail: "Token is blacklisted",
			Code:   CodeTokenNotValid,
		}
	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrWrongTokenType):
		return http.StatusUnauthorized, Detail{
			Detail: "Token is invalid or expired",
			Code:   CodeTokenNotValid,
		}
	}

	return http.StatusInternalServerError, Detail{
		Detail: "Internal server error.",
		Code:   CodeInternal,
	}
}

// WriteError — хелпер для HTTP-хендлеров: пишет статус и тело по ToHTTP.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := ToHTTP(err)
	WriteJSON(w, status, body)
}

// WriteJSON — единый ответ JSON с нужным Content-Type.
func WriteJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
