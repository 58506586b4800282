// handlers содержит HTTP-эндпоинты сервиса аутентификации.
// Здесь выполняется только разбор запросов и маппинг данных/ошибок
// доменного слоя (service) в JSON-ответы; вся валидация и бизнес-логика
// находятся в пакете service.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pribylovaa/go-auth-api/internal/models"
	"github.com/pribylovaa/go-auth-api/internal/service"
)

// Handlers агрегирует зависимости эндпоинтов.
type Handlers struct {
	service *service.Service
}

func New(s *service.Service) *Handlers {
	return &Handlers{service: s}
}

// UserResponse — публичная проекция пользователя.
// Хэш пароля в проекцию не попадает никогда.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
