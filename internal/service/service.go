// service содержит бизнес-логику сервиса аутентификации:
// регистрацию/вход пользователей, выпуск/проверку/отзыв токенов
// и работу с хранилищем через интерфейсы из пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Ошибки возвращаются и далее маппятся HTTP-слоем на статусы и тела
//     ответов (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pribylovaa/go-auth-api/internal/cache"
	"github.com/pribylovaa/go-auth-api/internal/config"
	"github.com/pribylovaa/go-auth-api/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден.
	// Намеренно единая ошибка для обоих случаев, чтобы не допускать перебор
	// существующих username. HTTP: 401 с единым сообщением.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен некорректен по формату или подписи.
	// HTTP: 401, code "token_not_valid".
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк.
	// HTTP: 401, code "token_not_valid".
	ErrTokenExpired = errors.New("token expired")

	// ErrWrongTokenType — маркер token_type не совпал с ожидаемым
	// (refresh предъявлен вместо access или наоборот).
	// HTTP: 401, code "token_not_valid".
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrTokenRevoked — refresh-токен отозван (logout) и недействителен
	// независимо от срока. HTTP: 401, code "token_not_valid".
	ErrTokenRevoked = errors.New("token revoked")
)

// ValidationError — ошибка валидации входных данных регистрации/logout.
// Fields хранит сообщения по каждому невалидному полю; HTTP-слой отдаёт
// эту мапу как тело 400-ответа без изменений.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return fmt.Sprintf("validation failed: %s", strings.Join(keys, ", "))
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) empty() bool { return len(e.Fields) == 0 }

// Service описывает бизнес-логику сервиса аутентификации.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	blcache cache.BlacklistCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// SetBlacklistCache устанавливает кэш отозванных jti (опционально).
func (s *Service) SetBlacklistCache(c cache.BlacklistCache) {
	s.blcache = c
}
