package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-auth-api/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/jti).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByUsername находит пользователя по username.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// BlacklistStorage выполняет операции над блэклистом отозванных refresh-токенов.
type BlacklistStorage interface {
	// BlacklistToken записывает jti отозванного токена.
	// Повторный отзыв того же jti — no-op (идемпотентность на уникальном ключе).
	BlacklistToken(ctx context.Context, token *models.BlacklistedToken) error
	// IsBlacklisted проверяет наличие jti в блэклисте.
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	// DeleteExpired удаляет записи, чьи токены уже истекли сами по себе.
	DeleteExpired(ctx context.Context, now time.Time) error
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	BlacklistStorage
	Close()
}
