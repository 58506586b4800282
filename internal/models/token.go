package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType — маркер типа токена в claims.
// Access-токен нельзя предъявить там, где ожидается refresh, и наоборот.
type TokenType string

const (
	// TokenTypeAccess — короткоживущий токен доступа к API.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh — долгоживущий токен для выпуска новых access-токенов.
	TokenTypeRefresh TokenType = "refresh"
)

// Claims — полезная нагрузка подписанного токена.
//
// Оба вида токенов несут jti (RegisteredClaims.ID), но в блэклист
// попадают только jti refresh-токенов: access-токены stateless и
// проверяются исключительно по подписи и сроку действия.
type Claims struct {
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// BlacklistedToken — запись об отозванном refresh-токене.
//
// Ключом служит jti, сам токен не хранится. ExpiresAt равен сроку
// действия исходного токена, что позволяет удалять записи после его
// естественного истечения.
type BlacklistedToken struct {
	JTI       string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}
