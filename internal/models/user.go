package models

import (
	"time"

	"github.com/google/uuid"
)

// User — модель пользователя в системе.
//
// PasswordHash никогда не сериализуется наружу (json:"-") и никогда
// не передаётся в открытом виде. Username и Email хранятся в нижнем
// регистре и уникальны на уровне БД.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName возвращает полное имя пользователя.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}

	return u.FirstName + " " + u.LastName
}
