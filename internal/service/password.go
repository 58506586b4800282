package service

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Сообщения политики паролей. Формулировки стабильны: на них завязан фронт.
const (
	msgPasswordTooShort  = "This password is too short. It must contain at least 8 characters."
	msgPasswordNumeric   = "This password is entirely numeric."
	msgPasswordTooCommon = "This password is too common."
	msgPasswordMismatch  = "Passwords don't match."
)

//go:embed common_passwords.txt
var commonPasswordsRaw string

// commonPasswords — множество запрещённых «ходовых» паролей, сравнение
// регистронезависимое.
var commonPasswords = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(commonPasswordsRaw, "\n") {
		pw := strings.TrimSpace(line)
		if pw != "" {
			set[strings.ToLower(pw)] = struct{}{}
		}
	}

	return set
}()

// validatePassword проверяет пароль на минимальную стойкость:
// длина >= 8, не полностью числовой, не из списка распространённых.
// Возвращает список нарушений (пустой — пароль допустим).
func validatePassword(pw string) []string {
	var problems []string

	if len([]rune(pw)) < 8 {
		problems = append(problems, msgPasswordTooShort)
	}

	if pw != "" && isEntirelyNumeric(pw) {
		problems = append(problems, msgPasswordNumeric)
	}

	if _, ok := commonPasswords[strings.ToLower(pw)]; ok {
		problems = append(problems, msgPasswordTooCommon)
	}

	return problems
}

func isEntirelyNumeric(pw string) bool {
	for _, r := range pw {
		if !unicode.IsDigit(r) {
			return false
		}
	}

	return true
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.password.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
