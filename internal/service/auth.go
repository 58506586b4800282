package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-auth-api/internal/models"
	"github.com/pribylovaa/go-auth-api/internal/pkg/log"
	"github.com/pribylovaa/go-auth-api/internal/pkg/redact"
	"github.com/pribylovaa/go-auth-api/internal/storage"
)

// usernameRe — допустимые символы username: буквы, цифры, "_", "." и "-".
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// RegisterInput — входные данные регистрации.
type RegisterInput struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
}

// RegisterUser регистрирует нового пользователя.
//
// Все нарушения собираются в одну ValidationError с мапой поле->сообщения,
// включая занятость username/email; проверки уникальности выполняются только
// для синтаксически корректных значений. Гонка между предварительной проверкой
// и INSERT закрывается уникальными индексами БД: storage.ErrAlreadyExists
// также маппится в ValidationError.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "service.auth.RegisterUser"

	lg := log.From(ctx)

	ve := newValidationError()

	username := validateUsername(ve, in.Username)
	email := validateRegisterEmail(ve, in.Email)
	firstName := validateName(ve, "first_name", "First name", in.FirstName)
	lastName := validateName(ve, "last_name", "Last name", in.LastName)

	for _, msg := range validatePassword(in.Password) {
		ve.add("password", msg)
	}

	if in.Password != in.PasswordConfirm {
		ve.add("password2", msgPasswordMismatch)
	}

	if username != "" {
		if _, err := s.storage.UserByUsername(ctx, username); err == nil {
			ve.add("username", "A user with that username already exists.")
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if email != "" {
		if _, err := s.storage.UserByEmail(ctx, email); err == nil {
			ve.add("email", "A user with this email address already exists.")
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if !ve.empty() {
		return nil, fmt.Errorf("%s: %w", op, ve)
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			dup := newValidationError()
			dup.add("username", "A user with that username already exists.")
			return nil, fmt.Errorf("%s: %w", op, dup)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("username", user.Username),
		slog.String("email", redact.Email(user.Email)),
	)

	return user, nil
}

// LoginUser выполняет вход по username+пароль и выпускает пару токенов.
// Для неизвестного пользователя и неверного пароля возвращается одна и та же
// ErrInvalidCredentials, без указания, что именно не совпало.
func (s *Service) LoginUser(ctx context.Context, username, password string) (*models.TokenPair, *models.User, error) {
	const op = "service.auth.LoginUser"

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, user, nil
}

// UserByID возвращает пользователя по идентификатору (для /profile/).
func (s *Service) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "service.auth.UserByID"

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// validateUsername проверяет и нормализует username (нижний регистр).
func validateUsername(ve *ValidationError, raw string) string {
	username := strings.TrimSpace(raw)
	if username == "" {
		ve.add("username", "Username is required.")
		return ""
	}

	ok := true
	if !usernameRe.MatchString(username) {
		ve.add("username", "Username can only contain letters, numbers, underscores, hyphens, and periods.")
		ok = false
	}

	if len(username) < 3 {
		ve.add("username", "Username must be at least 3 characters long.")
		ok = false
	}

	if len(username) > 30 {
		ve.add("username", "Username cannot exceed 30 characters.")
		ok = false
	}

	if !ok {
		return ""
	}

	return strings.ToLower(username)
}

// validateRegisterEmail проверяет и нормализует email (нижний регистр).
func validateRegisterEmail(ve *ValidationError, raw string) string {
	email := strings.TrimSpace(raw)
	if email == "" {
		ve.add("email", "Email is required.")
		return ""
	}

	if _, err := mail.ParseAddress(email); err != nil {
		ve.add("email", "Please enter a valid email address.")
		return ""
	}

	return strings.ToLower(email)
}

// validateName проверяет имя/фамилию: 2–50 символов после обрезки пробелов.
// Возвращает значение с заглавной первой буквой.
func validateName(ve *ValidationError, field, label, raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		ve.add(field, label+" is required.")
		return ""
	}

	n := len([]rune(name))
	if n < 2 {
		ve.add(field, label+" must be at least 2 characters long.")
		return ""
	}

	if n > 50 {
		ve.add(field, label+" cannot exceed 50 characters.")
		return ""
	}

	return titleCase(name)
}

func titleCase(s string) string {
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}

	return string(runes)
}
