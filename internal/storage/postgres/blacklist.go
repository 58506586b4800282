package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/pribylovaa/go-auth-api/internal/models"
)

// BlacklistToken записывает jti отозванного refresh-токена.
// ON CONFLICT DO NOTHING делает повторный отзыв идемпотентным: двойной
// logout с одним токеном не является ошибкой.
func (s *Storage) BlacklistToken(ctx context.Context, token *models.BlacklistedToken) error {
	const op = "storage.postgres.BlacklistToken"

	query := `
		INSERT INTO token_blacklist(jti, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (jti) DO NOTHING
	`

	_, err := s.db.Exec(ctx, query,
		token.JTI,
		token.UserID,
		token.ExpiresAt,
		token.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// IsBlacklisted проверяет наличие jti в блэклисте.
func (s *Storage) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	const op = "storage.postgres.IsBlacklisted"

	query := `
		SELECT EXISTS(SELECT 1 FROM token_blacklist WHERE jti = $1)
	`

	var exists bool
	if err := s.db.QueryRow(ctx, query, jti).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// DeleteExpired удаляет записи о токенах, которые уже истекли сами по себе.
// Просроченный токен отбрасывается проверкой exp и без блэклиста, поэтому
// записи о нём можно не хранить.
func (s *Storage) DeleteExpired(ctx context.Context, now time.Time) error {
	const op = "storage.postgres.DeleteExpired"

	query := `
		DELETE FROM token_blacklist
		WHERE expires_at <= $1
	`

	_, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
