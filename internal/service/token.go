package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-auth-api/internal/models"
	"github.com/pribylovaa/go-auth-api/internal/pkg/log"
)

// IssueTokens выпускает пару access+refresh токенов для пользователя.
// Состояние не пишется: refresh-токен попадает в хранилище только в момент
// отзыва (blacklist-on-revoke), а access-токен stateless по определению.
func (s *Service) IssueTokens(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "service.token.IssueTokens"

	now := time.Now().UTC()

	access, accessExp, err := s.signToken(ctx, user.ID, models.TokenTypeAccess, now, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, _, err := s.signToken(ctx, user.ID, models.TokenTypeRefresh, now, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: accessExp,
	}, nil
}

// VerifyToken проверяет подпись, срок действия и маркер типа токена.
// Для refresh-токенов дополнительно проверяется блэклист отозванных jti:
// сначала кэш (если сконфигурирован), затем БД с обратным заполнением кэша.
//
// Различимые ошибки: ErrInvalidToken (подпись/формат), ErrTokenExpired,
// ErrWrongTokenType, ErrTokenRevoked.
func (s *Service) VerifyToken(ctx context.Context, tokenStr string, expected models.TokenType) (*models.Claims, error) {
	const op = "service.token.VerifyToken"

	claims, err := s.parseToken(tokenStr, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if claims.TokenType != expected {
		return nil, fmt.Errorf("%s: %w", op, ErrWrongTokenType)
	}

	if expected == models.TokenTypeRefresh {
		if err := s.checkNotRevoked(ctx, claims); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return claims, nil
}

// RefreshAccessToken выпускает новый access-токен по валидному refresh-токену.
// Сам refresh-токен не ротируется и не отзывается: он остаётся действительным
// до естественного истечения или явного logout.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	const op = "service.token.RefreshAccessToken"

	claims, err := s.VerifyToken(ctx, refreshToken, models.TokenTypeRefresh)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	// Субъект должен существовать: токен удалённого пользователя бесполезен.
	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	now := time.Now().UTC()
	access, accessExp, err := s.signToken(ctx, user.ID, models.TokenTypeAccess, now, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return access, accessExp, nil
}

// RevokeToken отзывает refresh-токен, записывая его jti в блэклист.
// Проверка типа строгая, проверка срока — нет: просроченный токен можно
// отозвать «для порядка», запись о нём будет удалена фоновой очисткой.
// Повторный отзыв того же токена — no-op.
func (s *Service) RevokeToken(ctx context.Context, refreshToken string) error {
	const op = "service.token.RevokeToken"

	lg := log.From(ctx)

	claims, err := s.parseToken(refreshToken, true)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if claims.TokenType != models.TokenTypeRefresh {
		return fmt.Errorf("%s: %w", op, ErrWrongTokenType)
	}

	if claims.ID == "" || claims.ExpiresAt == nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	entry := &models.BlacklistedToken{
		JTI:       claims.ID,
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.storage.BlacklistToken(ctx, entry); err != nil {
		lg.Error("blacklist_insert_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.blcache != nil {
		// Ошибка кэша не фатальна: источник истины — БД.
		if err := s.blcache.Add(ctx, claims.ID, time.Until(entry.ExpiresAt)); err != nil {
			lg.Warn("blacklist_cache_add_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}

	return nil
}

// signToken подписывает токен с заданным типом и сроком действия.
func (s *Service) signToken(ctx context.Context, userID uuid.UUID, tokenType models.TokenType, now time.Time, ttl time.Duration) (string, time.Time, error) {
	const op = "service.token.signToken"

	lg := log.From(ctx)

	expiresAt := now.Add(ttl)
	claims := models.Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		lg.Error("token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, expiresAt, nil
}

// parseToken разбирает и проверяет подпись токена.
// skipExpiry отключает проверку временных claims (нужно отзыву, который
// обязан принимать и уже просроченные токены).
func (s *Service) parseToken(tokenStr string, skipExpiry bool) (*models.Claims, error) {
	const op = "service.token.parseToken"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithLeeway(5 * time.Second),
	}
	if skipExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.ParseWithClaims(tokenStr, &models.Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(s.cfg.JWTSecret), nil
		},
		opts...,
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || (!skipExpiry && !token.Valid) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

// checkNotRevoked проверяет jti refresh-токена по блэклисту.
func (s *Service) checkNotRevoked(ctx context.Context, claims *models.Claims) error {
	const op = "service.token.checkNotRevoked"

	lg := log.From(ctx)

	if claims.ID == "" {
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if s.blcache != nil {
		hit, err := s.blcache.Contains(ctx, claims.ID)
		if err != nil {
			// Деградируем до проверки по БД.
			lg.Warn("blacklist_cache_lookup_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		} else if hit {
			return fmt.Errorf("%s: %w", op, ErrTokenRevoked)
		}
	}

	revoked, err := s.storage.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		lg.Error("blacklist_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	if revoked {
		if s.blcache != nil && claims.ExpiresAt != nil {
			if err := s.blcache.Add(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
				lg.Warn("blacklist_cache_add_failed",
					slog.String("op", op),
					slog.String("err", err.Error()),
				)
			}
		}

		return fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	return nil
}
