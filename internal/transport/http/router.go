package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-auth-api/internal/service"
	"github.com/pribylovaa/go-auth-api/internal/transport/http/handlers"
	"github.com/pribylovaa/go-auth-api/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api/auth"; если пустой — роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, svc)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, svc)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
// Пути с завершающим слэшем — контракт, на них завязаны клиенты.
func registerRoutes(r chi.Router, h *handlers.Handlers, svc *service.Service) {
	// Публичные эндпоинты.
	r.Post("/register/", h.Register)
	r.Post("/login/", h.Login)
	r.Post("/token/refresh/", h.Refresh)
	r.Get("/health/", h.Health)

	// Требуют валидный access-токен.
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(svc))
		pr.Get("/profile/", h.Profile)
		pr.Post("/logout/", h.Logout)
	})
}
