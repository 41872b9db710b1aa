package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/hideout-backend/internal/auth"
	"github.com/heartmarshall/hideout-backend/internal/config"
	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/internal/transport/middleware"
)

type tokenValidator interface {
	ValidateAccessToken(token string) (auth.Identity, error)
}

// RouterConfig carries the cross-cutting pieces of the HTTP surface.
type RouterConfig struct {
	Logger  *slog.Logger
	Tokens  tokenValidator
	CORS    config.CORSConfig
	Limiter *middleware.RateLimiter
	// SpendPerMinute caps spend and sign-in requests per client.
	SpendPerMinute int
	Metrics        http.Handler
}

// Handlers groups the endpoint handlers.
type Handlers struct {
	Health        *HealthHandler
	Auth          *AuthHandler
	Pet           *PetHandler
	Notifications *NotificationHandler
	Announcements *AnnouncementHandler
	Teacher       *TeacherHandler
}

// NewRouter builds the HTTP router.
func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(cfg.Logger),
		middleware.Logger(cfg.Logger),
		middleware.CORS(cfg.CORS),
	)

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.Limiter != nil && cfg.SpendPerMinute > 0 {
		limit = cfg.Limiter.Limit(cfg.SpendPerMinute)
	}

	r.Get("/live", h.Health.Live)
	r.Get("/ready", h.Health.Ready)
	r.Get("/health", h.Health.Health)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/auth/login", h.Auth.Login)
			r.Post("/auth/refresh", h.Auth.Refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Tokens), middleware.RequireAuth)

			r.Get("/me", h.Pet.Me)
			r.Get("/shop/items", h.Pet.ShopItems)
			r.Put("/pet/background", h.Pet.Background)
			r.Post("/pet/degeneration-check", h.Pet.DegenerationCheck)

			r.Group(func(r chi.Router) {
				r.Use(limit)
				r.Post("/pet/feed", h.Pet.Feed)
				r.Post("/pet/items/{itemID}/purchase", h.Pet.Purchase)
				r.Post("/posts/{postID}/comment-reward", h.Pet.CommentReward)
			})

			r.Get("/notifications/stream", h.Notifications.Stream)
			r.Get("/notifications/current", h.Notifications.Current)
			r.Delete("/notifications/current", h.Notifications.Dismiss)

			r.Get("/announcements", h.Announcements.List)
			r.Post("/announcements/{id}/seen", h.Announcements.MarkSeen)
			r.Delete("/announcements/{id}/seen", h.Announcements.MarkUnseen)

			r.Post("/teachers/profile", h.Teacher.SetupProfile)
			r.With(middleware.RequireRole(domain.RoleTeacher)).
				Post("/students/{studentID}/points", h.Teacher.GrantPoints)
		})
	})

	return r
}
