// Package handler assembles the HTTP routes and middleware chain.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	"github.com/unclebandit/churchcare-backend/internal/controller"
	"github.com/unclebandit/churchcare-backend/internal/metrics"
	"github.com/unclebandit/churchcare-backend/internal/middleware"
	"github.com/unclebandit/churchcare-backend/internal/response"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Controllers struct {
	Auth       *controller.AuthController
	Users      *controller.UserController
	Members    *controller.MemberController
	Messages   *controller.MessageController
	Templates  *controller.TemplateController
	Automation *controller.AutomationController
	Welfare    *controller.WelfareController
	Analytics  *controller.AnalyticsController
}

type Config struct {
	Tokens      middleware.TokenParser
	DB          Pinger
	CORSOrigins []string
	RateLimiter *middleware.RateLimiter
	Log         logrus.FieldLogger
}

func NewRouter(cfg Config, c Controllers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(chimw.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.NewCORS(cfg.CORSOrigins).Handler)

	r.Get("/healthz", health(cfg.DB))
	r.Handle("/metrics", metrics.Handler())

	authn := middleware.NewAuthenticator(cfg.Tokens, cfg.Log)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Handler)
			}
			r.Post("/register", c.Auth.Register)
			r.Post("/login", c.Auth.Login)
		})
		r.With(authn.Handler).Get("/me", c.Auth.Me)
	})

	r.Group(func(r chi.Router) {
		r.Use(authn.Handler)
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler)
		}

		r.Route("/members", func(r chi.Router) {
			r.Get("/", c.Members.List)
			r.Post("/", c.Members.Create)
			r.Get("/{id}", c.Members.Get)
			r.Put("/{id}", c.Members.Update)
			r.Delete("/{id}", c.Members.Delete)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", c.Messages.List)
			r.Post("/", c.Messages.Create)
			r.Get("/{id}", c.Messages.Get)
			r.Put("/{id}", c.Messages.Update)
			r.Delete("/{id}", c.Messages.Delete)
			r.Get("/{id}/recipients", c.Messages.Recipients)
			r.Post("/{id}/send", c.Messages.Send)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", c.Templates.List)
			r.Post("/", c.Templates.Create)
			r.Get("/{id}", c.Templates.Get)
			r.Put("/{id}", c.Templates.Update)
			r.Delete("/{id}", c.Templates.Delete)
			r.Post("/{id}/preview", c.Templates.Preview)
		})

		r.Route("/automation", func(r chi.Router) {
			r.Get("/", c.Automation.List)
			r.Post("/", c.Automation.Create)
			r.Get("/{id}", c.Automation.Get)
			r.Put("/{id}", c.Automation.Update)
			r.Delete("/{id}", c.Automation.Delete)
			r.Post("/{id}/run", c.Automation.Run)
			r.Get("/{id}/logs", c.Automation.Logs)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{id}", c.Users.Get)
			r.Put("/{id}", c.Users.Update)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(auth.PermManageUsers))
				r.Get("/", c.Users.List)
				r.Post("/", c.Users.Create)
				r.Delete("/{id}", c.Users.Delete)
				r.Put("/{id}/role", c.Users.UpdateRole)
			})
		})

		r.With(middleware.RequirePermission(auth.PermViewAnalytics)).Get("/analytics", c.Analytics.Report)

		r.Route("/welfare", func(r chi.Router) {
			r.Get("/", c.Welfare.List)
			r.Post("/", c.Welfare.Create)
			r.Get("/{id}", c.Welfare.Get)
			r.Put("/{id}", c.Welfare.Update)
			r.Delete("/{id}", c.Welfare.Delete)
			r.Patch("/{id}/status", c.Welfare.Transition)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Fail(w, http.StatusNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Fail(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})
	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "database": "ok"}
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				status["status"], status["database"] = "degraded", "unreachable"
				response.JSON(w, http.StatusServiceUnavailable, status)
				return
			}
		}
		response.JSON(w, http.StatusOK, status)
	}
}
