package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meldeamt/internal/auth"
	"meldeamt/internal/patterns"
	"meldeamt/internal/platform/middleware"
	dErrors "meldeamt/pkg/domain-errors"
	"meldeamt/pkg/platform/httputil"
)

const requestTimeout = 30 * time.Second

// RouterDeps collects everything the router mounts beyond the case handler.
type RouterDeps struct {
	Cases    *Handler
	Auth     *auth.Service
	Patterns *patterns.Service
	Health   *HealthHandler
	Logger   *slog.Logger
}

// NewRouter assembles the full HTTP surface. The log stream sits outside the
// request timeout because it holds its connection open.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/health", deps.Health.Check)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Post("/auth/login", loginHandler(deps.Auth))
			deps.Cases.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.Auth, deps.Logger))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(requestTimeout))
				deps.Cases.AdminRoutes(r)
				r.Get("/admin/patterns", patternsHandler(deps.Patterns))
			})

			r.Get("/logs/stream", deps.Cases.StreamLogs)
		})
	})

	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func loginHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeBody(r, &req); err != nil {
			httputil.WriteError(w, err)
			return
		}
		token, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

func patternsHandler(svc *patterns.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resolutions, err := svc.List(r.Context())
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list patterns"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"patterns": resolutions})
	}
}
