package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"lemon-sso/internal/config"
	"lemon-sso/internal/handler"
	"lemon-sso/internal/middleware"
	"lemon-sso/pkg/apierror"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Services *handler.ServiceHandler
	System   *handler.SystemHandler
}

func New(cfg *config.Config, keys *middleware.APIKeyMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM, cfg.AppVersion)

	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.Recovery(cfg.AppVersion))
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeRouteError(w, cfg.AppVersion, apierror.NotFound(""))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeRouteError(w, cfg.AppVersion, apierror.New(apierror.CodeNotAllowed, "Method not allowed.", nil, http.StatusMethodNotAllowed))
	})

	r.Get("/health", h.System.Health)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout, cfg.AppVersion))

		api.Get("/echo/", h.System.Echo)

		api.Route("/registered-services", func(admin chi.Router) {
			admin.Use(keys.RequireAdmin)
			admin.Post("/", h.Services.Register)
			admin.Get("/", h.Services.List)
			admin.Delete("/{id}", h.Services.Delete)
		})

		api.Group(func(svc chi.Router) {
			svc.Use(keys.RequireService)

			svc.Route("/users", func(users chi.Router) {
				users.Post("/", h.Users.Create)
				users.Get("/", h.Users.List)
				users.Get("/{id}", h.Users.Get)
				users.Put("/{id}", h.Users.Update)
				users.Delete("/{id}", h.Users.Delete)
			})

			svc.Route("/auth", func(auth chi.Router) {
				auth.Post("/signin", h.Auth.SignIn)
				auth.Post("/signout", h.Auth.SignOut)
				auth.Post("/verify", h.Auth.Verify)
				auth.Post("/sso", h.Auth.SSO)
				auth.Post("/refresh", h.Auth.Refresh)
			})
		})
	})

	return r
}
