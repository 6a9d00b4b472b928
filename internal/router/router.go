package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-tasklist/internal/config"
	"go-tasklist/internal/handler"
	"go-tasklist/internal/middleware"
)

type Handlers struct {
	Auth *handler.AuthHandler
	User *handler.UserHandler
	Task *handler.TaskHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, handlers Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		// Attach a principal (or nothing) to every request; the route
		// guards below decide what anonymous may do.
		api.Use(authMiddleware.Authenticate)

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", handlers.Auth.Login)
			auth.Post("/register", handlers.Auth.Register)
			auth.Post("/refresh", handlers.Auth.Refresh)
		})

		api.Route("/users", func(users chi.Router) {
			users.Use(authMiddleware.RequireAuth)
			users.Get("/{id}", handlers.User.GetByID)
			users.Put("/{id}", handlers.User.Update)
			users.Delete("/{id}", handlers.User.Delete)
			users.Get("/{id}/tasks", handlers.User.GetTasks)
			users.Post("/{id}/tasks", handlers.User.CreateTask)
		})

		api.Route("/tasks", func(tasks chi.Router) {
			tasks.Use(authMiddleware.RequireAuth)
			tasks.Get("/{id}", handlers.Task.GetByID)
			tasks.Put("/{id}", handlers.Task.Update)
			tasks.Delete("/{id}", handlers.Task.Delete)
			tasks.Post("/{id}/image", handlers.Task.UploadImage)
		})
	})

	return r
}
