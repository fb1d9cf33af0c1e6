// Package http provides the HTTP routing, handlers and error mapping of the
// mission API.
package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/fieldops/missiond/internal/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the mission
// API. It applies panic recovery, request ids, request logging and JSON
// content-type enforcement, and protects everything under /api except the
// login endpoint with bearer-token authentication.
//
// Routes:
//
//	GET    /health                      → liveness probe
//	POST   /api/auth/login              → authHandler.Login
//	GET    /api/missions                → missionHandler.List
//	GET    /api/missions/mine           → missionHandler.ListMine
//	GET    /api/missions/{id}           → missionHandler.Get
//	POST   /api/missions                → missionHandler.Create
//	POST   /api/missions/{id}/open      → missionHandler.Open
//	POST   /api/missions/{id}/update    → missionHandler.Update
//	POST   /api/users/{id}/push-token   → userHandler.RegisterPushToken
//	DELETE /api/users/{id}/push-token   → userHandler.RemovePushToken
func NewRouter(
	authHandler *AuthHandler,
	missionHandler *MissionHandler,
	userHandler *UserHandler,
	verifier middleware.TokenVerifier,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestID)
	r.Use(middleware.WithRequestLogging(logger))
	// Only allow request bodies with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/login", authHandler.Login)

		// Protected group: requires a valid bearer token
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(verifier))

			r.Route("/missions", func(r chi.Router) {
				r.Get("/", missionHandler.List)
				r.Post("/", missionHandler.Create)
				r.Get("/mine", missionHandler.ListMine)
				r.Get("/{id}", missionHandler.Get)
				r.Post("/{id}/open", missionHandler.Open)
				r.Post("/{id}/update", missionHandler.Update)
			})

			r.Post("/users/{id}/push-token", userHandler.RegisterPushToken)
			r.Delete("/users/{id}/push-token", userHandler.RemovePushToken)
		})
	})

	return r
}
