package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the HTTP surface: standard chi middleware, a public
// health check, and the authenticated workflow endpoints.
func NewRouter(handler *Handler, tokens *TokenService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/ai", func(r chi.Router) {
		r.Use(tokens.Authenticate)
		r.Post("/process-task", handler.ProcessTask)
		r.Get("/task-status/{threadID}", handler.TaskStatus)
		r.Post("/resume-task", handler.ResumeTask)
	})

	return r
}
