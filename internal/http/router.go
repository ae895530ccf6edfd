package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"studybuddy/internal/handlers"
	"studybuddy/internal/ingest"
	"studybuddy/internal/rag"
	"studybuddy/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	DB          *sql.DB
	Projects    storage.ProjectStore
	Documents   storage.DocumentStore
	Chats       storage.ChatStore
	Pipeline    *ingest.Pipeline
	Engine      *rag.Engine
	VectorStore handlers.Pinger
	MaxFileSize int64
	MaxFiles    int
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	projectHandler := handlers.NewProjectHandler(deps.Projects, deps.Pipeline)
	documentHandler := handlers.NewDocumentHandler(deps.Projects, deps.Documents, deps.Pipeline, deps.MaxFileSize, deps.MaxFiles)
	chatHandler := handlers.NewChatHandler(deps.Engine, deps.Projects, deps.Documents, deps.Chats)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.VectorStore)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Post("/search", chatHandler.SearchAll)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", projectHandler.Create)
			r.Get("/", projectHandler.List)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", projectHandler.Get)
				r.Put("/", projectHandler.Update)
				r.Delete("/", projectHandler.Delete)
				r.Get("/stats", projectHandler.Stats)

				r.Route("/documents", func(r chi.Router) {
					r.Post("/upload", documentHandler.Upload)
					r.Get("/", documentHandler.List)
					r.Get("/{documentID}", documentHandler.Get)
					r.Delete("/{documentID}", documentHandler.Delete)
				})

				r.Route("/chat", func(r chi.Router) {
					r.Post("/", chatHandler.Chat)
					r.Get("/history", chatHandler.History)
					r.Post("/search", chatHandler.Search)
					r.Post("/summarize", chatHandler.Summarize)
				})
			})
		})
	})

	return r
}
