package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/l10nmonster/lqascan/internal/config"
	"github.com/l10nmonster/lqascan/internal/session"
)

// Server is the HTTP command surface: one page session per loaded document,
// with the extraction call and the overlay commands scoped to it.
type Server struct {
	router chi.Router
	store  *session.Store
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(store *session.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store: store,
		log:   log,
		cfg:   cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/pages", s.handleCreatePage)
		r.Route("/api/pages/{pageID}", func(r chi.Router) {
			r.Use(s.withSession)
			r.Delete("/", s.handleDeletePage)
			r.Put("/content", s.handleReplaceContent)
			r.Post("/extract", s.handleExtract)
			r.Post("/viewport", s.handleViewport)
			r.Post("/keys", s.handleKeys)
			r.Get("/overlay", s.handleOverlayStatus)
			r.Post("/overlay/show", s.handleOverlayShow)
			r.Post("/overlay/remove", s.handleOverlayRemove)
			r.Post("/overlay/hide", s.handleOverlayHide)
			r.Post("/overlay/restore", s.handleOverlayRestore)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, s.store.Len())
}
