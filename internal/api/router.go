package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tutoriq/tutoriq-be/internal/api/handlers"
	"github.com/tutoriq/tutoriq-be/internal/auth"
	"github.com/tutoriq/tutoriq-be/internal/services"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Users         services.UserServiceProvider
	Profiles      services.ProfileServiceProvider
	Conversations services.ConversationServiceProvider
	Chat          services.ChatServiceProvider
	DB            handlers.Pinger
	Issuer        *auth.Issuer
}

// Options tune the HTTP surface.
type Options struct {
	AllowedOrigins []string
	StaticDir      string // empty disables static file serving
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(deps.Users, deps.Issuer)
	profileHandler := handlers.NewProfileHandler(deps.Profiles)
	chatHandler := handlers.NewChatHandler(deps.Chat)
	historyHandler := handlers.NewHistoryHandler(deps.Conversations)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.Post("/logout", userHandler.Logout)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Issuer.Middleware())

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", profileHandler.Get)
				r.Post("/update", profileHandler.Update)
			})

			r.Post("/ai/chat", chatHandler.Chat)

			r.Route("/history", func(r chi.Router) {
				r.Get("/", historyHandler.List)
				r.Delete("/all/clear", historyHandler.Clear)
				r.Get("/{id}", historyHandler.Get)
				r.Delete("/{id}", historyHandler.Delete)
			})
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Not found"}` + "\n"))
		})
	})

	if opts.StaticDir != "" {
		r.Handle("/*", staticHandler(opts.StaticDir))
	}

	return r
}

// staticHandler serves files from dir and falls back to index.html so
// client-side routes resolve.
func staticHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			http.ServeFile(w, r, name)
			return
		}

		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, index)
	}
}
