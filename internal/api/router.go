package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/crisalida-app/crisalida-be/internal/api/handlers"
	"github.com/crisalida-app/crisalida-be/internal/auth"
	"github.com/crisalida-app/crisalida-be/internal/services"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	authService services.AuthServiceProvider,
	userService services.UserServiceProvider,
	tokens *auth.TokenManager,
	corsOrigin string,
	log zerolog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	respond := handlers.NewResponder(log)
	authHandler := handlers.NewAuthHandler(authService, respond, log)
	profileHandler := handlers.NewProfileHandler(userService, respond, log)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, "", map[string]string{
			"app":     "Crisálida API",
			"version": "v1",
			"status":  "running",
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)
	})

	r.Route("/profile", func(r chi.Router) {
		r.Use(auth.Middleware(tokens, log))
		r.Get("/me", profileHandler.Me)
		r.Put("/update", profileHandler.Update)
	})

	return r
}

// requestLogger logs each request through the injected logger rather than
// chi's stdlib-log middleware, so the whole pipeline shares one sink.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("Request handled")
		})
	}
}
