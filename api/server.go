/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. zerolog:    Structured request logging
  4. CORS:       Cross-origin requests for dashboards/tools

ROUTE GROUPS:
  /healthz          Liveness probe
  /api/items/*      Content catalog + grant operations
  /api/redeem       Code redemption
  /api/users/*      Balances, journal, owned items, grants

SECURITY NOTE:
  The trusted messaging gateway in front of this service authenticates
  users; there is no authentication middleware here.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", h.Healthz)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Item routes
		r.Route("/items", func(r chi.Router) {
			r.Post("/", h.CreateItem)
			r.Get("/{id}", h.GetItem)
			r.Put("/{id}/price", h.SetPrice)
			r.Get("/{id}/access", h.CheckAccess)
			r.Post("/{id}/grant-free", h.GrantFree)
			r.Post("/{id}/purchase", h.Purchase)
			r.Post("/{id}/codes", h.IssueCode)
		})

		// Redemption
		r.Post("/redeem", h.Redeem)

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/{id}/balance", h.GetBalance)
			r.Post("/{id}/credit", h.Credit)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Get("/{id}/items", h.ListUserItems)
			r.Get("/{id}/grants", h.ListUserGrants)
		})
	})

	return r
}

// requestLogger emits one structured log line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
