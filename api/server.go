/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /health                                  Liveness (public)
  /api/v1/users/*                          Register and login (public)
  /api/v1/daily-expenses/*                 Entries (authenticated)
  /api/v1/monthly-categorical-expenses/*   Budgets (authenticated)
  /api/v1/parent-categories/*              Categories (authenticated)
  /api/v1/incomes/*                        Incomes (authenticated)

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Token authentication
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/homebudget/budget-engine/auth"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Tokens      *auth.Issuer
	CORSOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(opts.Tokens))

			r.Route("/daily-expenses", func(r chi.Router) {
				r.Post("/", h.CreateEntry)
				r.Get("/", h.ListEntries)
				r.Patch("/{id}", h.UpdateEntry)
				r.Delete("/{id}", h.DeleteEntry)
			})

			// {key} is a month token on GET and a budget id otherwise.
			r.Route("/monthly-categorical-expenses", func(r chi.Router) {
				r.Post("/", h.CreateBudget)
				r.Get("/{key}", h.ListBudgets)
				r.Get("/{key}/selectable", h.SelectableBudgets)
				r.Patch("/{key}", h.UpdateBudget)
				r.Patch("/{key}/selectable", h.SetSelectable)
				r.Delete("/{key}", h.DeleteBudget)
			})

			r.Route("/parent-categories", func(r chi.Router) {
				r.Post("/", h.CreateCategory)
				r.Get("/", h.ListCategories)
				r.Delete("/{id}", h.DeleteCategory)
			})

			r.Route("/incomes", func(r chi.Router) {
				r.Post("/", h.CreateIncome)
				r.Get("/", h.ListIncomes)
				r.Patch("/{id}", h.UpdateIncome)
				r.Delete("/{id}", h.DeleteIncome)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})

	return r
}
