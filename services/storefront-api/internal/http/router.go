package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"storefront-api/services/storefront-api/internal/http/handlers"
	"storefront-api/shared/pkg/metrics"
)

type Handlers struct {
	Health   *handlers.Health
	Products *handlers.Products
	Orders   *handlers.Orders
	Reviews  *handlers.Reviews
	Users    *handlers.Users

	// Identify and RequireAdmin gate PUT /users.
	Identify     func(http.Handler) http.Handler
	RequireAdmin func(http.Handler) http.Handler
}

func NewRouter(service string, log zerolog.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(log))
	r.Use(metrics.Middleware(service))
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", metrics.Handler())
	r.Method(http.MethodGet, "/health", h.Health)
	r.Get("/", handlers.Root)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.Products.List)
		r.Post("/", h.Products.Create)
		r.Get("/{id}", h.Products.Get)
		r.Delete("/{id}", h.Products.Delete)
	})

	// /orders/{x} is resolved by method only: GET reads it as an owner
	// email, PUT and DELETE as an order id. There is no GET by id.
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.Orders.List)
		r.Post("/", h.Orders.Create)
		r.Get("/{email}", h.Orders.ListByEmail)
		r.Put("/{id}", h.Orders.Ship)
		r.Delete("/{id}", h.Orders.Delete)
	})

	r.Route("/review", func(r chi.Router) {
		r.Get("/", h.Reviews.List)
		r.Post("/", h.Reviews.Create)
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.Users.Create)
		r.With(h.Identify, h.RequireAdmin).Put("/", h.Users.MakeAdmin)
		r.Get("/{email}", h.Users.AdminStatus)
	})

	return gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins([]string{"*"}),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)
}
