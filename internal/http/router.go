package http

import (
	"context"
	"net/http"
	"time"

	"github.com/beautivra/storefront/internal/api"
	"github.com/beautivra/storefront/internal/cart"
	"github.com/beautivra/storefront/internal/confirmation"
	"github.com/beautivra/storefront/internal/domain"
	"github.com/beautivra/storefront/internal/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/shopspring/decimal"
)

// Backend is everything the storefront asks of the shop backend.
// *api.Client implements it.
type Backend interface {
	CatalogClient
	CheckoutClient
	MessagesClient
	AdminClient
	CalculateShipping(ctx context.Context, items []domain.CartLineItem) (*domain.Totals, error)
}

type RouterConfig struct {
	Backend               Backend
	Carts                 *cart.Registry
	Sessions              sessions.Store
	Publisher             events.Publisher
	Confirmation          confirmation.Options
	FreeShippingThreshold decimal.Decimal
	PublicOrigin          string
	RequestTimeout        time.Duration
	BackendTimeout        time.Duration
	MaxRequestBodySize    int64
}

func NewRouter(cfg RouterConfig) chi.Router {
	catalogHandler := NewCatalogHandler(cfg.Backend, cfg.BackendTimeout)
	cartHandler := NewCartHandler(cfg.Carts, cfg.Backend, cfg.Backend, cfg.FreeShippingThreshold, cfg.BackendTimeout, cfg.MaxRequestBodySize)
	checkoutHandler := NewCheckoutHandler(cfg.Carts, cfg.Backend, cfg.Publisher, cfg.Confirmation, cfg.PublicOrigin, cfg.BackendTimeout, cfg.MaxRequestBodySize)
	messagesHandler := NewMessagesHandler(cfg.Backend, cfg.BackendTimeout, cfg.MaxRequestBodySize)
	adminHandler := NewAdminHandler(cfg.Backend, cfg.BackendTimeout, cfg.MaxRequestBodySize)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.Sessions))

		r.Get("/home", catalogHandler.Home)
		r.Get("/shop", catalogHandler.Shop)
		r.Get("/categories", catalogHandler.ListCategories)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogHandler.ListProducts)
			r.Get("/{slug}", catalogHandler.GetProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Get("/totals", cartHandler.Totals)
			r.Post("/drawer", cartHandler.SetDrawer)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})

		r.Post("/checkout", checkoutHandler.Checkout)
		r.Get("/order-confirmation", checkoutHandler.Confirmation)

		r.Post("/newsletter", messagesHandler.Newsletter)
		r.Post("/contact", messagesHandler.Contact)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/products", adminHandler.ListProducts)
			r.Post("/products", adminHandler.CreateProduct)
			r.Put("/products/{id}", adminHandler.UpdateProduct)
			r.Delete("/products/{id}", adminHandler.DeleteProduct)
			r.Post("/seed", adminHandler.Seed)
		})
	})

	return r
}

var _ Backend = (*api.Client)(nil)
