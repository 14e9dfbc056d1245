package http

import (
	"context"
	"net/http"
	"time"

	"github.com/beautivra/storefront/internal/cart"
	"github.com/beautivra/storefront/internal/checkout"
	"github.com/beautivra/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductGetter interface {
	GetProduct(ctx context.Context, idOrSlug string) (*domain.Product, error)
}

const maxLineQuantity = 99

type CartHandler struct {
	carts     *cart.Registry
	products  ProductGetter
	shipping  checkout.ShippingCalculator
	threshold decimal.Decimal
	timeout   time.Duration
	maxBody   int64
}

func NewCartHandler(carts *cart.Registry, products ProductGetter, shipping checkout.ShippingCalculator, threshold decimal.Decimal, timeout time.Duration, maxBody int64) *CartHandler {
	return &CartHandler{
		carts:     carts,
		products:  products,
		shipping:  shipping,
		threshold: threshold,
		timeout:   timeout,
		maxBody:   maxBody,
	}
}

type AddItemRequestDTO struct {
	Slug      string  `json:"slug"`
	ProductID string  `json:"product_id"`
	Variant   *string `json:"variant"`
	Quantity  int     `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Variant  *string `json:"variant"`
	Quantity int     `json:"quantity"`
}

type DrawerRequestDTO struct {
	Open bool `json:"open"`
}

type CartResponse struct {
	Items                 []domain.CartLineItem `json:"items"`
	ItemCount             int                   `json:"item_count"`
	Subtotal              decimal.Decimal       `json:"subtotal"`
	IsOpen                bool                  `json:"is_open"`
	FreeShippingThreshold decimal.Decimal       `json:"free_shipping_threshold"`
	FreeShippingRemaining decimal.Decimal       `json:"free_shipping_remaining"`
}

// cartFor returns the session's bag, answering 503 when it cannot be read.
func (h *CartHandler) cartFor(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	return sessionCart(w, r, h.carts)
}

func (h *CartHandler) respondCart(w http.ResponseWriter, status int, store *cart.Store) {
	respondJSON(w, status, CartResponse{
		Items:                 store.Items(),
		ItemCount:             store.ItemCount(),
		Subtotal:              store.Subtotal(),
		IsOpen:                store.IsOpen(),
		FreeShippingThreshold: h.threshold,
		FreeShippingRemaining: store.FreeShippingRemaining(h.threshold),
	})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	h.respondCart(w, http.StatusOK, store)
}

// AddItem snapshots the product into the bag and opens the drawer. Without
// a variant the product's first variant is used.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	ref := req.Slug
	if ref == "" {
		ref = req.ProductID
	}
	if ref == "" {
		respondError(w, http.StatusBadRequest, "invalid_product", "slug or product_id is required")
		return
	}
	if req.Quantity < 0 || req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	product, err := h.products.GetProduct(ctx, ref)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}
	if !product.InStock {
		respondError(w, http.StatusConflict, "out_of_stock", product.Name+" is out of stock")
		return
	}

	variant := req.Variant
	if variant == nil && len(product.Variants) > 0 {
		first := product.Variants[0].Value
		variant = &first
	}

	store, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	if err := store.AddItemUpTo(ctx, product, variant, req.Quantity, maxLineQuantity); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "a bag line holds at most 99 of an item")
		return
	}
	store.Open()

	h.respondCart(w, http.StatusCreated, store)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	store, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	store.UpdateQuantity(r.Context(), chi.URLParam(r, "product_id"), req.Variant, req.Quantity)

	h.respondCart(w, http.StatusOK, store)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	var variant *string
	if r.URL.Query().Has("variant") {
		v := r.URL.Query().Get("variant")
		variant = &v
	}

	store, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	store.RemoveItem(r.Context(), chi.URLParam(r, "product_id"), variant)

	h.respondCart(w, http.StatusOK, store)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	store.Clear(r.Context())

	h.respondCart(w, http.StatusOK, store)
}

func (h *CartHandler) SetDrawer(w http.ResponseWriter, r *http.Request) {
	var req DrawerRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	store, ok := h.cartFor(w, r)
	if !ok {
		return
	}
	if req.Open {
		store.Open()
	} else {
		store.Close()
	}

	h.respondCart(w, http.StatusOK, store)
}

// Totals quotes shipping and tax for the current bag.
func (h *CartHandler) Totals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.cartFor(w, r)
	if !ok {
		return
	}

	totals, err := checkout.Quote(ctx, h.shipping, store.Items())
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, totals)
}
