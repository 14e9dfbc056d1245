package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/beautivra/storefront/internal/api"
	"github.com/beautivra/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type AdminClient interface {
	ListProducts(ctx context.Context, q api.ProductQuery) ([]domain.Product, error)
	CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) (*api.Message, error)
	SeedProducts(ctx context.Context) (*api.SeedResult, error)
}

type AdminHandler struct {
	client  AdminClient
	timeout time.Duration
	maxBody int64
}

func NewAdminHandler(client AdminClient, timeout time.Duration, maxBody int64) *AdminHandler {
	return &AdminHandler{client: client, timeout: timeout, maxBody: maxBody}
}

func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.client.ListProducts(ctx, api.ProductQuery{})
	if err != nil {
		handleBackendError(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	respondJSON(w, http.StatusOK, products)
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	in, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	product, err := h.client.CreateProduct(ctx, in)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	in, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	product, err := h.client.UpdateProduct(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	msg, err := h.client.DeleteProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, msg)
}

func (h *AdminHandler) Seed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.client.SeedProducts(ctx)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (domain.ProductInput, bool) {
	var in domain.ProductInput
	if !decodeJSON(w, r, h.maxBody, &in) {
		return in, false
	}
	in.Normalize()

	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "Name is required"
	}
	if in.Slug == "" {
		fields["slug"] = "Slug is required"
	}
	if strings.TrimSpace(in.Category) == "" {
		fields["category"] = "Category is required"
	}
	if !in.Price.IsPositive() {
		fields["price"] = "Price must be greater than zero"
	}
	if len(fields) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "invalid product",
			Code:   "validation_failed",
			Fields: fields,
		})
		return in, false
	}
	return in, true
}
