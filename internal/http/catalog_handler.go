package http

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/beautivra/storefront/internal/api"
	"github.com/beautivra/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

type CatalogClient interface {
	ListProducts(ctx context.Context, q api.ProductQuery) ([]domain.Product, error)
	GetProduct(ctx context.Context, idOrSlug string) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListReviews(ctx context.Context, productID string) ([]domain.Review, error)
}

const (
	SortFeatured  = "featured"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortNewest    = "newest"

	homeFeaturedLimit = 4
)

type CatalogHandler struct {
	catalog CatalogClient
	timeout time.Duration
}

func NewCatalogHandler(catalog CatalogClient, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type ProductDetailResponse struct {
	Product *domain.Product `json:"product"`
	Reviews []domain.Review `json:"reviews"`
}

type ShopResponse struct {
	Products   []domain.Product  `json:"products"`
	Categories []domain.Category `json:"categories"`
	Category   string            `json:"category,omitempty"`
	Sort       string            `json:"sort"`
}

type HomeResponse struct {
	Featured []domain.Product `json:"featured"`
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q, sortBy, ok := parseProductQuery(w, r)
	if !ok {
		return
	}

	products, err := h.catalog.ListProducts(ctx, q)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sortProducts(products, sortBy))
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	reviews, err := h.catalog.ListReviews(ctx, product.ID)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}

	respondJSON(w, http.StatusOK, ProductDetailResponse{Product: product, Reviews: reviews})
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, categories)
}

// Shop loads the product grid and the category filter together.
func (h *CatalogHandler) Shop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q, sortBy, ok := parseProductQuery(w, r)
	if !ok {
		return
	}

	var (
		products   []domain.Product
		categories []domain.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = h.catalog.ListProducts(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = h.catalog.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ShopResponse{
		Products:   sortProducts(products, sortBy),
		Categories: categories,
		Category:   q.Category,
		Sort:       sortBy,
	})
}

func (h *CatalogHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	featured := true
	products, err := h.catalog.ListProducts(ctx, api.ProductQuery{Featured: &featured, Limit: homeFeaturedLimit})
	if err != nil {
		handleBackendError(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	respondJSON(w, http.StatusOK, HomeResponse{Featured: products})
}

func parseProductQuery(w http.ResponseWriter, r *http.Request) (api.ProductQuery, string, bool) {
	query := r.URL.Query()
	q := api.ProductQuery{
		Category: query.Get("category"),
		Search:   query.Get("search"),
	}

	if v := query.Get("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_featured", "featured must be true or false")
			return q, "", false
		}
		q.Featured = &featured
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > 100 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return q, "", false
		}
		q.Limit = limit
	}

	sortBy := query.Get("sort")
	switch sortBy {
	case "":
		sortBy = SortFeatured
	case SortFeatured, SortPriceLow, SortPriceHigh, SortNewest:
	default:
		respondError(w, http.StatusBadRequest, "invalid_sort", "sort must be one of featured, price-low, price-high, newest")
		return q, "", false
	}
	return q, sortBy, true
}

// sortProducts orders a copy of products. Ties keep the backend order.
func sortProducts(products []domain.Product, sortBy string) []domain.Product {
	out := make([]domain.Product, len(products))
	copy(out, products)

	var less func(a, b *domain.Product) bool
	switch sortBy {
	case SortPriceLow:
		less = func(a, b *domain.Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceHigh:
		less = func(a, b *domain.Product) bool { return a.Price.GreaterThan(b.Price) }
	case SortNewest:
		less = func(a, b *domain.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		less = func(a, b *domain.Product) bool { return a.Featured && !b.Featured }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}
