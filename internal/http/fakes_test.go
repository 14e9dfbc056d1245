package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/beautivra/storefront/internal/api"
	"github.com/beautivra/storefront/internal/cart"
	"github.com/beautivra/storefront/internal/confirmation"
	"github.com/beautivra/storefront/internal/domain"
	"github.com/beautivra/storefront/internal/events"
	"github.com/beautivra/storefront/internal/storage"
	"github.com/shopspring/decimal"
)

// fakeBackend is an in-memory shop backend.
type fakeBackend struct {
	mu sync.Mutex

	products   []domain.Product
	categories []domain.Category
	reviews    map[string][]domain.Review
	listErr    error
	lastQuery  api.ProductQuery

	session      *api.CheckoutSession
	checkoutErr  error
	checkoutReqs []api.CheckoutRequest
	statuses     []*domain.CheckoutSessionStatus
	statusCalls  int
	orders       map[string]*domain.Order

	totals        *domain.Totals
	shippingCalls int

	created    []domain.ProductInput
	updated    map[string]domain.ProductInput
	deleted    []string
	seeded     bool
	newsletter []string
	contacts   []api.ContactMessage
	messageErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products: []domain.Product{
			{
				ID: "p-roller", Name: "Ice Roller", Slug: "ice-roller", Category: "ice-rollers",
				Price: decimal.NewFromInt(20), InStock: true, Featured: false,
				CreatedAt: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
				Images:    []domain.ProductImage{{URL: "https://img/roller.jpg", IsPrimary: true}},
			},
			{
				ID: "p-guasha", Name: "Rose Quartz Gua Sha", Slug: "rose-quartz-gua-sha", Category: "gua-sha",
				Price: decimal.NewFromInt(30), InStock: true, Featured: true,
				CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				Variants: []domain.ProductVariant{
					{Name: "Stone", Value: "Rose", PriceModifier: decimal.NewFromInt(5)},
					{Name: "Stone", Value: "Jade", PriceModifier: decimal.Zero},
				},
			},
			{
				ID: "p-brush", Name: "Cleansing Brush", Slug: "cleansing-brush", Category: "cleansing-brushes",
				Price: decimal.NewFromInt(45), InStock: false, Featured: true,
				CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			},
		},
		categories: []domain.Category{{ID: "gua-sha", Name: "Gua Sha Tools", Slug: "gua-sha"}},
		reviews: map[string][]domain.Review{
			"p-guasha": {{ID: "r1", ProductID: "p-guasha", AuthorName: "Mia", Rating: 5}},
		},
		orders:  map[string]*domain.Order{},
		updated: map[string]domain.ProductInput{},
	}
}

func (f *fakeBackend) ListProducts(_ context.Context, q api.ProductQuery) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Product
	for _, p := range f.products {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.Featured != nil && p.Featured != *q.Featured {
			continue
		}
		out = append(out, p)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeBackend) GetProduct(_ context.Context, idOrSlug string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == idOrSlug || f.products[i].Slug == idOrSlug {
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, &api.Error{StatusCode: http.StatusNotFound, Detail: "Product not found"}
}

func (f *fakeBackend) ListCategories(context.Context) ([]domain.Category, error) {
	return f.categories, nil
}

func (f *fakeBackend) ListReviews(_ context.Context, productID string) ([]domain.Review, error) {
	return f.reviews[productID], nil
}

func (f *fakeBackend) CreateCheckout(_ context.Context, req api.CheckoutRequest) (*api.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkoutReqs = append(f.checkoutReqs, req)
	return f.session, f.checkoutErr
}

func (f *fakeBackend) CheckoutStatus(context.Context, string) (*domain.CheckoutSessionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusCalls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.statusCalls++
	return f.statuses[i], nil
}

func (f *fakeBackend) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	if o, ok := f.orders[orderID]; ok {
		return o, nil
	}
	return nil, &api.Error{StatusCode: http.StatusNotFound, Detail: "Order not found"}
}

func (f *fakeBackend) CalculateShipping(_ context.Context, items []domain.CartLineItem) (*domain.Totals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shippingCalls++
	return f.totals, nil
}

func (f *fakeBackend) SubscribeNewsletter(_ context.Context, email string) (*api.Message, error) {
	if f.messageErr != nil {
		return nil, f.messageErr
	}
	f.newsletter = append(f.newsletter, email)
	return &api.Message{Message: "Thank you for subscribing!", Success: true}, nil
}

func (f *fakeBackend) SendContact(_ context.Context, in api.ContactMessage) (*api.Message, error) {
	f.contacts = append(f.contacts, in)
	return &api.Message{Message: "Thank you for your message. We'll get back to you soon!", Success: true}, nil
}

func (f *fakeBackend) CreateProduct(_ context.Context, in domain.ProductInput) (*domain.Product, error) {
	f.created = append(f.created, in)
	return &domain.Product{ID: "p-new", Name: in.Name, Slug: in.Slug, Price: in.Price}, nil
}

func (f *fakeBackend) UpdateProduct(_ context.Context, id string, in domain.ProductInput) (*domain.Product, error) {
	if id == "missing" {
		return nil, &api.Error{StatusCode: http.StatusNotFound, Detail: "Product not found"}
	}
	f.updated[id] = in
	return &domain.Product{ID: id, Name: in.Name, Slug: in.Slug, Price: in.Price}, nil
}

func (f *fakeBackend) DeleteProduct(_ context.Context, id string) (*api.Message, error) {
	f.deleted = append(f.deleted, id)
	return &api.Message{Message: "Product deleted successfully"}, nil
}

func (f *fakeBackend) SeedProducts(context.Context) (*api.SeedResult, error) {
	if f.seeded {
		return &api.SeedResult{Message: "Database already has 3 products", Seeded: false}, nil
	}
	f.seeded = true
	return &api.SeedResult{Message: "Seeded 3 products and 1 reviews", Seeded: true}, nil
}

type testEnv struct {
	backend *fakeBackend
	carts   *cart.Registry
	server  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStorage(t, storage.NewMemoryStorage())
}

func newTestEnvWithStorage(t *testing.T, s storage.Storage) *testEnv {
	t.Helper()
	backend := newFakeBackend()
	carts := cart.NewRegistry(s)

	router := NewRouter(RouterConfig{
		Backend:   backend,
		Carts:     carts,
		Sessions:  NewSessionStore("test-secret-test-secret-test-sec", 3600, false),
		Publisher: events.Nop{},
		Confirmation: confirmation.Options{
			MaxPending: 5,
			MaxErrors:  3,
			Sleep:      func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
		},
		FreeShippingThreshold: decimal.NewFromInt(75),
		PublicOrigin:          "https://shop.test",
		RequestTimeout:        10 * time.Second,
		BackendTimeout:        5 * time.Second,
		MaxRequestBodySize:    1 << 20,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{backend: backend, carts: carts, server: srv}
}

// browser returns a client that keeps cookies.
func (e *testEnv) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

// unreadableStorage fails every read while failing is set.
type unreadableStorage struct {
	storage.Storage

	mu      sync.Mutex
	failing bool
}

func (u *unreadableStorage) setFailing(v bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failing = v
}

func (u *unreadableStorage) Get(ctx context.Context, key string) ([]byte, error) {
	u.mu.Lock()
	failing := u.failing
	u.mu.Unlock()
	if failing {
		return nil, errors.New("connection reset by peer")
	}
	return u.Storage.Get(ctx, key)
}
