package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/beautivra/storefront/internal/api"
	"github.com/beautivra/storefront/internal/domain"
	"github.com/beautivra/storefront/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) do(t *testing.T, c *http.Client, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeCart(t *testing.T, data []byte) CartResponse {
	t.Helper()
	var c CartResponse
	require.NoError(t, json.Unmarshal(data, &c))
	return c
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, env.browser(t), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestCart_AddUpdateRemoveFlow(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)

	resp, body := env.do(t, browser, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{Slug: "ice-roller", Quantity: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	c := decodeCart(t, body)
	assert.True(t, c.IsOpen)
	assert.Equal(t, 2, c.ItemCount)
	assert.Equal(t, "40", c.Subtotal.String())
	assert.Equal(t, "35", c.FreeShippingRemaining.String())
	assert.Equal(t, "https://img/roller.jpg", c.Items[0].ProductImage)

	_, body = env.do(t, browser, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "p-roller", Quantity: 1})
	c = decodeCart(t, body)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, "60", c.Subtotal.String())

	_, body = env.do(t, browser, http.MethodPost, "/api/v1/cart/drawer", DrawerRequestDTO{Open: false})
	assert.False(t, decodeCart(t, body).IsOpen)

	_, body = env.do(t, browser, http.MethodPut, "/api/v1/cart/items/p-roller", UpdateQuantityRequestDTO{Quantity: 5})
	assert.Equal(t, 5, decodeCart(t, body).ItemCount)

	_, body = env.do(t, browser, http.MethodPut, "/api/v1/cart/items/p-roller", UpdateQuantityRequestDTO{Quantity: 0})
	assert.Empty(t, decodeCart(t, body).Items)
}

func TestCart_VariantsAndRemove(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)

	// no variant picks the first one
	_, body := env.do(t, browser, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{Slug: "rose-quartz-gua-sha", Quantity: 1})
	c := decodeCart(t, body)
	require.Len(t, c.Items, 1)
	require.NotNil(t, c.Items[0].Variant)
	assert.Equal(t, "Rose", *c.Items[0].Variant)
	assert.Equal(t, "35", c.Items[0].Price.String())

	jade := "Jade"
	_, body = env.do(t, browser, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{Slug: "rose-quartz-gua-sha", Variant: &jade, Quantity: 1})
	assert.Len(t, decodeCart(t, body).Items, 2)

	_, body = env.do(t, browser, http.MethodDelete, "/api/v1/cart/items/p-guasha?variant=Rose", nil)
	c = decodeCart(t, body)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "Jade", *c.Items[0].Variant)

	resp, body := env.do(t, browser, http.MethodDelete, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeCart(t, body).Items)
}

func TestCart_AddItemErrors(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"invalid json", "{", http.StatusBadRequest, "invalid_request"},
		{"missing product", AddItemRequestDTO{Quantity: 1}, http.StatusBadRequest, "invalid_product"},
		{"negative quantity", AddItemRequestDTO{Slug: "ice-roller", Quantity: -1}, http.StatusBadRequest, "invalid_quantity"},
		{"too many", AddItemRequestDTO{Slug: "ice-roller", Quantity: 100}, http.StatusBadRequest, "invalid_quantity"},
		{"unknown product", AddItemRequestDTO{Slug: "nope", Quantity: 1}, http.StatusNotFound, "not_found"},
		{"out of stock", AddItemRequestDTO{Slug: "cleansing-brush", Quantity: 1}, http.StatusConflict, "out_of_stock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, browser, http.MethodPost, "/api/v1/cart/items", tt.body)

			assert.Equal(t, tt.status, resp.StatusCode)
			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.Equal(t, tt.code, errResp.Code)
		})
	}

	_, body := env.do(t, browser, http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, decodeCart(t, body).Items)
}

func TestCart_LineQuantityCappedAcrossAdds(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)

	resp, _ := env.do(t, browser, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{Slug: "ice-roller", Quantity: 60})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.do(t, browser, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{Slug: "ice-roller", Quantity: 40})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "invalid_quantity")

	_, body = env.do(t, browser, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, 60, decodeCart(t, body).ItemCount)
}

func TestCart_UnreadableStorageIsUnavailable(t *testing.T) {
	backing := &unreadableStorage{Storage: storage.NewMemoryStorage(), failing: true}
	env := newTestEnvWithStorage(t, backing)
	browser := env.browser(t)

	resp, body := env.do(t, browser, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "cart_unavailable")

	resp, _ = env.do(t, browser, http.MethodPost, "/api/v1/checkout", shippingForm())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Empty(t, env.backend.checkoutReqs)

	backing.setFailing(false)
	resp, _ = env.do(t, browser, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{Slug: "ice-roller", Quantity: 1})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCart_SessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.browser(t), env.browser(t)

	env.do(t, alice, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{Slug: "ice-roller", Quantity: 1})

	_, body := env.do(t, bob, http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, decodeCart(t, body).Items)

	_, body = env.do(t, alice, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, 1, decodeCart(t, body).ItemCount)
}

func TestCart_Totals(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)
	env.backend.totals = &domain.Totals{Subtotal: decimal.NewFromInt(20), Total: decimal.RequireFromString("33.85")}

	_, body := env.do(t, browser, http.MethodGet, "/api/v1/cart/totals", nil)
	assert.JSONEq(t, `{"subtotal":0,"shipping":0,"tax":0,"total":0,"free_shipping_threshold":0,"tax_rate":0}`, string(body))
	assert.Zero(t, env.backend.shippingCalls)

	env.do(t, browser, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{Slug: "ice-roller", Quantity: 1})
	_, body = env.do(t, browser, http.MethodGet, "/api/v1/cart/totals", nil)

	var totals domain.Totals
	require.NoError(t, json.Unmarshal(body, &totals))
	assert.Equal(t, "33.85", totals.Total.String())
	assert.Equal(t, 1, env.backend.shippingCalls)
}

func TestProducts_Sorting(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)

	slugs := func(body []byte) []string {
		var products []domain.Product
		require.NoError(t, json.Unmarshal(body, &products))
		var out []string
		for _, p := range products {
			out = append(out, p.Slug)
		}
		return out
	}

	tests := map[string][]string{
		"":           {"rose-quartz-gua-sha", "cleansing-brush", "ice-roller"},
		"featured":   {"rose-quartz-gua-sha", "cleansing-brush", "ice-roller"},
		"price-low":  {"ice-roller", "rose-quartz-gua-sha", "cleansing-brush"},
		"price-high": {"cleansing-brush", "rose-quartz-gua-sha", "ice-roller"},
		"newest":     {"ice-roller", "cleansing-brush", "rose-quartz-gua-sha"},
	}
	for sortBy, want := range tests {
		resp, body := env.do(t, browser, http.MethodGet, "/api/v1/products?sort="+sortBy, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, want, slugs(body), sortBy)
	}

	resp, _ := env.do(t, browser, http.MethodGet, "/api/v1/products?sort=cheapest", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(t, browser, http.MethodGet, "/api/v1/products?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProducts_FilterPassesThrough(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, env.browser(t), http.MethodGet, "/api/v1/products?category=gua-sha&featured=true&limit=10", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	q := env.backend.lastQuery
	assert.Equal(t, "gua-sha", q.Category)
	require.NotNil(t, q.Featured)
	assert.True(t, *q.Featured)
	assert.Equal(t, 10, q.Limit)
}

func TestProductDetail(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)

	resp, body := env.do(t, browser, http.MethodGet, "/api/v1/products/rose-quartz-gua-sha", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail ProductDetailResponse
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, "p-guasha", detail.Product.ID)
	assert.Len(t, detail.Reviews, 1)

	_, body = env.do(t, browser, http.MethodGet, "/api/v1/products/ice-roller", nil)
	assert.Contains(t, string(body), `"reviews":[]`)

	resp, _ = env.do(t, browser, http.MethodGet, "/api/v1/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestShopAndHome(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)

	_, body := env.do(t, browser, http.MethodGet, "/api/v1/shop?sort=price-low", nil)
	var shop ShopResponse
	require.NoError(t, json.Unmarshal(body, &shop))
	assert.Len(t, shop.Products, 3)
	assert.Len(t, shop.Categories, 1)
	assert.Equal(t, "price-low", shop.Sort)

	_, body = env.do(t, browser, http.MethodGet, "/api/v1/home", nil)
	var home HomeResponse
	require.NoError(t, json.Unmarshal(body, &home))
	assert.Len(t, home.Featured, 2)
	assert.Equal(t, 4, env.backend.lastQuery.Limit)

	env.backend.listErr = &api.Error{StatusCode: http.StatusInternalServerError}
	resp, _ := env.do(t, browser, http.MethodGet, "/api/v1/shop", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestCheckout_ValidationAndEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)

	resp, body := env.do(t, browser, http.MethodPost, "/api/v1/checkout", domain.ShippingAddress{Email: "bad"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "Invalid email", errResp.Fields["email"])
	assert.Equal(t, "First name is required", errResp.Fields["first_name"])

	resp, _ = env.do(t, browser, http.MethodPost, "/api/v1/checkout", shippingForm())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.backend.checkoutReqs)
}

func TestCheckout_BackendFailure(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)
	env.backend.checkoutErr = &api.Error{StatusCode: http.StatusInternalServerError, Detail: "stripe"}
	env.do(t, browser, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{Slug: "ice-roller", Quantity: 1})

	resp, _ := env.do(t, browser, http.MethodPost, "/api/v1/checkout", shippingForm())

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestCheckoutThenConfirmation(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)
	env.backend.session = &api.CheckoutSession{
		CheckoutURL: "https://pay.test/cs_1",
		SessionID:   "cs_1",
		OrderID:     "o1",
		OrderNumber: "BV-20260101-ABCDEF",
	}
	env.backend.orders["o1"] = &domain.Order{
		ID:              "o1",
		OrderNumber:     "BV-20260101-ABCDEF",
		ShippingAddress: domain.ShippingAddress{Email: "ada@example.com"},
	}
	env.backend.statuses = []*domain.CheckoutSessionStatus{
		{Status: "open", PaymentStatus: "unpaid"},
		{Status: "complete", PaymentStatus: "paid"},
	}
	env.do(t, browser, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{Slug: "ice-roller", Quantity: 2})

	resp, body := env.do(t, browser, http.MethodPost, "/api/v1/checkout", shippingForm())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Empty(t, resp.Header.Get("Location"))
	assert.JSONEq(t, `{"checkout_url":"https://pay.test/cs_1","order_number":"BV-20260101-ABCDEF"}`, string(body))

	require.Len(t, env.backend.checkoutReqs, 1)
	req := env.backend.checkoutReqs[0]
	assert.Equal(t, "https://shop.test", req.OriginURL)
	assert.Equal(t, "ON", req.ShippingAddress.Province)
	assert.Equal(t, 2, req.Items[0].Quantity)

	resp, body = env.do(t, browser, http.MethodGet, "/api/v1/order-confirmation?session_id=cs_1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view ConfirmationResponse
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "success", view.State)
	require.NotNil(t, view.Order)
	assert.Equal(t, "BV-20260101-ABCDEF", view.Order.OrderNumber)
	assert.Equal(t, "ada@example.com", view.ConfirmationEmail)
	assert.Equal(t, "/shop", view.ReturnPath)
	assert.Equal(t, 2, env.backend.statusCalls)

	_, body = env.do(t, browser, http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, decodeCart(t, body).Items)
}

func TestConfirmation_NoSessionID(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, env.browser(t), http.MethodGet, "/api/v1/order-confirmation", nil)

	var view ConfirmationResponse
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "error", view.State)
	assert.Equal(t, "Payment Error", view.Title)
	assert.Equal(t, "/cart", view.ReturnPath)
	assert.Zero(t, env.backend.statusCalls)
}

func TestConfirmation_ExpiredKeepsCart(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)
	env.backend.statuses = []*domain.CheckoutSessionStatus{{Status: "expired"}}
	env.do(t, browser, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{Slug: "ice-roller", Quantity: 1})

	_, body := env.do(t, browser, http.MethodGet, "/api/v1/order-confirmation?session_id=cs_1", nil)

	var view ConfirmationResponse
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "expired", view.State)
	assert.Equal(t, "Session Expired", view.Title)

	_, body = env.do(t, browser, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, 1, decodeCart(t, body).ItemCount)
}

func TestNewsletterAndContact(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)

	resp, _ := env.do(t, browser, http.MethodPost, "/api/v1/newsletter", NewsletterRequestDTO{Email: "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body := env.do(t, browser, http.MethodPost, "/api/v1/newsletter", NewsletterRequestDTO{Email: "mia@example.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Thank you for subscribing!")
	assert.Equal(t, []string{"mia@example.com"}, env.backend.newsletter)

	resp, body = env.do(t, browser, http.MethodPost, "/api/v1/contact", api.ContactMessage{Name: "Mia", Email: "mia@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Len(t, errResp.Fields, 2)
	assert.Contains(t, errResp.Fields, "subject")
	assert.Contains(t, errResp.Fields, "message")

	resp, _ = env.do(t, browser, http.MethodPost, "/api/v1/contact", api.ContactMessage{
		Name: "Mia", Email: "mia@example.com", Subject: "Order", Message: "Where is it?",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, env.backend.contacts, 1)

	env.backend.messageErr = &api.Error{StatusCode: http.StatusUnprocessableEntity, Detail: "value is not a valid email address"}
	resp, body = env.do(t, browser, http.MethodPost, "/api/v1/newsletter", NewsletterRequestDTO{Email: "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "backend_rejected")
}

func TestAdmin(t *testing.T) {
	env := newTestEnv(t)
	browser := env.browser(t)

	resp, body := env.do(t, browser, http.MethodPost, "/api/v1/admin/products", map[string]interface{}{
		"name":        "Jade Face Roller",
		"category":    "face-rollers",
		"price":       28,
		"benefits":    []string{"Depuffs", " "},
		"why_love_it": []string{""},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	require.Len(t, env.backend.created, 1)
	created := env.backend.created[0]
	assert.Equal(t, "jade-face-roller", created.Slug)
	assert.Equal(t, []string{"Depuffs"}, created.Benefits)
	assert.Empty(t, created.WhyLoveIt)

	resp, body = env.do(t, browser, http.MethodPost, "/api/v1/admin/products", map[string]interface{}{"name": "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Contains(t, errResp.Fields, "name")
	assert.Contains(t, errResp.Fields, "price")

	resp, _ = env.do(t, browser, http.MethodPut, "/api/v1/admin/products/p-roller", map[string]interface{}{
		"name": "Ice Roller", "slug": "ice-roller", "category": "ice-rollers", "price": 22,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "22", env.backend.updated["p-roller"].Price.String())

	resp, _ = env.do(t, browser, http.MethodPut, "/api/v1/admin/products/missing", map[string]interface{}{
		"name": "X", "category": "x", "price": 1,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, browser, http.MethodDelete, "/api/v1/admin/products/p-roller", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"p-roller"}, env.backend.deleted)

	_, body = env.do(t, browser, http.MethodPost, "/api/v1/admin/seed", nil)
	assert.Contains(t, string(body), `"seeded":true`)
	_, body = env.do(t, browser, http.MethodPost, "/api/v1/admin/seed", nil)
	assert.Contains(t, string(body), `"seeded":false`)

	_, body = env.do(t, browser, http.MethodGet, "/api/v1/admin/products", nil)
	var products []domain.Product
	require.NoError(t, json.Unmarshal(body, &products))
	assert.Len(t, products, 3)
}

func shippingForm() domain.ShippingAddress {
	return domain.ShippingAddress{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Phone:      "416-555-0100",
		Address:    "1 King St W",
		City:       "Toronto",
		PostalCode: "M5H 1A1",
	}
}
