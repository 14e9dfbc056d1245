package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/beautivra/storefront/internal/domain"
)

type ProductQuery struct {
	Category string
	Featured *bool
	Search   string
	Limit    int
}

func (q ProductQuery) encode() string {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Featured != nil {
		v.Set("featured", strconv.FormatBool(*q.Featured))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) ListProducts(ctx context.Context, q ProductQuery) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.get(ctx, "/products"+q.encode(), &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct accepts either the product id or its slug.
func (c *Client) GetProduct(ctx context.Context, idOrSlug string) (*domain.Product, error) {
	var product domain.Product
	if err := c.get(ctx, "/products/"+url.PathEscape(idOrSlug), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.get(ctx, "/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) ListReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	var reviews []domain.Review
	if err := c.get(ctx, "/reviews/"+url.PathEscape(productID), &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}
