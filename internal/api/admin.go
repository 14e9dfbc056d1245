package api

import (
	"context"
	"net/url"

	"github.com/beautivra/storefront/internal/domain"
)

type SeedResult struct {
	Message string `json:"message"`
	Seeded  bool   `json:"seeded"`
}

func (c *Client) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	var product domain.Product
	if err := c.post(ctx, "/admin/products", in, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (*domain.Product, error) {
	var product domain.Product
	if err := c.put(ctx, "/admin/products/"+url.PathEscape(id), in, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) (*Message, error) {
	var msg Message
	if err := c.delete(ctx, "/admin/products/"+url.PathEscape(id), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SeedProducts loads the sample catalog. The backend refuses when products
// already exist and reports that through Seeded.
func (c *Client) SeedProducts(ctx context.Context) (*SeedResult, error) {
	var res SeedResult
	if err := c.post(ctx, "/admin/seed", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
