package api

import (
	"context"
	"net/url"

	"github.com/beautivra/storefront/internal/domain"
)

type CheckoutRequest struct {
	Items           []domain.CartLineItem  `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	OriginURL       string                 `json:"origin_url"`
}

// CheckoutSession is what the backend hands back after creating the order
// and the hosted payment session.
type CheckoutSession struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
}

type shippingRequest struct {
	Items []domain.CartLineItem `json:"items"`
}

func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.post(ctx, "/checkout", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) CheckoutStatus(ctx context.Context, sessionID string) (*domain.CheckoutSessionStatus, error) {
	var status domain.CheckoutSessionStatus
	if err := c.get(ctx, "/checkout/status/"+url.PathEscape(sessionID), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetOrder accepts either the order id or its order number.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	if err := c.get(ctx, "/orders/"+url.PathEscape(orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CalculateShipping(ctx context.Context, items []domain.CartLineItem) (*domain.Totals, error) {
	if items == nil {
		items = []domain.CartLineItem{}
	}
	var totals domain.Totals
	if err := c.post(ctx, "/calculate-shipping", shippingRequest{Items: items}, &totals); err != nil {
		return nil, err
	}
	return &totals, nil
}
