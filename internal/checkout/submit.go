// Package checkout validates the shipping form, hands the bag to the backend
// and remembers the order that is waiting on the hosted payment page.
package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/beautivra/storefront/internal/api"
	"github.com/beautivra/storefront/internal/domain"
)

type Backend interface {
	CreateCheckout(ctx context.Context, req api.CheckoutRequest) (*api.CheckoutSession, error)
}

type ShippingCalculator interface {
	CalculateShipping(ctx context.Context, items []domain.CartLineItem) (*domain.Totals, error)
}

type Result struct {
	CheckoutURL string
	OrderNumber string
}

type Submitter struct {
	backend Backend
	pending *PendingOrders
}

func NewSubmitter(backend Backend, pending *PendingOrders) *Submitter {
	return &Submitter{backend: backend, pending: pending}
}

// Submit validates address, creates the checkout session and stores the
// pending order reference. The caller redirects to Result.CheckoutURL.
// Nothing is sent or stored when validation fails.
func (s *Submitter) Submit(ctx context.Context, address domain.ShippingAddress, items []domain.CartLineItem, originURL string) (*Result, error) {
	address = WithDefaults(address)
	if errs := Validate(address); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	session, err := s.backend.CreateCheckout(ctx, api.CheckoutRequest{
		Items:           items,
		ShippingAddress: address,
		OriginURL:       originURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}
	if session.CheckoutURL == "" {
		return nil, ErrMissingCheckoutURL
	}

	ref := domain.PendingOrderReference{
		OrderID:     session.OrderID,
		OrderNumber: session.OrderNumber,
		SessionID:   session.SessionID,
	}
	if err := s.pending.Save(ctx, ref); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "checkout session created", "order_number", session.OrderNumber, "session_id", session.SessionID)
	return &Result{CheckoutURL: session.CheckoutURL, OrderNumber: session.OrderNumber}, nil
}

// Quote asks the backend for shipping, tax and total. An empty bag is
// zero everywhere and never reaches the backend.
func Quote(ctx context.Context, calc ShippingCalculator, items []domain.CartLineItem) (*domain.Totals, error) {
	if len(items) == 0 {
		return &domain.Totals{}, nil
	}
	totals, err := calc.CalculateShipping(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("calculate shipping: %w", err)
	}
	return totals, nil
}
