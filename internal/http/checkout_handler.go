package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/beautivra/storefront/internal/api"
	"github.com/beautivra/storefront/internal/cart"
	"github.com/beautivra/storefront/internal/checkout"
	"github.com/beautivra/storefront/internal/confirmation"
	"github.com/beautivra/storefront/internal/domain"
	"github.com/beautivra/storefront/internal/events"
)

type CheckoutClient interface {
	CreateCheckout(ctx context.Context, req api.CheckoutRequest) (*api.CheckoutSession, error)
	CheckoutStatus(ctx context.Context, sessionID string) (*domain.CheckoutSessionStatus, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

type CheckoutHandler struct {
	carts        *cart.Registry
	client       CheckoutClient
	publisher    events.Publisher
	flowOpts     confirmation.Options
	publicOrigin string
	timeout      time.Duration
	maxBody      int64
}

func NewCheckoutHandler(carts *cart.Registry, client CheckoutClient, publisher events.Publisher, flowOpts confirmation.Options, publicOrigin string, timeout time.Duration, maxBody int64) *CheckoutHandler {
	return &CheckoutHandler{
		carts:        carts,
		client:       client,
		publisher:    publisher,
		flowOpts:     flowOpts,
		publicOrigin: publicOrigin,
		timeout:      timeout,
		maxBody:      maxBody,
	}
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	OrderNumber string `json:"order_number"`
}

type ConfirmationResponse struct {
	State             string        `json:"state"`
	Title             string        `json:"title"`
	Message           string        `json:"message"`
	Order             *domain.Order `json:"order,omitempty"`
	ConfirmationEmail string        `json:"confirmation_email,omitempty"`
	ReturnPath        string        `json:"return_path"`
}

func (h *CheckoutHandler) pendingFor(r *http.Request) *checkout.PendingOrders {
	return checkout.NewPendingOrders(h.carts.Storage(getSessionID(r.Context())))
}

// Checkout submits the shipping form and answers 201 with the hosted
// payment URL. The page navigates there itself.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var address domain.ShippingAddress
	if !decodeJSON(w, r, h.maxBody, &address) {
		return
	}

	store, ok := sessionCart(w, r, h.carts)
	if !ok {
		return
	}
	res, err := checkout.NewSubmitter(h.client, h.pendingFor(r)).Submit(ctx, address, store.Items(), h.origin(r))

	var verr *checkout.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  verr.Error(),
			Code:   "validation_failed",
			Fields: verr.Fields,
		})
		return
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "your bag is empty")
		return
	case errors.Is(err, checkout.ErrMissingCheckoutURL):
		respondError(w, http.StatusBadGateway, "bad_gateway", "Something went wrong. Please try again.")
		return
	default:
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponse{
		CheckoutURL: res.CheckoutURL,
		OrderNumber: res.OrderNumber,
	})
}

// Confirmation settles the payment session named by ?session_id. Polling
// stops as soon as the request goes away.
func (h *CheckoutHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	store, ok := sessionCart(w, r, h.carts)
	if !ok {
		return
	}
	flow := confirmation.NewFlow(
		h.client,
		store,
		h.pendingFor(r),
		h.publisher,
		h.flowOpts,
	)

	res := flow.Run(r.Context(), r.URL.Query().Get("session_id"))
	if res.State == domain.ConfirmationChecking {
		respondError(w, http.StatusGatewayTimeout, "timeout", "payment confirmation was interrupted")
		return
	}

	respondJSON(w, http.StatusOK, confirmationView(res))
}

func confirmationView(res confirmation.Result) ConfirmationResponse {
	switch res.State {
	case domain.ConfirmationExpired:
		return ConfirmationResponse{
			State:      res.State.String(),
			Title:      "Session Expired",
			Message:    "Your payment session has expired. Please try again.",
			ReturnPath: "/cart",
		}
	case domain.ConfirmationError:
		return ConfirmationResponse{
			State:      res.State.String(),
			Title:      "Payment Error",
			Message:    "Something went wrong with your payment. Please try again.",
			ReturnPath: "/cart",
		}
	}

	view := ConfirmationResponse{
		State:      res.State.String(),
		Title:      "Thank You for Your Order!",
		Message:    "We've received your order and will begin processing it shortly.",
		Order:      res.Order,
		ReturnPath: "/shop",
	}
	if res.Order != nil {
		view.ConfirmationEmail = res.Order.ShippingAddress.Email
	}
	return view
}

// origin is where the payment page sends the shopper back to.
func (h *CheckoutHandler) origin(r *http.Request) string {
	if h.publicOrigin != "" {
		return h.publicOrigin
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
