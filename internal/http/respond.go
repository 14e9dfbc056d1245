package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/beautivra/storefront/internal/api"
	"github.com/beautivra/storefront/internal/cart"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleBackendError converts a shop backend failure into the browser-facing
// status: missing resources stay 404, other client errors pass through, an
// open breaker is 503, a deadline is 504 and everything else is 502.
func handleBackendError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *api.Error
	switch {
	case errors.Is(err, api.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "shop backend is temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "shop backend did not respond in time")
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		respondError(w, http.StatusNotFound, "not_found", apiErr.Detail)
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		respondJSON(w, apiErr.StatusCode, ErrorResponse{
			Error:   "request rejected by shop backend",
			Code:    "backend_rejected",
			Details: apiErr.Detail,
		})
	default:
		slog.ErrorContext(r.Context(), "shop backend call failed", "path", r.URL.Path, "request_id", getRequestID(r.Context()), "error", err)
		respondError(w, http.StatusBadGateway, "bad_gateway", "shop backend error")
	}
}

// sessionCart returns the bag of the request's session, answering 503 when
// its storage cannot be read.
func sessionCart(w http.ResponseWriter, r *http.Request, carts *cart.Registry) (*cart.Store, bool) {
	store, err := carts.Get(r.Context(), getSessionID(r.Context()))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load cart", "request_id", getRequestID(r.Context()), "error", err)
		respondError(w, http.StatusServiceUnavailable, "cart_unavailable", "your bag is temporarily unavailable")
		return nil, false
	}
	return store, true
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v interface{}) bool {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
