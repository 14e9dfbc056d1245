package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/beautivra/storefront/internal/api"
)

type MessagesClient interface {
	SubscribeNewsletter(ctx context.Context, email string) (*api.Message, error)
	SendContact(ctx context.Context, in api.ContactMessage) (*api.Message, error)
}

type MessagesHandler struct {
	client  MessagesClient
	timeout time.Duration
	maxBody int64
}

func NewMessagesHandler(client MessagesClient, timeout time.Duration, maxBody int64) *MessagesHandler {
	return &MessagesHandler{client: client, timeout: timeout, maxBody: maxBody}
}

type NewsletterRequestDTO struct {
	Email string `json:"email"`
}

func (h *MessagesHandler) Newsletter(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req NewsletterRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "Please enter your email",
			Code:   "validation_failed",
			Fields: map[string]string{"email": "Email is required"},
		})
		return
	}

	msg, err := h.client.SubscribeNewsletter(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, msg)
}

func (h *MessagesHandler) Contact(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req api.ContactMessage
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	fields := map[string]string{}
	for name, value := range map[string]string{
		"name":    req.Name,
		"email":   req.Email,
		"subject": req.Subject,
		"message": req.Message,
	} {
		if strings.TrimSpace(value) == "" {
			fields[name] = "This field is required"
		}
	}
	if len(fields) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "Please fill in all fields",
			Code:   "validation_failed",
			Fields: fields,
		})
		return
	}

	msg, err := h.client.SendContact(ctx, req)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, msg)
}
