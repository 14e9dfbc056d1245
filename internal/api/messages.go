package api

import (
	"context"
)

// Message is the acknowledgement returned by the newsletter, contact and
// delete endpoints.
type Message struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (c *Client) SubscribeNewsletter(ctx context.Context, email string) (*Message, error) {
	var msg Message
	if err := c.post(ctx, "/newsletter", map[string]string{"email": email}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) SendContact(ctx context.Context, in ContactMessage) (*Message, error) {
	var msg Message
	if err := c.post(ctx, "/contact", in, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
