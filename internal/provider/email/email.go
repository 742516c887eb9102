// Package email holds the email delivery provider clients.
package email

import (
	"context"
	"errors"
	"fmt"
)

// BatchLimit is the provider's maximum number of messages per batch call.
const BatchLimit = 100

var ErrBatchUnsupported = errors.New("provider does not support batch sends")

type Message struct {
	From    string            `json:"from"`
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html,omitempty"`
	Text    string            `json:"text,omitempty"`
	ReplyTo string            `json:"reply_to,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Provider sends single messages or batches of up to BatchLimit.
type Provider interface {
	Send(ctx context.Context, msg Message) (string, error)
	SendBatch(ctx context.Context, msgs []Message) ([]string, error)
}

// APIError is a provider rejection. StatusCode makes 429s visible to the
// retry classifier.
type APIError struct {
	Status  int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("email provider error %d (%s): %s", e.Status, e.Name, e.Message)
	}
	return fmt.Sprintf("email provider error %d: %s", e.Status, e.Message)
}

func (e *APIError) StatusCode() int { return e.Status }
