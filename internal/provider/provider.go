// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"
	"strings"

	"github.com/shineum/bulk-mailer/internal/email"
)

// Transport is the interface that email delivery backends must implement.
// Each transport handles the actual sending of one composed message envelope
// to the target service (e.g., SendGrid, AWS SES, stdout).
type Transport interface {
	// Send delivers a message through this transport. It returns a delivery
	// result when the provider accepted the message, or an error (possibly a
	// *SendError carrying structured provider detail) when it did not.
	Send(ctx context.Context, msg *email.Message) (*DeliveryResult, error)

	// Name returns the human-readable name of this transport.
	Name() string
}

// DeliveryStatus represents the outcome of a delivery attempt.
type DeliveryStatus string

const (
	StatusSent   DeliveryStatus = "sent"
	StatusFailed DeliveryStatus = "failed"
)

// DeliveryResult contains the outcome of a single transport call.
type DeliveryResult struct {
	MessageID  string
	StatusCode int
	Status     DeliveryStatus
}

// ErrorDetail is one structured sub-error returned by a provider API.
type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// SendError is a provider rejection carrying the HTTP status and any
// structured sub-errors the provider included in its response body.
type SendError struct {
	StatusCode int
	Errs       []ErrorDetail
}

func (e *SendError) Error() string {
	if msg := e.Messages(); msg != "" {
		return "provider rejected message: " + msg
	}
	return "provider rejected message"
}

// Messages concatenates the structured sub-error messages, separated by
// "; ". It returns an empty string when the provider sent no detail.
func (e *SendError) Messages() string {
	parts := make([]string, 0, len(e.Errs))
	for _, d := range e.Errs {
		if d.Message != "" {
			parts = append(parts, d.Message)
		}
	}
	return strings.Join(parts, "; ")
}
