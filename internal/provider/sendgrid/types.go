// Package sendgrid implements a Transport that sends emails via the
// SendGrid v3 Mail Send API.
package sendgrid

import (
	"encoding/base64"

	"github.com/shineum/bulk-mailer/internal/email"
	"github.com/shineum/bulk-mailer/internal/provider"
)

// mailSendRequest is the top-level request body for the v3 mail/send endpoint.
type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
	Attachments      []sgAttachment    `json:"attachments,omitempty"`
}

// personalization carries the recipient set of one message.
type personalization struct {
	To []emailAddress `json:"to"`
}

// emailAddress represents an address in a mail/send request.
type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// content represents one body part of the message.
type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// sgAttachment represents a file attachment in a mail/send request.
type sgAttachment struct {
	Content     string `json:"content"`
	Type        string `json:"type,omitempty"`
	Filename    string `json:"filename"`
	Disposition string `json:"disposition,omitempty"`
	ContentID   string `json:"content_id,omitempty"`
}

// errorResponse represents an error response body from the v3 API.
type errorResponse struct {
	Errors []provider.ErrorDetail `json:"errors"`
}

// buildMailSendRequest converts an email.Message into a v3 mail/send request
// body.
func buildMailSendRequest(msg *email.Message) *mailSendRequest {
	to := make([]emailAddress, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, emailAddress{Email: addr})
	}

	attachments := make([]sgAttachment, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, sgAttachment{
			Content:     base64.StdEncoding.EncodeToString(att.Content),
			Type:        att.ContentType,
			Filename:    att.Filename,
			Disposition: string(att.Disposition),
			ContentID:   att.ContentID,
		})
	}

	return &mailSendRequest{
		Personalizations: []personalization{{To: to}},
		From: emailAddress{
			Email: msg.From.Email,
			Name:  msg.From.Name,
		},
		Subject: msg.Subject,
		Content: []content{{Type: "text/html", Value: msg.HTMLBody}},
		Attachments: attachments,
	}
}
