// Package stdout implements a Transport that prints emails to standard
// output, for local development without provider credentials.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/shineum/bulk-mailer/internal/email"
	"github.com/shineum/bulk-mailer/internal/provider"
)

// Transport prints email messages to stdout in a human-readable format.
type Transport struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Transport that writes to os.Stdout.
func New() *Transport {
	return &Transport{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Transport that writes to the given
// writer. This is useful for testing.
func NewWithWriter(w io.Writer) *Transport {
	return &Transport{writer: w}
}

// Send prints the message to stdout in a readable format and reports it as
// sent. It never fails.
func (t *Transport) Send(_ context.Context, msg *email.Message) (*provider.DeliveryResult, error) {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString(fmt.Sprintf("From: %s <%s>\n", msg.From.Name, msg.From.Email))
	b.WriteString(fmt.Sprintf("To: %s\n", strings.Join(msg.To, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\n", msg.Subject))
	b.WriteString("Body:\n")
	b.WriteString(msg.HTMLBody + "\n")

	if len(msg.Attachments) > 0 {
		attachments := make([]string, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			label := fmt.Sprintf("%s (%s, %s)", att.Filename, att.Disposition, formatSize(len(att.Content)))
			if att.ContentID != "" {
				label += " cid:" + att.ContentID
			}
			attachments = append(attachments, label)
		}
		b.WriteString(fmt.Sprintf("Attachments: %s\n", strings.Join(attachments, ", ")))
	}

	b.WriteString("========================================\n")

	// A write error to stdout is not a delivery failure for this transport.
	fmt.Fprint(t.writer, b.String())

	return &provider.DeliveryResult{
		MessageID: uuid.NewString(),
		Status:    provider.StatusSent,
	}, nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
