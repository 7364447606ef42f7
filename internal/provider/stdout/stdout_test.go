package stdout

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shineum/bulk-mailer/internal/email"
	"github.com/shineum/bulk-mailer/internal/provider"
)

func TestName(t *testing.T) {
	t.Parallel()
	if got := New().Name(); got != "stdout" {
		t.Errorf("Name(): got %q, want %q", got, "stdout")
	}
}

func TestSend_PrintsMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	trans := NewWithWriter(&buf)

	msg := &email.Message{
		From:     email.Address{Email: "sender@example.com", Name: "Campaigns"},
		To:       []string{"alice@example.com", "bob@example.com"},
		Subject:  "Hello",
		HTMLBody: "<p>body</p>",
	}

	res, err := trans.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != provider.StatusSent {
		t.Errorf("Status: got %q, want sent", res.Status)
	}
	if res.MessageID == "" {
		t.Error("MessageID should not be empty")
	}

	out := buf.String()
	for _, want := range []string{
		"From: Campaigns <sender@example.com>",
		"To: alice@example.com, bob@example.com",
		"Subject: Hello",
		"<p>body</p>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSend_PrintsAttachmentSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	trans := NewWithWriter(&buf)

	msg := &email.Message{
		From:     email.Address{Email: "sender@example.com"},
		To:       []string{"to@example.com"},
		Subject:  "With files",
		HTMLBody: "<p>see attached</p>",
		Attachments: []email.Attachment{
			{
				Filename:    "report.pdf",
				ContentType: "application/pdf",
				Content:     make([]byte, 2048),
				Disposition: email.DispositionAttachment,
			},
			{
				Filename:    "logo.png",
				ContentType: "image/png",
				Content:     []byte("png"),
				Disposition: email.DispositionInline,
				ContentID:   "img1.x@bulk-mailer",
			},
		},
	}

	if _, err := trans.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "report.pdf (attachment, 2.0 KB)") {
		t.Errorf("output missing attachment summary:\n%s", out)
	}
	if !strings.Contains(out, "logo.png (inline, 3 B) cid:img1.x@bulk-mailer") {
		t.Errorf("output missing inline summary:\n%s", out)
	}
}

func TestSend_UniqueMessageIDs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	trans := NewWithWriter(&buf)

	msg := &email.Message{
		From:     email.Address{Email: "s@x.com"},
		To:       []string{"to@example.com"},
		Subject:  "x",
		HTMLBody: "<p>x</p>",
	}

	first, err := trans.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := trans.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.MessageID == second.MessageID {
		t.Errorf("message IDs collide: %q", first.MessageID)
	}
}
