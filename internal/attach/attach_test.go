package attach

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shineum/bulk-mailer/internal/email"
	"github.com/shineum/bulk-mailer/internal/inline"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestAssemble_UserFilesAndInlineImages(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	reportPath := writeTempFile(t, dir, "report.pdf", "pdf-bytes")
	logoPath := writeTempFile(t, dir, "logo.png", "png-bytes")

	files := []inline.Upload{{Name: "report.pdf", Path: reportPath}}
	images := []inline.MatchedImage{{
		Reference: "logo.png",
		Filename:  "logo.png",
		Source:    inline.Upload{Name: "logo.png", Path: logoPath},
		ContentID: "img1.x@bulk-mailer",
	}}

	attachments := Assemble(files, images)
	if len(attachments) != 2 {
		t.Fatalf("attachments: got %d, want 2", len(attachments))
	}

	report := attachments[0]
	if report.Filename != "report.pdf" {
		t.Errorf("Filename: got %q, want %q", report.Filename, "report.pdf")
	}
	if report.ContentType != "application/pdf" {
		t.Errorf("ContentType: got %q, want %q", report.ContentType, "application/pdf")
	}
	if report.Disposition != email.DispositionAttachment {
		t.Errorf("Disposition: got %q, want attachment", report.Disposition)
	}
	if report.ContentID != "" {
		t.Errorf("ContentID: got %q, want empty", report.ContentID)
	}
	if string(report.Content) != "pdf-bytes" {
		t.Errorf("Content: got %q, want %q", report.Content, "pdf-bytes")
	}

	logo := attachments[1]
	if logo.Disposition != email.DispositionInline {
		t.Errorf("Disposition: got %q, want inline", logo.Disposition)
	}
	if logo.ContentID != "img1.x@bulk-mailer" {
		t.Errorf("ContentID: got %q, want %q", logo.ContentID, "img1.x@bulk-mailer")
	}
	if logo.ContentType != "image/png" {
		t.Errorf("ContentType: got %q, want %q", logo.ContentType, "image/png")
	}
}

func TestAssemble_SkipsUnreadableFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	goodPath := writeTempFile(t, dir, "notes.txt", "hello")

	files := []inline.Upload{
		{Name: "gone.pdf", Path: filepath.Join(dir, "does-not-exist")},
		{Name: "notes.txt", Path: goodPath},
	}
	images := []inline.MatchedImage{{
		Reference: "gone.png",
		Source:    inline.Upload{Name: "gone.png", Path: filepath.Join(dir, "also-missing")},
		ContentID: "cid-x",
	}}

	attachments := Assemble(files, images)
	if len(attachments) != 1 {
		t.Fatalf("attachments: got %d, want 1", len(attachments))
	}
	if attachments[0].Filename != "notes.txt" {
		t.Errorf("Filename: got %q, want %q", attachments[0].Filename, "notes.txt")
	}
}

func TestMediaType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		filename string
		want     string
	}{
		{"photo.JPG", "image/jpeg"},
		{"photo.jpeg", "image/jpeg"},
		{"icon.png", "image/png"},
		{"anim.gif", "image/gif"},
		{"doc.pdf", "application/pdf"},
		{"letter.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"memo.doc", "application/msword"},
		{"notes.txt", "text/plain"},
		{"bundle.zip", "application/zip"},
		{"mystery.xyz", "application/octet-stream"},
		{"noext", "application/octet-stream"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.filename, func(t *testing.T) {
			t.Parallel()
			if got := MediaType(tc.filename); got != tc.want {
				t.Errorf("MediaType(%q): got %q, want %q", tc.filename, got, tc.want)
			}
		})
	}
}
