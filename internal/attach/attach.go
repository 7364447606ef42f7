// Package attach assembles the final attachment list for a message: user
// supplied files plus matched inline images, with media types inferred from
// file extensions.
package attach

import (
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/shineum/bulk-mailer/internal/email"
	"github.com/shineum/bulk-mailer/internal/inline"
)

// mediaTypes maps lowercased file extensions to MIME media types. Anything
// unlisted falls back to application/octet-stream.
var mediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".html": "text/html",
	".zip":  "application/zip",
}

const defaultMediaType = "application/octet-stream"

// Assemble builds the ordered attachment list: user files first with
// attachment disposition, then matched images with inline disposition and
// their content identifiers. A source file that cannot be read is skipped
// with a warning; one unreadable file never aborts the rest.
func Assemble(files []inline.Upload, images []inline.MatchedImage) []email.Attachment {
	attachments := make([]email.Attachment, 0, len(files)+len(images))

	for _, f := range files {
		content, err := os.ReadFile(f.Path)
		if err != nil {
			slog.Warn("skipping unreadable attachment",
				"filename", f.Name,
				"error", err,
			)
			continue
		}
		attachments = append(attachments, email.Attachment{
			Filename:    f.Name,
			ContentType: MediaType(f.Name),
			Content:     content,
			Disposition: email.DispositionAttachment,
		})
	}

	for _, img := range images {
		content, err := os.ReadFile(img.Source.Path)
		if err != nil {
			slog.Warn("skipping unreadable inline image",
				"filename", img.Source.Name,
				"reference", img.Reference,
				"error", err,
			)
			continue
		}
		attachments = append(attachments, email.Attachment{
			Filename:    img.Source.Name,
			ContentType: MediaType(img.Source.Name),
			Content:     content,
			Disposition: email.DispositionInline,
			ContentID:   img.ContentID,
		})
	}

	return attachments
}

// MediaType infers a media type from a filename's extension.
func MediaType(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if mt, ok := mediaTypes[ext]; ok {
		return mt
	}
	return defaultMediaType
}
