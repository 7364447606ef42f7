package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/shineum/bulk-mailer/internal/attach"
	"github.com/shineum/bulk-mailer/internal/bulk"
	"github.com/shineum/bulk-mailer/internal/email"
	"github.com/shineum/bulk-mailer/internal/inline"
	"github.com/shineum/bulk-mailer/internal/recipients"
)

// maxFormMemory is how much of a multipart body is held in memory before
// spilling to disk.
const maxFormMemory = 32 << 20

// sendResponse is the JSON body returned by /api/send.
type sendResponse struct {
	OK              bool             `json:"ok"`
	Total           int              `json:"total,omitempty"`
	Succeeded       int              `json:"succeeded,omitempty"`
	Failed          int              `json:"failed,omitempty"`
	Errors          []batchErrorBody `json:"errors,omitempty"`
	MessageID       string           `json:"message_id,omitempty"`
	StatusCode      int              `json:"status_code,omitempty"`
	UnmatchedImages []string         `json:"unmatched_images,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// batchErrorBody is one failed batch in the response.
type batchErrorBody struct {
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
	StatusCode int      `json:"status_code,omitempty"`
}

// handleSend is the dashboard's send endpoint. It collects the subject, HTML
// body, recipients (manual entry and/or CSV), attachment files and template
// image files from the multipart form, runs the image pipeline, and sends
// through the configured transport. Bulk sends always answer 200 with the
// aggregate result, even under partial failure; a single-recipient send
// answers 502 when its one transport call fails.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, sendResponse{Error: "invalid multipart form: " + err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	subject := r.FormValue("subject")
	htmlBody := r.FormValue("html")
	if subject == "" || htmlBody == "" {
		writeJSON(w, http.StatusBadRequest, sendResponse{Error: "subject and html are required"})
		return
	}

	rawRecipients := recipients.ParseList(r.FormValue("recipients"))
	rawRecipients = append(rawRecipients, s.csvRecipients(r)...)

	validated := recipients.Normalize(rawRecipients)
	if len(validated) == 0 {
		writeJSON(w, http.StatusBadRequest, sendResponse{Error: "no valid recipients"})
		return
	}

	// Uploads live in a per-request temp dir; the handler owns cleanup on
	// every path, success and failure alike.
	tmpDir, err := os.MkdirTemp("", "bulk-mailer-")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, sendResponse{Error: "failed to stage uploads"})
		return
	}
	defer os.RemoveAll(tmpDir)

	files, err := s.saveUploads(r, "attachments", tmpDir)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, sendResponse{Error: err.Error()})
		return
	}
	images, err := s.saveUploads(r, "images", tmpDir)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, sendResponse{Error: err.Error()})
		return
	}

	refs := inline.ExtractRefs(htmlBody)
	matched, unmatched := inline.Match(refs, images)
	for _, ref := range unmatched {
		slog.Warn("no upload matches image reference",
			"reference", ref.Reference,
			"filename", ref.Filename,
		)
	}

	msg := &email.Message{
		From:        s.config.From,
		Subject:     subject,
		HTMLBody:    inline.Rewrite(htmlBody, matched),
		Attachments: attach.Assemble(files, matched),
	}

	resp := sendResponse{UnmatchedImages: unmatchedNames(unmatched)}

	if len(validated) == 1 {
		msg.To = validated
		res, err := bulk.SendOne(r.Context(), s.config.Transport, msg)
		if err != nil {
			slog.Error("single send failed", "error", err)
			resp.Error = err.Error()
			writeJSON(w, http.StatusBadGateway, resp)
			return
		}
		resp.OK = true
		resp.MessageID = res.MessageID
		resp.StatusCode = res.StatusCode
		writeJSON(w, http.StatusOK, resp)
		return
	}

	result, err := bulk.Send(r.Context(), s.config.Transport, msg, validated, bulk.Options{
		BatchSize:  s.config.BatchSize,
		BatchDelay: s.config.BatchDelay,
		OnProgress: func(p bulk.Progress) {
			slog.Info("send progress",
				"processed", p.Processed,
				"total", p.Total,
				"succeeded", p.Succeeded,
				"failed", p.Failed,
			)
		},
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bulk.ErrNoRecipients) {
			status = http.StatusBadRequest
		}
		resp.Error = err.Error()
		writeJSON(w, status, resp)
		return
	}

	resp.OK = result.OK()
	resp.Total = result.Total
	resp.Succeeded = result.Succeeded
	resp.Failed = result.Failed
	for _, be := range result.Errors {
		resp.Errors = append(resp.Errors, batchErrorBody{
			Recipients: be.Recipients,
			Message:    be.Message,
			StatusCode: be.StatusCode,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// csvRecipients scans an optional uploaded CSV file for email addresses.
func (s *Server) csvRecipients(r *http.Request) []string {
	file, _, err := r.FormFile("csv")
	if err != nil {
		return nil
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.config.MaxAttachmentSize))
	if err != nil {
		slog.Warn("failed to read recipient CSV", "error", err)
		return nil
	}
	return recipients.ScanCSV(data)
}

// saveUploads persists the files of one multipart field into dir, enforcing
// the configured count and per-file size limits.
func (s *Server) saveUploads(r *http.Request, field, dir string) ([]inline.Upload, error) {
	headers := r.MultipartForm.File[field]
	if len(headers) > s.config.MaxAttachments {
		return nil, fmt.Errorf("too many %s files: %d exceeds limit of %d", field, len(headers), s.config.MaxAttachments)
	}

	uploads := make([]inline.Upload, 0, len(headers))
	for i, fh := range headers {
		if fh.Size > s.config.MaxAttachmentSize {
			return nil, fmt.Errorf("file %s exceeds size limit of %d bytes", fh.Filename, s.config.MaxAttachmentSize)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s-%d", field, i))
		if err := saveFile(fh, path); err != nil {
			return nil, fmt.Errorf("failed to stage file %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, inline.Upload{
			Name: filepath.Base(fh.Filename),
			Path: path,
			Size: fh.Size,
		})
	}
	return uploads, nil
}

func saveFile(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func unmatchedNames(refs []inline.ImageRef) []string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Reference)
	}
	return names
}

func writeJSON(w http.ResponseWriter, status int, body sendResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
