package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shineum/bulk-mailer/internal/email"
	"github.com/shineum/bulk-mailer/internal/provider"
)

// defaultAPIURL is the production v3 Mail Send endpoint.
const defaultAPIURL = "https://api.sendgrid.com/v3/mail/send"

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// Config holds the configuration for creating a SendGrid transport.
type Config struct {
	APIKey string
}

// Transport sends emails via the SendGrid v3 Mail Send API.
type Transport struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// New creates a new SendGrid Transport. The API key is explicit constructor
// configuration; an absent key fails fast here rather than at send time.
func New(cfg Config) (*Transport, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sendgrid: API key is required")
	}
	return &Transport{
		apiKey:     cfg.APIKey,
		apiURL:     defaultAPIURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// newWithOverrides creates a Transport with a custom endpoint and HTTP
// client, used for testing.
func newWithOverrides(cfg Config, apiURL string, client *http.Client) *Transport {
	return &Transport{
		apiKey:     cfg.APIKey,
		apiURL:     apiURL,
		httpClient: client,
	}
}

// Send delivers one message via the v3 Mail Send API. Transient failures
// (HTTP 429 and 5xx) are retried with exponential backoff, respecting a
// Retry-After header when present. Rejections come back as *provider.SendError
// carrying the structured sub-errors from the response body.
func (t *Transport) Send(ctx context.Context, msg *email.Message) (*provider.DeliveryResult, error) {
	bodyJSON, err := json.Marshal(buildMailSendRequest(msg))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying SendGrid API request",
				"attempt", attempt,
				"max_retries", maxRetries,
			)
		}

		res, err := t.doSendRequest(ctx, bodyJSON)
		if err == nil {
			return res, nil
		}
		lastErr = err

		apiErr, ok := err.(*apiError)
		if !ok {
			return nil, err
		}

		switch {
		case apiErr.statusCode == http.StatusTooManyRequests:
			delay := retryAfterDelay(apiErr.retryAfter, attempt)
			slog.Info("rate limited by SendGrid API", "retry_after", delay)
			if err := sleepWithContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		case apiErr.statusCode >= 500 || apiErr.statusCode == 0:
			delay := backoffDelay(attempt)
			slog.Info("transient SendGrid API error, retrying",
				"status", apiErr.statusCode,
				"delay", delay,
			)
			if err := sleepWithContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		default:
			// Client errors are permanent; surface the structured detail.
			return nil, apiErr.sendError()
		}
	}

	if apiErr, ok := lastErr.(*apiError); ok {
		return nil, apiErr.sendError()
	}
	return nil, fmt.Errorf("SendGrid API request failed after %d retries: %w", maxRetries, lastErr)
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "sendgrid"
}

// doSendRequest performs a single HTTP request to the mail/send endpoint.
func (t *Transport) doSendRequest(ctx context.Context, bodyJSON []byte) (*provider.DeliveryResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &apiError{message: fmt.Sprintf("HTTP request failed: %v", err)}
	}
	defer resp.Body.Close()

	// HTTP 202 Accepted is success for mail/send
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return &provider.DeliveryResult{
			MessageID:  resp.Header.Get("X-Message-Id"),
			StatusCode: resp.StatusCode,
			Status:     provider.StatusSent,
		}, nil
	}

	body, _ := io.ReadAll(resp.Body)

	apiErr := &apiError{
		statusCode: resp.StatusCode,
		message:    string(body),
		retryAfter: resp.Header.Get("Retry-After"),
	}
	var errResp errorResponse
	if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && len(errResp.Errors) > 0 {
		apiErr.details = errResp.Errors
	}
	return nil, apiErr
}

// apiError is an error from the SendGrid API with enough classification for
// the retry loop.
type apiError struct {
	message    string
	statusCode int
	retryAfter string
	details    []provider.ErrorDetail
}

func (e *apiError) Error() string {
	return fmt.Sprintf("SendGrid API error (HTTP %d): %s", e.statusCode, e.message)
}

// sendError converts an apiError into the structured *provider.SendError the
// orchestrator knows how to unpack.
func (e *apiError) sendError() *provider.SendError {
	details := e.details
	if len(details) == 0 && e.message != "" {
		details = []provider.ErrorDetail{{Message: e.message}}
	}
	return &provider.SendError{
		StatusCode: e.statusCode,
		Errs:       details,
	}
}

// retryAfterDelay parses the Retry-After header value and returns the
// appropriate delay, falling back to exponential backoff.
func retryAfterDelay(retryAfter string, attempt int) time.Duration {
	if retryAfter == "" {
		return backoffDelay(attempt)
	}
	seconds, err := strconv.Atoi(retryAfter)
	if err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return backoffDelay(attempt)
}

// backoffDelay returns the exponential backoff delay for the given attempt
// number. Delays are: 1s, 2s, 4s
func backoffDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleepWithContext waits for the specified duration or until the context is
// cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
