// Package bulk drives a multi-batch email send: it validates and deduplicates
// the recipient list, partitions it into fixed-size batches, sends each batch
// through a delivery transport and accounts for successes and failures under
// partial failure.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shineum/bulk-mailer/internal/email"
	"github.com/shineum/bulk-mailer/internal/provider"
	"github.com/shineum/bulk-mailer/internal/recipients"
)

// DefaultBatchSize is the number of recipients per transport call when the
// caller does not override it.
const DefaultBatchSize = 100

// DefaultBatchDelay is the pause between consecutive batches, smoothing
// provider rate-limit pressure. It is a cooperative yield, not a timing
// guarantee.
const DefaultBatchDelay = 1 * time.Second

// ErrNoRecipients is returned when validation leaves an empty recipient list.
// No transport call is made in that case.
var ErrNoRecipients = errors.New("no valid recipients after filtering")

// Progress is the cumulative state reported after each batch.
type Progress struct {
	Processed int
	Total     int
	Succeeded int
	Failed    int
}

// ProgressFunc receives a Progress notification synchronously after every
// batch, in batch order, exactly once per batch.
type ProgressFunc func(Progress)

// Options configures a bulk send.
type Options struct {
	BatchSize  int
	BatchDelay time.Duration
	OnProgress ProgressFunc
}

// BatchError records one failed batch: the recipients it carried and the
// provider's message.
type BatchError struct {
	Recipients []string
	Message    string
	StatusCode int
}

// Result is the aggregate outcome of a bulk send. Succeeded+Failed always
// equals Total when Send returns.
type Result struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    []BatchError
}

// OK reports whether anything was delivered. A partial failure is still a
// successful send; the failure detail rides along in Errors.
func (r *Result) OK() bool {
	return r.Succeeded > 0
}

// Send validates raw recipients, batches them and sends each batch through
// the transport in order. A failed batch is recorded and counted, never
// fatal; the send always runs over all batches and returns an accounting
// that covers every validated recipient.
func Send(ctx context.Context, transport provider.Transport, msg *email.Message, rawRecipients []string, opts Options) (*Result, error) {
	validated := recipients.Normalize(rawRecipients)
	if len(validated) == 0 {
		return nil, ErrNoRecipients
	}

	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = DefaultBatchDelay
	}

	batches := partition(validated, opts.BatchSize)
	result := &Result{Total: len(validated)}

	slog.Info("starting bulk send",
		"recipients", result.Total,
		"batches", len(batches),
		"batch_size", opts.BatchSize,
		"transport", transport.Name(),
	)

	processed := 0
	for i, batch := range batches {
		if i > 0 {
			waitBetweenBatches(ctx, opts.BatchDelay)
		}

		batchMsg := *msg
		batchMsg.To = batch

		res, err := transport.Send(ctx, &batchMsg)
		switch {
		case err != nil:
			be := BatchError{Recipients: batch, Message: err.Error()}
			var sendErr *provider.SendError
			if errors.As(err, &sendErr) {
				be.StatusCode = sendErr.StatusCode
				if detail := sendErr.Messages(); detail != "" {
					be.Message = detail
				}
			}
			result.Failed += len(batch)
			result.Errors = append(result.Errors, be)
			slog.Warn("batch send failed",
				"batch", i+1,
				"recipients", len(batch),
				"error", err,
			)

		case res == nil || res.Status != provider.StatusSent:
			status := provider.DeliveryStatus("none")
			if res != nil {
				status = res.Status
			}
			result.Failed += len(batch)
			result.Errors = append(result.Errors, BatchError{
				Recipients: batch,
				Message:    fmt.Sprintf("transport %s returned unrecognized delivery status %q", transport.Name(), status),
			})
			slog.Warn("batch not accepted",
				"batch", i+1,
				"recipients", len(batch),
				"status", status,
			)

		default:
			result.Succeeded += len(batch)
		}

		processed += len(batch)
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{
				Processed: processed,
				Total:     result.Total,
				Succeeded: result.Succeeded,
				Failed:    result.Failed,
			})
		}
	}

	reconcile(result)
	return result, nil
}

// SendOne sends a message to a single recipient without batching. Unlike the
// bulk path, a transport failure here is a hard failure of the whole request.
func SendOne(ctx context.Context, transport provider.Transport, msg *email.Message) (*provider.DeliveryResult, error) {
	res, err := transport.Send(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("send failed: %w", err)
	}
	if res == nil || res.Status != provider.StatusSent {
		return nil, fmt.Errorf("transport %s did not accept the message", transport.Name())
	}
	return res, nil
}

// partition splits the validated list into contiguous chunks of at most size
// recipients, preserving order. The last chunk may be shorter.
func partition(list []string, size int) [][]string {
	batches := make([][]string, 0, (len(list)+size-1)/size)
	for start := 0; start < len(list); start += size {
		end := start + size
		if end > len(list) {
			end = len(list)
		}
		batches = append(batches, list[start:end])
	}
	return batches
}

// waitBetweenBatches pauses before the next batch. A cancelled context cuts
// the pause short; the send itself still visits every remaining batch so the
// final accounting covers all recipients.
func waitBetweenBatches(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// reconcile enforces Succeeded+Failed == Total. A divergence means a
// transport double-counted somewhere; it is corrected deterministically and
// logged, never silently dropped.
func reconcile(r *Result) {
	if r.Succeeded+r.Failed == r.Total {
		return
	}
	slog.Warn("send accounting mismatch, reconciling",
		"total", r.Total,
		"succeeded", r.Succeeded,
		"failed", r.Failed,
	)
	if r.Succeeded > r.Total {
		r.Succeeded = r.Total
	}
	r.Failed = r.Total - r.Succeeded
}
