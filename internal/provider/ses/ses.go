// Package ses implements a Transport that sends emails via AWS SES v2.
package ses

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/bulk-mailer/internal/email"
	"github.com/shineum/bulk-mailer/internal/provider"
)

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// Config holds the configuration for creating a SES transport.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Transport sends emails via the AWS SES v2 API.
type Transport struct {
	client SendEmailAPI
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// New creates a new SES Transport with the given configuration.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Transport{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// NewWithClient creates a Transport with a custom client, used for testing.
func NewWithClient(client SendEmailAPI) *Transport {
	return &Transport{client: client}
}

// Send delivers a message via AWS SES v2. Messages with attachments are sent
// as raw MIME so that inline content-identifier parts survive; plain HTML
// messages use the SES simple email format.
func (t *Transport) Send(ctx context.Context, msg *email.Message) (*provider.DeliveryResult, error) {
	var input *sesv2.SendEmailInput

	if len(msg.Attachments) > 0 {
		raw, err := buildRawMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to build raw message: %w", err)
		}
		input = &sesv2.SendEmailInput{
			Destination: &types.Destination{ToAddresses: msg.To},
			Content: &types.EmailContent{
				Raw: &types.RawMessage{
					Data: raw,
				},
			},
		}
	} else {
		input = buildSimpleInput(msg)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying SES API request",
				"attempt", attempt,
				"max_retries", maxRetries,
			)
			delay := backoffDelay(attempt)
			if err := sleepWithContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		}

		out, err := t.client.SendEmail(ctx, input)
		if err == nil {
			return &provider.DeliveryResult{
				MessageID: aws.ToString(out.MessageId),
				Status:    provider.StatusSent,
			}, nil
		}

		lastErr = err
		slog.Warn("SES API error",
			"attempt", attempt,
			"error", err,
		)
	}

	return nil, fmt.Errorf("SES API request failed after %d retries: %w", maxRetries, lastErr)
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "ses"
}

// buildSimpleInput creates a SES SendEmailInput for messages without
// attachments.
func buildSimpleInput(msg *email.Message) *sesv2.SendEmailInput {
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(formatFrom(msg.From)),
		Destination:      &types.Destination{ToAddresses: msg.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(msg.HTMLBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}
}

// buildRawMessage constructs a raw MIME message. The HTML body and any inline
// images live inside a multipart/related part so cid: references resolve;
// regular attachments follow in the outer multipart/mixed.
func buildRawMessage(msg *email.Message) ([]byte, error) {
	inline, regular := splitByDisposition(msg.Attachments)

	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", formatFrom(msg.From))
	if len(msg.To) > 0 {
		fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	mixed := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	if err := writeBodyPart(mixed, msg.HTMLBody, inline); err != nil {
		return nil, err
	}

	for _, att := range regular {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Type", att.ContentType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s", mime.QEncoding.Encode("UTF-8", att.Filename)))

		part, err := mixed.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment part: %w", err)
		}
		part.Write([]byte(encodeBase64WithLineBreaks(att.Content)))
	}

	mixed.Close()
	return buf.Bytes(), nil
}

// writeBodyPart writes the HTML body into the mixed writer, wrapping it in a
// multipart/related part together with any inline images.
func writeBodyPart(mixed *multipart.Writer, html string, inline []email.Attachment) error {
	if len(inline) == 0 {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Type", "text/html; charset=UTF-8")
		part, err := mixed.CreatePart(header)
		if err != nil {
			return fmt.Errorf("failed to create body part: %w", err)
		}
		part.Write([]byte(html))
		return nil
	}

	var related bytes.Buffer
	rel := multipart.NewWriter(&related)

	htmlHeader := make(textproto.MIMEHeader)
	htmlHeader.Set("Content-Type", "text/html; charset=UTF-8")
	htmlPart, err := rel.CreatePart(htmlHeader)
	if err != nil {
		return fmt.Errorf("failed to create html part: %w", err)
	}
	htmlPart.Write([]byte(html))

	for _, att := range inline {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Type", att.ContentType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-ID", "<"+att.ContentID+">")
		header.Set("Content-Disposition",
			fmt.Sprintf("inline; filename=%s", mime.QEncoding.Encode("UTF-8", att.Filename)))

		part, err := rel.CreatePart(header)
		if err != nil {
			return fmt.Errorf("failed to create inline part: %w", err)
		}
		part.Write([]byte(encodeBase64WithLineBreaks(att.Content)))
	}
	rel.Close()

	outerHeader := make(textproto.MIMEHeader)
	outerHeader.Set("Content-Type", fmt.Sprintf("multipart/related; boundary=%q", rel.Boundary()))
	outer, err := mixed.CreatePart(outerHeader)
	if err != nil {
		return fmt.Errorf("failed to create related part: %w", err)
	}
	outer.Write(related.Bytes())
	return nil
}

// splitByDisposition separates inline images from regular attachments.
func splitByDisposition(attachments []email.Attachment) (inline, regular []email.Attachment) {
	for _, att := range attachments {
		if att.Disposition == email.DispositionInline {
			inline = append(inline, att)
		} else {
			regular = append(regular, att)
		}
	}
	return inline, regular
}

// formatFrom renders the sender as "Name <email>" when a display name is set.
func formatFrom(from email.Address) string {
	if from.Name != "" {
		return fmt.Sprintf("%s <%s>", from.Name, from.Email)
	}
	return from.Email
}

// encodeBase64WithLineBreaks encodes bytes to base64 with 76-character line
// breaks per RFC 2045.
func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}

// backoffDelay returns the exponential backoff delay for the given attempt
// number.
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
