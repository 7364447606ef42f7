// Package main is the entry point for the bulk-mailer dashboard.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shineum/bulk-mailer/internal/config"
	"github.com/shineum/bulk-mailer/internal/email"
	"github.com/shineum/bulk-mailer/internal/provider"
	"github.com/shineum/bulk-mailer/internal/provider/sendgrid"
	"github.com/shineum/bulk-mailer/internal/provider/ses"
	"github.com/shineum/bulk-mailer/internal/provider/stdout"
	"github.com/shineum/bulk-mailer/internal/server"
	mailertls "github.com/shineum/bulk-mailer/internal/tls"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	flag.Parse()

	// A missing .env file is fine; the environment may be set by the host.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging.Level)

	trans := selectTransport(cfg)

	if !cfg.SenderConfigured() && trans.Name() != "stdout" {
		slog.Error("SENDER_EMAIL is required for real delivery transports")
		os.Exit(1)
	}

	var tlsConfig *tls.Config
	if cfg.TLS.Enabled {
		tlsConfig, err = mailertls.LoadOrGenerateTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			slog.Error("failed to setup TLS", "error", err)
			os.Exit(1)
		}
	}

	srv := server.New(server.ServerConfig{
		ListenAddr: cfg.HTTP.Listen,
		From: email.Address{
			Email: cfg.Sender.Email,
			Name:  cfg.Sender.Name,
		},
		Transport:         trans,
		BatchSize:         cfg.Send.BatchSize,
		BatchDelay:        time.Duration(cfg.Send.BatchDelayMS) * time.Millisecond,
		MaxAttachments:    cfg.Send.MaxAttachments,
		MaxAttachmentSize: cfg.Send.MaxAttachmentSize,
		TLSConfig:         tlsConfig,
	})

	slog.Info("starting bulk-mailer",
		"listen", cfg.HTTP.Listen,
		"transport", trans.Name(),
		"sender", cfg.Sender.Email,
		"batch_size", cfg.Send.BatchSize,
	)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, initiating shutdown", "signal", sig)
		cancel()
	}()

	if err := srv.ListenAndServe(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("bulk-mailer stopped")
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectTransport chooses the email delivery backend based on configuration.
// If the PROVIDER env var is set, it takes precedence. Otherwise, it falls
// back to auto-detection (SendGrid if configured, then SES, else stdout).
func selectTransport(cfg *config.Config) provider.Transport {
	switch cfg.Provider {
	case "sendgrid":
		if !cfg.SendGridConfigured() {
			slog.Error("SendGrid transport selected but SENDGRID_API_KEY is required")
			os.Exit(1)
		}
		slog.Info("using SendGrid transport")
		t, err := sendgrid.New(sendgrid.Config{APIKey: cfg.SendGrid.APIKey})
		if err != nil {
			slog.Error("failed to create SendGrid transport", "error", err)
			os.Exit(1)
		}
		return t

	case "ses":
		if !cfg.SESConfigured() {
			slog.Error("SES transport selected but SES_REGION is required")
			os.Exit(1)
		}
		slog.Info("using AWS SES transport", "region", cfg.SES.Region)
		t, err := ses.New(context.Background(), ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})
		if err != nil {
			slog.Error("failed to create SES transport", "error", err)
			os.Exit(1)
		}
		return t

	case "stdout":
		slog.Info("using stdout transport")
		return stdout.New()

	case "":
		// Auto-detection fallback
		if cfg.SendGridConfigured() {
			slog.Info("using SendGrid transport (auto-detected)")
			t, err := sendgrid.New(sendgrid.Config{APIKey: cfg.SendGrid.APIKey})
			if err != nil {
				slog.Error("failed to create SendGrid transport", "error", err)
				os.Exit(1)
			}
			return t
		}
		if cfg.SESConfigured() {
			slog.Info("using AWS SES transport (auto-detected)", "region", cfg.SES.Region)
			t, err := ses.New(context.Background(), ses.Config{
				Region:          cfg.SES.Region,
				AccessKeyID:     cfg.SES.AccessKeyID,
				SecretAccessKey: cfg.SES.SecretAccessKey,
			})
			if err != nil {
				slog.Error("failed to create SES transport", "error", err)
				os.Exit(1)
			}
			return t
		}
		slog.Info("no transport configured, using stdout transport")
		return stdout.New()

	default:
		slog.Error("unknown provider", "provider", cfg.Provider)
		os.Exit(1)
		return nil
	}
}
