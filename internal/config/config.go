// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the bulk mailer.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultMaxAttachmentSize is 10 MB in bytes.
const defaultMaxAttachmentSize = 10485760

// Config holds the complete application configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Provider string         `yaml:"provider"`
	Sender   SenderConfig   `yaml:"sender"`
	Send     SendConfig     `yaml:"send"`
	SendGrid SendGridConfig `yaml:"sendgrid"`
	SES      SESConfig      `yaml:"ses"`
	TLS      TLSConfig      `yaml:"tls"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HTTPConfig holds dashboard HTTP server configuration.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// SenderConfig holds the verified sender identity. Both fields are required
// at startup for any real delivery transport.
type SenderConfig struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// SendConfig holds batching and upload limits.
type SendConfig struct {
	BatchSize         int   `yaml:"batch_size"`
	BatchDelayMS      int   `yaml:"batch_delay_ms"`
	MaxAttachments    int   `yaml:"max_attachments"`
	MaxAttachmentSize int64 `yaml:"max_attachment_size"`
}

// SendGridConfig holds SendGrid API configuration.
type SendGridConfig struct {
	APIKey string `yaml:"api_key"`
}

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// TLSConfig holds TLS certificate file paths.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// SenderConfigured returns true if the verified sender email is set.
func (c *Config) SenderConfigured() bool {
	return c.Sender.Email != ""
}

// SendGridConfigured returns true if the SendGrid API key is set.
func (c *Config) SendGridConfigured() bool {
	return c.SendGrid.APIKey != ""
}

// SESConfigured returns true if the SES region is set.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.HTTP.Listen = ":8080"
	c.Send.BatchSize = 100
	c.Send.BatchDelayMS = 1000
	c.Send.MaxAttachments = 10
	c.Send.MaxAttachmentSize = defaultMaxAttachmentSize
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("HTTP_LISTEN"); v != "" {
		c.HTTP.Listen = v
	}
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("SENDER_EMAIL"); v != "" {
		c.Sender.Email = v
	}
	if v := os.Getenv("SENDER_NAME"); v != "" {
		c.Sender.Name = v
	}

	if v := os.Getenv("SEND_BATCH_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			c.Send.BatchSize = size
		}
	}
	if v := os.Getenv("SEND_BATCH_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Send.BatchDelayMS = ms
		}
	}
	if v := os.Getenv("SEND_MAX_ATTACHMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Send.MaxAttachments = n
		}
	}
	if v := os.Getenv("SEND_MAX_ATTACHMENT_SIZE"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Send.MaxAttachmentSize = size
		}
	}

	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		c.SendGrid.APIKey = v
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}

	if v := os.Getenv("TLS_ENABLED"); v != "" {
		c.TLS.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("TLS_CERT_FILE"); v != "" {
		c.TLS.CertFile = v
	}
	if v := os.Getenv("TLS_KEY_FILE"); v != "" {
		c.TLS.KeyFile = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
