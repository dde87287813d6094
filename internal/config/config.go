package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderResend = "resend"
	ProviderSMTP   = "smtp"
)

type Config struct {
	// ----------------------------
	// Email
	// ----------------------------
	EmailProvider string `envconfig:"EMAIL_PROVIDER" default:"resend"`
	ResendAPIKey  string `envconfig:"RESEND_API_KEY" default:""`
	EmailFrom     string `envconfig:"EMAIL_FROM" default:"Club Play Days <noreply@example.com>"`
	EmailReplyTo  string `envconfig:"EMAIL_REPLY_TO" default:""`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUser     string `envconfig:"SMTP_USER" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`

	// ----------------------------
	// Sending
	// ----------------------------
	BaseURL     string        `envconfig:"BASE_URL" required:"true"`
	SendDelay   time.Duration `envconfig:"SEND_DELAY" default:"700ms"`
	TokenTTL    time.Duration `envconfig:"TOKEN_TTL" default:"168h"`
	SendRetries int           `envconfig:"SEND_RETRIES" default:"2"`

	// ----------------------------
	// Workers
	// ----------------------------
	// Each worker paces its own job by SEND_DELAY, so the gateway sees up to
	// WORKER_COUNT sends per delay window.
	WorkerCount      int           `envconfig:"WORKER_COUNT" default:"1"`
	QueueSize        int           `envconfig:"QUEUE_SIZE" default:"16"`
	DispatchSchedule string        `envconfig:"DISPATCH_SCHEDULE" default:""`
	StaleJobAfter    time.Duration `envconfig:"STALE_JOB_AFTER" default:"30m"`

	// ----------------------------
	// HTTP API
	// ----------------------------
	APIPort          string  `envconfig:"API_PORT" default:"8080"`
	TriggerRateLimit float64 `envconfig:"TRIGGER_RATE_LIMIT" default:"1"`
	TriggerBurst     int     `envconfig:"TRIGGER_BURST" default:"5"`
	CronSecret       string  `envconfig:"CRON_SECRET" default:""`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Database
	// ----------------------------
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"true"`

	// ----------------------------
	// Logging
	// ----------------------------
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process env config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements envconfig tags cannot express.
func (c *Config) Validate() error {
	c.EmailProvider = strings.ToLower(strings.TrimSpace(c.EmailProvider))
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")

	switch c.EmailProvider {
	case ProviderResend:
		if c.ResendAPIKey == "" {
			return errors.New("RESEND_API_KEY is required when EMAIL_PROVIDER=resend")
		}
	case ProviderSMTP:
		if c.SMTPHost == "" || c.SMTPPort <= 0 {
			return errors.New("SMTP_HOST and SMTP_PORT are required when EMAIL_PROVIDER=smtp")
		}
	default:
		return errors.Newf("unknown EMAIL_PROVIDER %q", c.EmailProvider)
	}

	if c.BaseURL == "" {
		return errors.New("BASE_URL must not be empty")
	}
	if c.SendDelay < 0 {
		return errors.New("SEND_DELAY must not be negative")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.WorkerCount < 1 {
		c.WorkerCount = 1
	}
	if c.QueueSize < 1 {
		c.QueueSize = 1
	}
	if c.SendRetries < 0 {
		c.SendRetries = 0
	}
	return nil
}

// DatabaseConfig is the subset of Config the maintenance commands need.
type DatabaseConfig struct {
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"true"`
}

func LoadDatabase() (*DatabaseConfig, error) {
	var cfg DatabaseConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process env config")
	}
	return &cfg, nil
}
