package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `yaml:"environment" envconfig:"APP_ENV"`
	Server      ServerConfig    `yaml:"server"`
	Trigger     TriggerConfig   `yaml:"trigger"`
	Database    DatabaseConfig  `yaml:"database"`
	Mail        MailConfig      `yaml:"mail"`
	Push        PushConfig      `yaml:"push"`
	Payment     PaymentConfig   `yaml:"payment"`
	JWT         JWTConfig       `yaml:"jwt"`
	Log         LogConfig       `yaml:"log"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
	Jobs        JobsConfig      `yaml:"jobs"`
	Invites     InvitesConfig   `yaml:"invites"`
	Retention   RetentionConfig `yaml:"retention"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Host string `yaml:"host" envconfig:"SERVER_HOST"`
	Port int    `yaml:"port" envconfig:"SERVER_PORT"`
}

// TriggerConfig contains the manual job trigger endpoint settings
type TriggerConfig struct {
	Host   string `yaml:"host" envconfig:"TRIGGER_HOST"`
	Port   int    `yaml:"port" envconfig:"TRIGGER_PORT"`
	Secret string `yaml:"secret" envconfig:"JOB_TRIGGER_SECRET"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Driver   string `yaml:"driver" envconfig:"DB_DRIVER"` // "postgres" or "memory"
	Host     string `yaml:"host" envconfig:"DB_HOST"`
	Port     int    `yaml:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	Database string `yaml:"database" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"DB_SSL_MODE"`
	Migrate  bool   `yaml:"migrate_on_start" envconfig:"DB_MIGRATE_ON_START"`
}

// MailConfig contains email gateway settings
type MailConfig struct {
	Provider string         `yaml:"provider" envconfig:"MAIL_PROVIDER"` // "smtp", "sendgrid" or "log"
	From     string         `yaml:"from" envconfig:"MAIL_FROM"`
	AppURL   string         `yaml:"app_url" envconfig:"APP_URL"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	SendGrid SendGridConfig `yaml:"sendgrid"`
	Breaker  BreakerConfig  `yaml:"breaker"`
}

// SMTPConfig contains SMTP relay settings
type SMTPConfig struct {
	Host     string `yaml:"host" envconfig:"SMTP_HOST"`
	Port     int    `yaml:"port" envconfig:"SMTP_PORT"`
	User     string `yaml:"user" envconfig:"SMTP_USER"`
	Password string `yaml:"password" envconfig:"SMTP_PASSWORD"`
}

// SendGridConfig contains SendGrid API settings
type SendGridConfig struct {
	APIKey string `yaml:"api_key" envconfig:"SENDGRID_API_KEY"`
}

// BreakerConfig tunes the circuit breaker in front of the mail gateway
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures" envconfig:"MAIL_BREAKER_MAX_FAILURES"`
	Interval    time.Duration `yaml:"interval" envconfig:"MAIL_BREAKER_INTERVAL"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"MAIL_BREAKER_TIMEOUT"`
}

// PushConfig contains push notification settings
type PushConfig struct {
	Provider        string `yaml:"provider" envconfig:"PUSH_PROVIDER"` // "fcm" or "log"
	CredentialsFile string `yaml:"credentials_file" envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	ProjectID       string `yaml:"project_id" envconfig:"PUSH_PROJECT_ID"`
}

// PaymentConfig contains payment verification settings
type PaymentConfig struct {
	StripeSecretKey string `yaml:"stripe_secret_key" envconfig:"STRIPE_SECRET_KEY"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret" envconfig:"JWT_SECRET"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes" envconfig:"JWT_ACCESS_TOKEN_EXPIRY_MINUTES"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" envconfig:"LOG_FORMAT"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings (6 fields, seconds precision, UTC)
type SchedulerConfig struct {
	ProcessJobs    string `yaml:"process_jobs" envconfig:"SCHEDULE_PROCESS_JOBS"`
	ProcessInvites string `yaml:"process_invites" envconfig:"SCHEDULE_PROCESS_INVITES"`
	Cleanup        string `yaml:"cleanup" envconfig:"SCHEDULE_CLEANUP"`
}

// JobsConfig contains job queue processing settings
type JobsConfig struct {
	BatchSize   int           `yaml:"batch_size" envconfig:"JOBS_BATCH_SIZE"`
	MaxAttempts int32         `yaml:"max_attempts" envconfig:"JOBS_MAX_ATTEMPTS"`
	StuckAfter  time.Duration `yaml:"stuck_after" envconfig:"JOBS_STUCK_AFTER"`
}

// InvitesConfig contains invite delivery settings
type InvitesConfig struct {
	BatchSize   int           `yaml:"batch_size" envconfig:"INVITES_BATCH_SIZE"`
	MaxAttempts int32         `yaml:"max_attempts" envconfig:"INVITES_MAX_ATTEMPTS"`
	Expiry      time.Duration `yaml:"expiry" envconfig:"INVITES_EXPIRY"`
}

// RetentionConfig contains cleanup windows for terminal rows
type RetentionConfig struct {
	CompletedJobs  time.Duration `yaml:"completed_jobs" envconfig:"RETENTION_COMPLETED_JOBS"`
	TerminalInvite time.Duration `yaml:"terminal_invites" envconfig:"RETENTION_TERMINAL_INVITES"`
}

// Load reads configuration from a YAML file, then applies .env and environment overrides
func Load(configPath string) (*Config, error) {
	// A missing .env file is normal outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a configuration from YAML bytes and the process environment
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.overrideWithEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() error {
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Environment == "" {
		c.Environment = "development"
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Server validation
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Trigger.Port == 0 {
		c.Trigger.Port = c.Server.Port + 1
	}
	if c.Trigger.Port < 0 || c.Trigger.Port > 65535 {
		return fmt.Errorf("invalid trigger port: %d", c.Trigger.Port)
	}

	// Database validation
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
		if !c.IsDevelopment() {
			return fmt.Errorf("memory database is only allowed in development")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	// Mail validation
	if c.Mail.Provider == "" {
		c.Mail.Provider = "log"
	}
	switch c.Mail.Provider {
	case "smtp":
		if c.Mail.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required")
		}
		if c.Mail.SMTP.Port <= 0 || c.Mail.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.Mail.SMTP.Port)
		}
	case "sendgrid":
		if c.Mail.SendGrid.APIKey == "" {
			return fmt.Errorf("SendGrid API key is required")
		}
	case "log":
	default:
		return fmt.Errorf("unsupported mail provider: %s", c.Mail.Provider)
	}
	if c.Mail.From == "" {
		c.Mail.From = "Evently <noreply@evently.app>"
	}
	if c.Mail.AppURL == "" {
		c.Mail.AppURL = "http://localhost:3000"
	}
	c.Mail.AppURL = strings.TrimRight(c.Mail.AppURL, "/")
	if c.Mail.Breaker.MaxFailures == 0 {
		c.Mail.Breaker.MaxFailures = 5
	}
	if c.Mail.Breaker.Interval == 0 {
		c.Mail.Breaker.Interval = time.Minute
	}
	if c.Mail.Breaker.Timeout == 0 {
		c.Mail.Breaker.Timeout = 30 * time.Second
	}

	// Push validation
	if c.Push.Provider == "" {
		c.Push.Provider = "log"
	}
	if c.Push.Provider != "fcm" && c.Push.Provider != "log" {
		return fmt.Errorf("unsupported push provider: %s", c.Push.Provider)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Trigger secret is optional in development only
	if !c.IsDevelopment() && c.Trigger.Secret == "" {
		return fmt.Errorf("job trigger secret is required outside development")
	}

	// Scheduler defaults
	if c.Scheduler.ProcessJobs == "" {
		c.Scheduler.ProcessJobs = "0 * * * * *" // every minute
	}
	if c.Scheduler.ProcessInvites == "" {
		c.Scheduler.ProcessInvites = "0 */2 * * * *" // every 2 minutes
	}
	if c.Scheduler.Cleanup == "" {
		c.Scheduler.Cleanup = "0 0 2 * * *" // 2 AM UTC
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"process_jobs":    c.Scheduler.ProcessJobs,
		"process_invites": c.Scheduler.ProcessInvites,
		"cleanup":         c.Scheduler.Cleanup,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", name, spec, err)
		}
	}

	// Job queue defaults
	if c.Jobs.BatchSize <= 0 {
		c.Jobs.BatchSize = 20
	}
	if c.Jobs.MaxAttempts <= 0 {
		c.Jobs.MaxAttempts = 3
	}
	if c.Jobs.StuckAfter <= 0 {
		c.Jobs.StuckAfter = 30 * time.Minute
	}

	// Invite defaults
	if c.Invites.BatchSize <= 0 {
		c.Invites.BatchSize = 10
	}
	if c.Invites.MaxAttempts <= 0 {
		c.Invites.MaxAttempts = 3
	}
	if c.Invites.Expiry <= 0 {
		c.Invites.Expiry = 7 * 24 * time.Hour
	}

	// Retention defaults
	if c.Retention.CompletedJobs <= 0 {
		c.Retention.CompletedJobs = 7 * 24 * time.Hour
	}
	if c.Retention.TerminalInvite <= 0 {
		c.Retention.TerminalInvite = 30 * 24 * time.Hour
	}

	return nil
}

// IsDevelopment reports whether the process runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		Path:     "/" + c.Database.Database,
		RawQuery: url.Values{"sslmode": {c.Database.SSLMode}}.Encode(),
	}
	return u.String()
}

// GetServerAddress returns the HTTP API address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetTriggerAddress returns the job trigger endpoint address
func (c *Config) GetTriggerAddress() string {
	return fmt.Sprintf("%s:%d", c.Trigger.Host, c.Trigger.Port)
}
