package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
environment: development
server:
  port: 8080
database:
  host: localhost
  user: evently
  database: evently
jwt:
  secret: "0123456789abcdef0123456789abcdef"
`

func TestParse_FillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "0 * * * * *", cfg.Scheduler.ProcessJobs)
	assert.Equal(t, "0 */2 * * * *", cfg.Scheduler.ProcessInvites)
	assert.Equal(t, "0 0 2 * * *", cfg.Scheduler.Cleanup)
	assert.Equal(t, 20, cfg.Jobs.BatchSize)
	assert.Equal(t, 10, cfg.Invites.BatchSize)
	assert.Equal(t, int32(3), cfg.Jobs.MaxAttempts)
	assert.Equal(t, int32(3), cfg.Invites.MaxAttempts)
	assert.Equal(t, 7*24*time.Hour, cfg.Invites.Expiry)
	assert.Equal(t, 30*time.Minute, cfg.Jobs.StuckAfter)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention.CompletedJobs)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention.TerminalInvite)
	assert.Equal(t, "log", cfg.Mail.Provider)
	assert.Equal(t, 8081, cfg.Trigger.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.IsDevelopment())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("JOB_TRIGGER_SECRET", "s3cret")
	t.Setenv("INVITES_MAX_ATTEMPTS", "5")
	t.Setenv("RETENTION_COMPLETED_JOBS", "48h")

	cfg, err := Parse([]byte(baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.Trigger.Secret)
	assert.Equal(t, int32(5), cfg.Invites.MaxAttempts)
	assert.Equal(t, 48*time.Hour, cfg.Retention.CompletedJobs)
	// untouched values keep the file's setting
	assert.Equal(t, "evently", cfg.Database.User)
}

func TestParse_YAMLDurations(t *testing.T) {
	cfg, err := Parse([]byte(baseYAML + `
jobs:
  stuck_after: 10m
invites:
  expiry: 72h
`))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Jobs.StuckAfter)
	assert.Equal(t, 72*time.Hour, cfg.Invites.Expiry)
}

func TestValidate_Rejects(t *testing.T) {
	withDriver := strings.Replace(baseYAML, "database:\n", "database:\n  driver: mysql\n", 1)

	tests := []struct {
		name  string
		doc   string
		extra string
		want  string
	}{
		{"bad schedule", baseYAML, "scheduler:\n  process_jobs: \"every minute\"\n", "invalid process_jobs schedule"},
		{"unknown mail provider", baseYAML, "mail:\n  provider: pigeon\n", "unsupported mail provider"},
		{"smtp without host", baseYAML, "mail:\n  provider: smtp\n", "SMTP host is required"},
		{"sendgrid without key", baseYAML, "mail:\n  provider: sendgrid\n", "SendGrid API key is required"},
		{"unknown driver", withDriver, "", "unsupported database driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc + tt.extra))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ProductionNeedsTriggerSecret(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		Database:    DatabaseConfig{Host: "db", User: "u", Database: "d"},
		JWT:         JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job trigger secret")

	cfg.Trigger.Secret = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MemoryDriverOnlyInDevelopment(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		Database:    DatabaseConfig{Driver: "memory"},
		Trigger:     TriggerConfig{Secret: "secret"},
		JWT:         JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
	}
	assert.Error(t, cfg.Validate())

	cfg.Environment = "development"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(baseYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.GetServerAddress())
	assert.Equal(t, "postgres://evently:@localhost:5432/evently?sslmode=disable", cfg.GetDatabaseConnectionString())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetDatabaseConnectionString_EscapesCredentials(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "evently@prod",
		Password: "p@ss:w/rd?#%",
		Database: "evently",
		SSLMode:  "require",
	}}

	dsn := cfg.GetDatabaseConnectionString()
	u, err := url.Parse(dsn)
	require.NoError(t, err)

	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:5433", u.Host)
	assert.Equal(t, "evently@prod", u.User.Username())
	password, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss:w/rd?#%", password)
	assert.Equal(t, "/evently", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}
