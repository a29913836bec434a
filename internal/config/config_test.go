package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Auth.JWTSecret = testSecret
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected server.port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9090 {
		t.Errorf("expected server.metricsPort 9090, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("expected server.shutdownTimeout 15s, got %v", cfg.Server.ShutdownTimeout)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected database.driver sqlite, got %q", cfg.Database.Driver)
	}
	if cfg.Cache.Driver != "memory" {
		t.Errorf("expected cache.driver memory, got %q", cfg.Cache.Driver)
	}

	if cfg.Classifier.EscalationThreshold != 75 {
		t.Errorf("expected classifier.escalationThreshold 75, got %d", cfg.Classifier.EscalationThreshold)
	}
	if cfg.Classifier.FailedLoginThreshold != 5 {
		t.Errorf("expected classifier.failedLoginThreshold 5, got %d", cfg.Classifier.FailedLoginThreshold)
	}

	if cfg.Feed.Window != 24*time.Hour {
		t.Errorf("expected feed.window 24h, got %v", cfg.Feed.Window)
	}
	if cfg.Feed.Limit != 50 || cfg.Feed.MaxLimit != 500 {
		t.Errorf("expected feed limits 50/500, got %d/%d", cfg.Feed.Limit, cfg.Feed.MaxLimit)
	}
	if cfg.Feed.SampleOnEmpty {
		t.Error("expected feed.sampleOnEmpty false")
	}

	if cfg.Slack.Enabled {
		t.Error("expected slack.enabled false")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging.level info, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected logging.format json, got %q", cfg.Logging.Format)
	}
}

func TestLoad(t *testing.T) {
	yaml := `
server:
  port: 9000
  metricsPort: 9091
auth:
  jwtSecret: "` + testSecret + `"
database:
  driver: sqlite
  sqlite:
    path: "/tmp/test.db"
feed:
  window: 12h
  sampleOnEmpty: true
cors:
  allowedOrigins: ["https://app.medme.example"]
`
	f := writeTempYAML(t, yaml)

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9091 {
		t.Errorf("expected metricsPort 9091, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Database.SQLite.Path != "/tmp/test.db" {
		t.Errorf("expected sqlite path /tmp/test.db, got %q", cfg.Database.SQLite.Path)
	}
	if cfg.Feed.Window != 12*time.Hour {
		t.Errorf("expected feed.window 12h, got %v", cfg.Feed.Window)
	}
	if !cfg.Feed.SampleOnEmpty {
		t.Error("expected feed.sampleOnEmpty true")
	}
	if len(cfg.CORS.AllowedOrigins) != 1 {
		t.Errorf("expected one allowed origin, got %v", cfg.CORS.AllowedOrigins)
	}
	// defaults still apply to unset fields
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("expected default readTimeout 15s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Classifier.EscalationThreshold != 75 {
		t.Errorf("expected default escalation threshold, got %d", cfg.Classifier.EscalationThreshold)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	f := writeTempYAML(t, ":::invalid yaml:::")
	_, err := Load(f)
	if err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingSecretFailsValidation(t *testing.T) {
	f := writeTempYAML(t, "server:\n  port: 8081\n")
	_, err := Load(f)
	if err == nil || !strings.Contains(err.Error(), "auth.jwtSecret") {
		t.Errorf("expected jwtSecret validation error, got %v", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_TOKEN", "secret-token-123")
	t.Setenv("TEST_PORT", "9999")

	input := "token: ${TEST_TOKEN}\nport: ${TEST_PORT}\nmissing: ${MISSING_VAR}"
	result := expandEnvVars(input)

	if result != "token: secret-token-123\nport: 9999\nmissing: ${MISSING_VAR}" {
		t.Errorf("unexpected expansion result:\n%s", result)
	}
}

func TestExpandEnvVars_InLoad(t *testing.T) {
	t.Setenv("SECWATCH_DB_PATH", "/tmp/envtest.db")
	t.Setenv("SECWATCH_JWT_SECRET", testSecret)

	yaml := `
auth:
  jwtSecret: "${SECWATCH_JWT_SECRET}"
database:
  driver: sqlite
  sqlite:
    path: "${SECWATCH_DB_PATH}"
`
	f := writeTempYAML(t, yaml)

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Database.SQLite.Path != "/tmp/envtest.db" {
		t.Errorf("expected env-expanded path /tmp/envtest.db, got %q", cfg.Database.SQLite.Path)
	}
	if cfg.Auth.JWTSecret != testSecret {
		t.Error("expected env-expanded jwt secret")
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("expected valid config to pass validation, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 99999 }, "server.port"},
		{"metrics port clash", func(c *Config) { c.Server.MetricsPort = c.Server.Port }, "must differ"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "at least 32 bytes"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver"},
		{"mongo needs uri", func(c *Config) { c.Database.Driver = "mongo" }, "database.mongo.uri"},
		{"sqlite needs path", func(c *Config) { c.Database.SQLite.Path = "" }, "database.sqlite.path"},
		{"unknown cache", func(c *Config) { c.Cache.Driver = "memcached" }, "cache.driver"},
		{"redis needs url", func(c *Config) { c.Cache.Driver = "redis" }, "cache.redis.url"},
		{"slack needs token", func(c *Config) { c.Slack.Enabled = true }, "slack.botToken"},
		{"threshold range", func(c *Config) { c.Classifier.EscalationThreshold = 101 }, "escalationThreshold"},
		{"limit over max", func(c *Config) { c.Feed.Limit = 1000 }, "feed.limit"},
		{"rate limit", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }, "rateLimit"},
		{"wildcard origin", func(c *Config) { c.CORS.AllowedOrigins = []string{"*"} }, "cors.allowedOrigins"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected validation error containing %q, got nil", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Database.Driver = "postgres"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "server.port") || !strings.Contains(err.Error(), "database.driver") {
		t.Errorf("expected both errors reported, got %v", err)
	}
}

// writeTempYAML writes content to a temp file and returns its path.
func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	f := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(f, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp yaml: %v", err)
	}
	return f
}
