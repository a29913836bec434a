package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Slack      SlackConfig      `yaml:"slack"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Feed       FeedConfig       `yaml:"feed"`
	RateLimit  RateLimitConfig  `yaml:"rateLimit"`
	CORS       CORSConfig       `yaml:"cors"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MetricsPort     int           `yaml:"metricsPort"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
	TrustProxy      bool          `yaml:"trustProxy"`
}

// AuthConfig configures bearer token verification for the admin API.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

type WebhookConfig struct {
	// IdentitySecret signs identity provider deliveries. Empty disables the endpoint.
	IdentitySecret string `yaml:"identitySecret"`
}

type DatabaseConfig struct {
	Driver string       `yaml:"driver"`
	SQLite SQLiteConfig `yaml:"sqlite"`
	Mongo  MongoConfig  `yaml:"mongo"`
}

type SQLiteConfig struct {
	Path              string `yaml:"path"`
	MaxOpenConns      int    `yaml:"maxOpenConns"`
	PragmaJournalMode string `yaml:"pragmaJournalMode"`
	PragmaBusyTimeout int    `yaml:"pragmaBusyTimeout"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

type CacheConfig struct {
	Driver string        `yaml:"driver"`
	TTL    time.Duration `yaml:"ttl"`
	Size   int           `yaml:"size"`
	Redis  RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

type SlackConfig struct {
	Enabled         bool     `yaml:"enabled"`
	BotToken        string   `yaml:"botToken"`
	AppToken        string   `yaml:"appToken"`
	Channel         string   `yaml:"channel"`
	CriticalChannel string   `yaml:"criticalChannel"`
	AdminUsers      []string `yaml:"adminUsers"`
}

type ClassifierConfig struct {
	EscalationThreshold  int `yaml:"escalationThreshold"`
	FailedLoginThreshold int `yaml:"failedLoginThreshold"`
}

type FeedConfig struct {
	Window        time.Duration `yaml:"window"`
	Limit         int           `yaml:"limit"`
	MaxLimit      int           `yaml:"maxLimit"`
	SampleOnEmpty bool          `yaml:"sampleOnEmpty"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	Burst             int `yaml:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Output is "stdout" or a file path. Files are rotated.
	Output     string `yaml:"output"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// Load reads a YAML config file and returns a Config. A .env file next to the
// working directory, when present, is loaded into the environment first; variables
// already set take precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MetricsPort:     9090,
			MaxBodyBytes:    1 << 20,
		},
		Auth: AuthConfig{
			Issuer: "medme-auth",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:              "/data/secwatch.db",
				MaxOpenConns:      1,
				PragmaJournalMode: "wal",
				PragmaBusyTimeout: 5000,
			},
			Mongo: MongoConfig{
				Database:       "medme",
				ConnectTimeout: 10 * time.Second,
			},
		},
		Cache: CacheConfig{
			Driver: "memory",
			TTL:    30 * time.Second,
			Size:   256,
			Redis:  RedisConfig{Prefix: "secwatch"},
		},
		Slack: SlackConfig{
			Enabled: false,
			Channel: "#security-alerts",
		},
		Classifier: ClassifierConfig{
			EscalationThreshold:  75,
			FailedLoginThreshold: 5,
		},
		Feed: FeedConfig{
			Window:   24 * time.Hour,
			Limit:    50,
			MaxLimit: 500,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
			Burst:             30,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// expandEnvVars replaces ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "${" + key + "}"
	})
}
