package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for errors.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535 {
		errs = append(errs, "server.metricsPort must be between 1 and 65535")
	}
	if cfg.Server.MetricsPort == cfg.Server.Port {
		errs = append(errs, "server.metricsPort must differ from server.port")
	}

	if cfg.Auth.JWTSecret == "" {
		errs = append(errs, "auth.jwtSecret is required")
	} else if len(cfg.Auth.JWTSecret) < 32 {
		errs = append(errs, "auth.jwtSecret must be at least 32 bytes")
	}

	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.SQLite.Path == "" {
			errs = append(errs, "database.sqlite.path is required when driver is sqlite")
		}
	case "mongo":
		if cfg.Database.Mongo.URI == "" {
			errs = append(errs, "database.mongo.uri is required when driver is mongo")
		}
		if cfg.Database.Mongo.Database == "" {
			errs = append(errs, "database.mongo.database is required when driver is mongo")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver must be sqlite or mongo (got %q)", cfg.Database.Driver))
	}

	switch cfg.Cache.Driver {
	case "memory", "none":
	case "redis":
		if cfg.Cache.Redis.URL == "" {
			errs = append(errs, "cache.redis.url is required when driver is redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("cache.driver must be memory, redis or none (got %q)", cfg.Cache.Driver))
	}
	if cfg.Cache.TTL < 0 {
		errs = append(errs, "cache.ttl must not be negative")
	}

	if cfg.Slack.Enabled {
		if cfg.Slack.BotToken == "" {
			errs = append(errs, "slack.botToken is required when slack is enabled")
		}
		if cfg.Slack.Channel == "" {
			errs = append(errs, "slack.channel is required when slack is enabled")
		}
	}

	if t := cfg.Classifier.EscalationThreshold; t < 0 || t > 100 {
		errs = append(errs, "classifier.escalationThreshold must be between 0 and 100")
	}
	if cfg.Classifier.FailedLoginThreshold < 0 {
		errs = append(errs, "classifier.failedLoginThreshold must not be negative")
	}

	if cfg.Feed.Window < 0 {
		errs = append(errs, "feed.window must not be negative")
	}
	if cfg.Feed.MaxLimit > 0 && cfg.Feed.Limit > cfg.Feed.MaxLimit {
		errs = append(errs, "feed.limit must not exceed feed.maxLimit")
	}

	if cfg.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, "rateLimit.requestsPerMinute must be positive")
	}

	for _, origin := range cfg.CORS.AllowedOrigins {
		if origin == "*" {
			errs = append(errs, "cors.allowedOrigins must list explicit origins; credentials are allowed")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging.level must be debug, info, warn or error (got %q)", cfg.Logging.Level))
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text (got %q)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
