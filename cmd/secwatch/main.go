package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/medme/secwatch/internal/adapter/inbound/httpapi"
	"github.com/medme/secwatch/internal/adapter/inbound/httpapi/middleware"
	"github.com/medme/secwatch/internal/adapter/inbound/httpapi/parser"
	"github.com/medme/secwatch/internal/adapter/inbound/slackbot"
	"github.com/medme/secwatch/internal/adapter/outbound/cache"
	"github.com/medme/secwatch/internal/adapter/outbound/notification"
	slacknotifier "github.com/medme/secwatch/internal/adapter/outbound/notification/slack"
	"github.com/medme/secwatch/internal/adapter/outbound/persistence/mongodb"
	"github.com/medme/secwatch/internal/adapter/outbound/persistence/sqlite"
	"github.com/medme/secwatch/internal/config"
	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/outbound"
	"github.com/medme/secwatch/internal/domain/service"
	"github.com/medme/secwatch/pkg/health"
	"github.com/medme/secwatch/pkg/version"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	printVersion := flag.Bool("version", false, "print version and exit")
	issueToken := flag.String("issue-token", "", "print an admin bearer token for the given subject and exit")
	tokenTTL := flag.Duration("token-ttl", time.Hour, "lifetime of tokens printed by -issue-token")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	verifier := middleware.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	if *issueToken != "" {
		token, err := verifier.Issue(*issueToken, model.RoleAdmin, *tokenTTL)
		if err != nil {
			logger.Error("failed to issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		os.Exit(0)
	}

	logger = buildLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker(5 * time.Second)

	// --- Database ---
	repos, closeStore, err := openRepositories(ctx, cfg.Database, checker)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// --- Cache ---
	feedCache, closeCache, err := buildCache(ctx, cfg.Cache, checker, logger)
	if err != nil {
		logger.Error("failed to connect cache", "driver", cfg.Cache.Driver, "error", err)
		os.Exit(1)
	}
	defer closeCache()

	// --- Notifier ---
	var notifier outbound.Notifier
	if cfg.Slack.Enabled {
		notifier = slacknotifier.NewNotifier(slacknotifier.Config{
			BotToken:        cfg.Slack.BotToken,
			Channel:         cfg.Slack.Channel,
			CriticalChannel: cfg.Slack.CriticalChannel,
		})
	} else {
		logger.Info("slack disabled; alerts are logged only")
		notifier = notification.NewNoopNotifier(logger)
	}

	// --- Domain services ---
	reporter := service.NewReporter(repos.audits, repos.users, notifier, feedCache, service.ReporterConfig{
		EscalationThreshold:  cfg.Classifier.EscalationThreshold,
		FailedLoginThreshold: cfg.Classifier.FailedLoginThreshold,
	}, logger)
	feed := service.NewFeed(repos.audits, repos.users, feedCache, service.FeedConfig{
		DefaultWindow: cfg.Feed.Window,
		DefaultLimit:  cfg.Feed.Limit,
		MaxLimit:      cfg.Feed.MaxLimit,
		SampleOnEmpty: cfg.Feed.SampleOnEmpty,
	}, logger)
	lifecycle := service.NewLifecycle(repos.audits, feedCache, logger)

	// --- HTTP API ---
	handler := httpapi.NewHandler(reporter, feed, lifecycle, parser.NewDefaultRegistry(), logger)
	router := httpapi.NewRouter(ctx, handler, verifier, httpapi.RouterConfig{
		IdentitySecret:     cfg.Webhook.IdentitySecret,
		RateLimitPerMinute: cfg.RateLimit.RequestsPerMinute,
		RateLimitBurst:     cfg.RateLimit.Burst,
		TrustProxy:         cfg.Server.TrustProxy,
		AllowedOrigins:     cfg.CORS.AllowedOrigins,
		MaxBodyBytes:       cfg.Server.MaxBodyBytes,
	}, logger)
	apiServer := httpapi.NewServer("api", httpapi.ServerConfig{
		Addr:            fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, logger)

	// --- Metrics server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", checker.LivenessHandler())
	metricsMux.HandleFunc("/readyz", checker.ReadinessHandler())
	metricsServer := httpapi.NewServer("metrics", httpapi.ServerConfig{
		Addr:            fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, metricsMux, logger)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting api server", "port", cfg.Server.Port)
		return apiServer.Start(gCtx)
	})

	g.Go(func() error {
		logger.Info("starting metrics server", "port", cfg.Server.MetricsPort)
		return metricsServer.Start(gCtx)
	})

	// Slack bot (optional).
	if cfg.Slack.Enabled && cfg.Slack.AppToken != "" {
		g.Go(func() error {
			logger.Info("starting slack bot", "admins", len(cfg.Slack.AdminUsers))
			bot := slackbot.NewBot(slackbot.Config{
				BotToken:   cfg.Slack.BotToken,
				AppToken:   cfg.Slack.AppToken,
				AdminUsers: cfg.Slack.AdminUsers,
			}, lifecycle, feed, logger)
			return bot.Start(gCtx)
		})
	} else {
		logger.Info("slack bot disabled or app token not configured")
	}

	logger.Info("secwatch started", "version", version.String(), "database", cfg.Database.Driver, "cache", cfg.Cache.Driver)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("secwatch stopped")
}

type repositories struct {
	audits outbound.AuditRepository
	users  outbound.UserRepository
}

// openRepositories connects the configured store and registers its readiness check.
// The returned func closes the store.
func openRepositories(ctx context.Context, cfg config.DatabaseConfig, checker *health.Checker) (repositories, func(), error) {
	switch cfg.Driver {
	case "mongo":
		store, err := mongodb.NewStore(ctx, mongodb.Config{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
		})
		if err != nil {
			return repositories{}, nil, err
		}
		checker.Register("database", store.Ping)
		closeFn := func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = store.Close(shutdownCtx)
		}
		return repositories{
			audits: mongodb.NewAuditRepo(store),
			users:  mongodb.NewUserRepo(store),
		}, closeFn, nil
	default:
		store, err := sqlite.NewStore(sqlite.Config{
			Path:              cfg.SQLite.Path,
			MaxOpenConns:      cfg.SQLite.MaxOpenConns,
			PragmaJournalMode: cfg.SQLite.PragmaJournalMode,
			PragmaBusyTimeout: cfg.SQLite.PragmaBusyTimeout,
		})
		if err != nil {
			return repositories{}, nil, err
		}
		checker.Register("database", store.Ping)
		return repositories{
			audits: sqlite.NewAuditRepo(store),
			users:  sqlite.NewUserRepo(store),
		}, func() { _ = store.Close() }, nil
	}
}

// buildCache returns the feed cache for the configured driver.
func buildCache(ctx context.Context, cfg config.CacheConfig, checker *health.Checker, logger *slog.Logger) (outbound.Cache, func(), error) {
	switch cfg.Driver {
	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			URL:    cfg.Redis.URL,
			Prefix: cfg.Redis.Prefix,
			TTL:    cfg.TTL,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		checker.Register("cache", r.Ping)
		return r, func() { _ = r.Close() }, nil
	case "none":
		return cache.Noop{}, func() {}, nil
	default:
		return cache.NewMemory(cfg.Size, cfg.TTL), func() {}, nil
	}
}

// buildLogger constructs a slog.Logger based on config. File output is rotated.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.Output != "" && cfg.Output != "stdout" {
		out = &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}
